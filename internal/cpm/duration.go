package cpm

import (
	"math"
	"time"

	"github.com/AlgoNouir/atomation/internal/graph"
)

const day = 24 * time.Hour

// Duration returns the task's scheduled length in whole days, rounding a
// partial day up. It is negative when DueDate is before StartDate; Analyze
// treats that as a data error and clamps it to zero.
func Duration(t *graph.Task) int {
	return int(math.Ceil(float64(t.DueDate.Sub(t.StartDate)) / float64(day)))
}
