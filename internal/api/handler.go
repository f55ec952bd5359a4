package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/history"
	"github.com/AlgoNouir/atomation/internal/reporter"
	"github.com/AlgoNouir/atomation/internal/source"
)

const maxBodyBytes = 10 << 20

// analysis is the outcome of running one request body through the analyzer.
type analysis struct {
	meta   source.Meta
	mode   cpm.RelationMode
	graph  *graph.TaskGraph
	result *cpm.CPMResult
	err    error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Uptime:    time.Since(s.startTime).Truncate(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// POST /api/v1/schedule/analyze?relations=typed&deadlines=false&format=json
func (s *Server) handleAnalyze(c *gin.Context) {
	a, ok := s.analyzeRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reporter.NewDocument(a.meta, a.graph, a.result, nil))
}

// POST /api/v1/schedule/graph?relations=typed&deadlines=false&format=json
func (s *Server) handleGraph(c *gin.Context) {
	a, ok := s.analyzeRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toGraph(a.meta, a.graph, a.result))
}

// analyzeRequest parses and analyzes the request body. It writes the error
// response itself and reports false when the request cannot be served.
func (s *Server) analyzeRequest(c *gin.Context) (*analysis, bool) {
	mode := s.relations
	if q := c.Query("relations"); q != "" {
		m, err := cpm.ParseRelationMode(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		mode = m
	}

	deadlines := s.deadlines
	if q := c.Query("deadlines"); q != "" {
		b, err := strconv.ParseBool(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deadlines must be true or false"})
			return nil, false
		}
		deadlines = b
	}

	format, err := source.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body: " + err.Error()})
		return nil, false
	}

	tasks, meta, err := source.Parse(data, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	meta.Source = "api"

	a := &analysis{meta: meta, mode: mode}
	a.graph, a.err = graph.Build(tasks)
	if a.err == nil {
		a.result, a.err = cpm.Analyze(a.graph, cpm.Options{Relations: mode, UseDeadlines: deadlines})
	}
	s.record(c, a, len(tasks))

	if a.err != nil {
		if errors.Is(a.err, graph.ErrCyclicDependency) {
			c.JSON(http.StatusUnprocessableEntity, reporter.NewDocument(meta, nil, nil, a.err))
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": a.err.Error()})
		return nil, false
	}

	for _, d := range a.result.Diagnostics {
		s.logger.Debug("schedule diagnostic", "kind", d.Kind, "task", d.TaskID, "message", d.Message)
	}
	return a, true
}

// record stores the run when history is enabled. Failures are logged and
// never fail the request.
func (s *Server) record(c *gin.Context, a *analysis, taskCount int) {
	if s.store == nil {
		return
	}

	run := &history.Run{
		Source:    a.meta.Source,
		Milestone: a.meta.Milestone,
		Relations: string(a.mode),
		TaskCount: taskCount,
	}
	if a.err != nil {
		run.Error = a.err.Error()
	} else {
		run.CriticalIDs = cpm.CriticalIDs(a.result)
		run.TotalDays = a.result.TotalDays
	}

	if err := s.store.Record(c.Request.Context(), run); err != nil {
		s.logger.Warn("record analysis run", "error", err)
		return
	}
	c.Header("X-Run-ID", run.ID)
}

// GET /api/v1/history?limit=20
func (s *Server) handleListHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	limit := 20
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GET /api/v1/history/:id
func (s *Server) handleGetHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	run, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("get history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}
	c.JSON(http.StatusOK, run)
}
