package cpm

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/AlgoNouir/atomation/internal/graph"
)

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func task(id string, start, due int) graph.Task {
	return graph.Task{ID: id, Title: "Task " + id, StartDate: jan(start), DueDate: jan(due)}
}

func dependsOn(t graph.Task, rel graph.RelationType, preds ...string) graph.Task {
	for _, p := range preds {
		t.Dependencies = append(t.Dependencies, graph.Dependency{From: p, To: t.ID, Type: rel})
	}
	return t
}

func withDeadline(t graph.Task, d int) graph.Task {
	dl := jan(d)
	t.Deadline = &dl
	return t
}

func analyze(t *testing.T, tasks []graph.Task, mode RelationMode) *CPMResult {
	t.Helper()
	return analyzeOpts(t, tasks, Options{Relations: mode})
}

func analyzeWithDeadlines(t *testing.T, tasks []graph.Task, mode RelationMode) *CPMResult {
	t.Helper()
	return analyzeOpts(t, tasks, Options{Relations: mode, UseDeadlines: true})
}

func analyzeOpts(t *testing.T, tasks []graph.Task, opts Options) *CPMResult {
	t.Helper()
	result, err := AnalyzeTasks(tasks, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func assertDates(t *testing.T, ts *TaskSchedule, es, ef, ls, lf int, critical bool) {
	t.Helper()
	if !ts.EarlyStart.Equal(jan(es)) {
		t.Errorf("task %s: expected ES=%d, got %s", ts.TaskID, es, ts.EarlyStart)
	}
	if !ts.EarlyFinish.Equal(jan(ef)) {
		t.Errorf("task %s: expected EF=%d, got %s", ts.TaskID, ef, ts.EarlyFinish)
	}
	if !ts.LateStart.Equal(jan(ls)) {
		t.Errorf("task %s: expected LS=%d, got %s", ts.TaskID, ls, ts.LateStart)
	}
	if !ts.LateFinish.Equal(jan(lf)) {
		t.Errorf("task %s: expected LF=%d, got %s", ts.TaskID, lf, ts.LateFinish)
	}
	if ts.IsCritical != critical {
		t.Errorf("task %s: expected critical=%v, got %v", ts.TaskID, critical, ts.IsCritical)
	}
}

func hasDiagnostic(r *CPMResult, kind DiagnosticKind, taskID string) bool {
	for _, d := range r.Diagnostics {
		if d.Kind == kind && d.TaskID == taskID {
			return true
		}
	}
	return false
}

func TestDuration(t *testing.T) {
	a := task("a", 1, 3)
	if got := Duration(&a); got != 2 {
		t.Errorf("expected 2 days, got %d", got)
	}

	partial := graph.Task{ID: "p", StartDate: jan(1), DueDate: jan(2).Add(12 * time.Hour)}
	if got := Duration(&partial); got != 2 {
		t.Errorf("expected partial day to round up to 2, got %d", got)
	}

	backwards := task("b", 5, 3)
	if got := Duration(&backwards); got != -2 {
		t.Errorf("expected -2 for inverted window, got %d", got)
	}
}

func TestAnalyze_SingleTask(t *testing.T) {
	result := analyze(t, []graph.Task{task("solo", 1, 3)}, "")

	assertDates(t, result.Tasks["solo"], 1, 3, 1, 3, true)
	if len(result.CriticalPath) != 1 || result.CriticalPath[0] != "solo" {
		t.Errorf("expected critical path [solo], got %v", result.CriticalPath)
	}
	if result.TotalDays != 2 {
		t.Errorf("expected total 2 days, got %d", result.TotalDays)
	}
	if result.Relations != RelationsTyped {
		t.Errorf("expected default relation mode typed, got %s", result.Relations)
	}
}

func TestAnalyze_ReleaseScenario(t *testing.T) {
	a := task("a", 1, 3)
	b := dependsOn(task("b", 4, 8), graph.FinishToStart, "a")

	result := analyze(t, []graph.Task{a, b}, "")

	if result.Tasks["a"].Duration != 2 {
		t.Errorf("expected duration(a)=2, got %d", result.Tasks["a"].Duration)
	}
	assertDates(t, result.Tasks["a"], 1, 3, 1, 3, true)
	// b's own baseline already satisfies the FS constraint
	assertDates(t, result.Tasks["b"], 4, 8, 4, 8, true)
}

func TestAnalyze_LinearChain(t *testing.T) {
	// A -> B -> C with zero slack between windows
	tasks := []graph.Task{
		task("a", 1, 3),
		dependsOn(task("b", 3, 5), graph.FinishToStart, "a"),
		dependsOn(task("c", 5, 8), graph.FinishToStart, "b"),
	}

	result := analyze(t, tasks, "")

	assertDates(t, result.Tasks["a"], 1, 3, 1, 3, true)
	assertDates(t, result.Tasks["b"], 3, 5, 3, 5, true)
	assertDates(t, result.Tasks["c"], 5, 8, 5, 8, true)

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(result.CriticalPath, want) {
		t.Errorf("expected critical path %v, got %v", want, result.CriticalPath)
	}
	if result.TotalDays != 7 {
		t.Errorf("expected total 7 days, got %d", result.TotalDays)
	}
	if len(result.Waves) != 3 {
		t.Errorf("expected 3 waves, got %d", len(result.Waves))
	}
}

func TestAnalyze_ParallelBranches(t *testing.T) {
	// A -> B (B may finish as late as the 20th), A -> C (no room)
	tasks := []graph.Task{
		task("a", 1, 3),
		withDeadline(dependsOn(task("b", 3, 5), graph.FinishToStart, "a"), 20),
		dependsOn(task("c", 3, 6), graph.FinishToStart, "a"),
	}

	result := analyzeWithDeadlines(t, tasks, "")

	assertDates(t, result.Tasks["b"], 3, 5, 18, 20, false)
	if got := result.Tasks["b"].SlackDays(); got != 15 {
		t.Errorf("expected B slack=15 days, got %d", got)
	}
	assertDates(t, result.Tasks["c"], 3, 6, 3, 6, true)
	assertDates(t, result.Tasks["a"], 1, 3, 1, 3, true)

	if result.IsCritical("b") || !result.IsCritical("c") {
		t.Errorf("expected only C of the branches critical, got %v", result.CriticalPath)
	}
}

func TestAnalyze_DiamondWaves(t *testing.T) {
	// A -> B -> D
	// A -> C -> D
	tasks := []graph.Task{
		task("a", 1, 2),
		dependsOn(task("b", 2, 3), graph.FinishToStart, "a"),
		dependsOn(task("c", 2, 4), graph.FinishToStart, "a"),
		dependsOn(task("d", 4, 5), graph.FinishToStart, "b", "c"),
	}

	result := analyze(t, tasks, "")

	if len(result.Waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(result.Waves))
	}
	if ids := result.Waves[1].TaskIDs; len(ids) != 2 {
		t.Errorf("expected 2 tasks in wave 1, got %v", ids)
	}
	if !result.Waves[1].Day.Equal(jan(2)) {
		t.Errorf("expected wave 1 on day 2, got %s", result.Waves[1].Day)
	}
	if result.Tasks["d"].Wave != 2 {
		t.Errorf("expected d in wave 2, got %d", result.Tasks["d"].Wave)
	}
	if !result.ProjectStart.Equal(jan(1)) || !result.ProjectFinish.Equal(jan(5)) {
		t.Errorf("expected project span 1..5, got %s..%s", result.ProjectStart, result.ProjectFinish)
	}
}

func TestAnalyze_PushedSuccessorHasNegativeSlack(t *testing.T) {
	// B is planned to start before A can finish.
	tasks := []graph.Task{
		task("a", 1, 5),
		dependsOn(task("b", 3, 5), graph.FinishToStart, "a"),
	}

	result := analyze(t, tasks, "")

	assertDates(t, result.Tasks["b"], 5, 7, 3, 5, false)
	if result.Tasks["b"].SlackDays() != -2 {
		t.Errorf("expected B slack=-2 days, got %d", result.Tasks["b"].SlackDays())
	}
	if !hasDiagnostic(result, NegativeSlack, "b") {
		t.Errorf("expected negative-slack diagnostic for b, got %v", result.Diagnostics)
	}
	if len(result.CriticalPath) != 0 {
		t.Errorf("expected no critical tasks on an inconsistent schedule, got %v", result.CriticalPath)
	}
}

func TestAnalyze_Cycle(t *testing.T) {
	tasks := []graph.Task{
		dependsOn(task("a", 1, 2), graph.FinishToStart, "b"),
		dependsOn(task("b", 2, 3), graph.FinishToStart, "a"),
	}

	result, err := AnalyzeTasks(tasks, Options{})
	if result != nil {
		t.Errorf("expected no result, got %+v", result)
	}
	if !errors.Is(err, graph.ErrCyclicDependency) {
		t.Fatalf("expected cyclic dependency error, got %v", err)
	}
	var cycErr *graph.CyclicDependencyError
	if !errors.As(err, &cycErr) || len(cycErr.Cycle) < 2 {
		t.Errorf("expected cycle members in error, got %v", err)
	}
}

func TestAnalyze_DanglingDependencyIgnored(t *testing.T) {
	tasks := []graph.Task{
		task("a", 1, 3),
		dependsOn(task("b", 3, 5), graph.FinishToStart, "a", "missing"),
	}

	result := analyze(t, tasks, "")

	assertDates(t, result.Tasks["b"], 3, 5, 3, 5, true)
	if !hasDiagnostic(result, DanglingDependency, "b") {
		t.Errorf("expected dangling-dependency diagnostic, got %v", result.Diagnostics)
	}
}

func TestAnalyze_InvalidDurationClamped(t *testing.T) {
	result := analyze(t, []graph.Task{task("a", 5, 3)}, "")

	ts := result.Tasks["a"]
	if ts.Duration != 0 {
		t.Errorf("expected clamped duration 0, got %d", ts.Duration)
	}
	assertDates(t, ts, 5, 5, 5, 5, true)
	if !hasDiagnostic(result, InvalidDuration, "a") {
		t.Errorf("expected invalid-duration diagnostic, got %v", result.Diagnostics)
	}
}

func TestAnalyze_DeadlineBeforeDueIgnored(t *testing.T) {
	result := analyzeWithDeadlines(t, []graph.Task{withDeadline(task("a", 1, 5), 3)}, "")

	assertDates(t, result.Tasks["a"], 1, 5, 1, 5, true)
	if !hasDiagnostic(result, InvalidDeadline, "a") {
		t.Errorf("expected invalid-deadline diagnostic, got %v", result.Diagnostics)
	}
}

func TestAnalyze_DeadlinesIgnoredByDefault(t *testing.T) {
	tasks := []graph.Task{
		task("a", 1, 3),
		withDeadline(dependsOn(task("b", 3, 5), graph.FinishToStart, "a"), 20),
	}

	result := analyze(t, tasks, "")

	assertDates(t, result.Tasks["b"], 3, 5, 3, 5, true)
	if len(result.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", result.Diagnostics)
	}

	early := analyze(t, []graph.Task{withDeadline(task("c", 1, 5), 3)}, "")
	if hasDiagnostic(early, InvalidDeadline, "c") {
		t.Errorf("deadline checked while deadlines are off: %v", early.Diagnostics)
	}
}

func TestAnalyze_PartialDayWindow(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2024, time.January, 3, 17, 0, 0, 0, time.UTC)
	result := analyze(t, []graph.Task{{ID: "a", StartDate: start, DueDate: due}}, "")

	ts := result.Tasks["a"]
	if ts.Duration != 3 {
		t.Errorf("expected reported duration 3 days, got %d", ts.Duration)
	}
	if !ts.EarlyStart.Equal(start) || !ts.LateStart.Equal(start) {
		t.Errorf("expected ES=LS=%s, got ES=%s LS=%s", start, ts.EarlyStart, ts.LateStart)
	}
	if !ts.EarlyFinish.Equal(due) || !ts.LateFinish.Equal(due) {
		t.Errorf("expected EF=LF=%s, got EF=%s LF=%s", due, ts.EarlyFinish, ts.LateFinish)
	}
	if !ts.IsCritical || ts.Slack != 0 {
		t.Errorf("expected critical with zero slack, got critical=%v slack=%s", ts.IsCritical, ts.Slack)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", result.Diagnostics)
	}
}

func TestAnalyze_PartialDayChain(t *testing.T) {
	at := func(d, h int) time.Time { return time.Date(2024, time.January, d, h, 0, 0, 0, time.UTC) }
	tasks := []graph.Task{
		{ID: "a", StartDate: at(1, 9), DueDate: at(1, 17)},
		{ID: "b", StartDate: at(2, 9), DueDate: at(2, 17),
			Dependencies: []graph.Dependency{{From: "a", To: "b", Type: graph.FinishToStart}}},
	}

	result := analyze(t, tasks, "")

	for _, id := range []string{"a", "b"} {
		if !result.IsCritical(id) {
			t.Errorf("expected %s critical, slack=%s", id, result.Tasks[id].Slack)
		}
	}
	if !result.Tasks["a"].LateFinish.Equal(at(1, 17)) {
		t.Errorf("expected a LF=%s, got %s", at(1, 17), result.Tasks["a"].LateFinish)
	}
	if hasDiagnostic(result, NegativeSlack, "a") || hasDiagnostic(result, NegativeSlack, "b") {
		t.Errorf("unexpected negative slack: %v", result.Diagnostics)
	}
}

func TestAnalyze_MismatchedTarget(t *testing.T) {
	b := task("b", 3, 5)
	b.Dependencies = []graph.Dependency{{From: "a", To: "c", Type: graph.FinishToStart}}
	tasks := []graph.Task{task("a", 1, 3), b, task("c", 3, 4)}

	result := analyze(t, tasks, "")

	if !hasDiagnostic(result, MismatchedTarget, "b") {
		t.Fatalf("expected mismatched-target diagnostic for b, got %v", result.Diagnostics)
	}
	for _, d := range result.Diagnostics {
		if d.Kind == MismatchedTarget && d.Ref != "c" {
			t.Errorf("expected ref c, got %q", d.Ref)
		}
	}
	if !result.IsCritical("a") || !result.IsCritical("b") {
		t.Errorf("expected edge attached to b, critical path %v", result.CriticalPath)
	}
}

func TestAnalyze_StartToStart(t *testing.T) {
	tasks := []graph.Task{
		task("a", 2, 6),
		dependsOn(task("b", 1, 4), graph.StartToStart, "a"),
	}

	typed := analyze(t, tasks, RelationsTyped)
	if !typed.Tasks["b"].EarlyStart.Equal(jan(2)) {
		t.Errorf("typed: expected b ES=2, got %s", typed.Tasks["b"].EarlyStart)
	}

	asFS := analyze(t, tasks, RelationsAsFS)
	if !asFS.Tasks["b"].EarlyStart.Equal(jan(6)) {
		t.Errorf("as-fs: expected b ES=6, got %s", asFS.Tasks["b"].EarlyStart)
	}

	fsOnly := analyze(t, tasks, RelationsFSOnly)
	if !fsOnly.Tasks["b"].EarlyStart.Equal(jan(1)) {
		t.Errorf("fs-only: expected b ES=1, got %s", fsOnly.Tasks["b"].EarlyStart)
	}
}

func TestAnalyze_FinishToFinish(t *testing.T) {
	// B must not finish before A finishes on the 6th.
	tasks := []graph.Task{
		task("a", 1, 6),
		dependsOn(task("b", 1, 3), graph.FinishToFinish, "a"),
	}

	result := analyze(t, tasks, "")

	if !result.Tasks["b"].EarlyStart.Equal(jan(4)) || !result.Tasks["b"].EarlyFinish.Equal(jan(6)) {
		t.Errorf("expected b early window 4..6, got %s..%s",
			result.Tasks["b"].EarlyStart, result.Tasks["b"].EarlyFinish)
	}
}

func TestAnalyze_StartToFinish(t *testing.T) {
	// B must not finish before A starts on the 5th.
	tasks := []graph.Task{
		task("a", 5, 7),
		dependsOn(task("b", 1, 3), graph.StartToFinish, "a"),
	}

	result := analyze(t, tasks, "")

	if !result.Tasks["b"].EarlyStart.Equal(jan(3)) || !result.Tasks["b"].EarlyFinish.Equal(jan(5)) {
		t.Errorf("expected b early window 3..5, got %s..%s",
			result.Tasks["b"].EarlyStart, result.Tasks["b"].EarlyFinish)
	}
}

func TestAnalyze_BackwardFinishToFinish(t *testing.T) {
	// A could finish by the 20th, but B must finish with it by the 5th.
	tasks := []graph.Task{
		withDeadline(task("a", 1, 5), 20),
		dependsOn(task("b", 1, 5), graph.FinishToFinish, "a"),
	}

	typed := analyzeWithDeadlines(t, tasks, RelationsTyped)
	assertDates(t, typed.Tasks["a"], 1, 5, 1, 5, true)

	fsOnly := analyzeWithDeadlines(t, tasks, RelationsFSOnly)
	assertDates(t, fsOnly.Tasks["a"], 1, 5, 16, 20, false)
}

func TestAnalyze_BackwardStartToFinish(t *testing.T) {
	// A must start no later than B's late finish on the 4th.
	tasks := []graph.Task{
		withDeadline(task("a", 1, 3), 20),
		dependsOn(task("b", 2, 4), graph.StartToFinish, "a"),
	}

	result := analyzeWithDeadlines(t, tasks, "")

	assertDates(t, result.Tasks["a"], 1, 3, 4, 6, false)
	if result.Tasks["a"].SlackDays() != 3 {
		t.Errorf("expected a slack=3 days, got %d", result.Tasks["a"].SlackDays())
	}
}

func TestAnalyze_UnknownRelationMode(t *testing.T) {
	g, err := graph.Build([]graph.Task{task("a", 1, 2)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := Analyze(g, Options{Relations: "sometimes"}); err == nil {
		t.Fatal("expected error for unknown relation mode")
	}
}

func TestAnalyze_Empty(t *testing.T) {
	result := analyze(t, nil, "")
	if len(result.Tasks) != 0 || len(result.Waves) != 0 || result.TotalDays != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	tasks := []graph.Task{
		task("a", 1, 3),
		withDeadline(dependsOn(task("b", 3, 5), graph.FinishToStart, "a"), 9),
		dependsOn(task("c", 3, 6), graph.StartToStart, "a"),
	}

	first := analyze(t, tasks, "")
	second := analyze(t, tasks, "")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results on repeated analysis")
	}
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	tasks := []graph.Task{
		task("a", 1, 3),
		withDeadline(dependsOn(task("b", 3, 5), "", "a"), 9),
	}
	snapshot := make([]graph.Task, len(tasks))
	for i, tk := range tasks {
		snapshot[i] = tk
		snapshot[i].Dependencies = append([]graph.Dependency(nil), tk.Dependencies...)
	}

	analyze(t, tasks, "")

	if !reflect.DeepEqual(tasks, snapshot) {
		t.Errorf("input tasks were modified:\n got %+v\nwant %+v", tasks, snapshot)
	}
}

func TestAnalyze_ConcurrentCallers(t *testing.T) {
	tasks := []graph.Task{
		task("a", 1, 3),
		dependsOn(task("b", 3, 5), graph.FinishToStart, "a"),
		dependsOn(task("c", 3, 6), graph.FinishToStart, "a"),
		dependsOn(task("d", 6, 8), graph.FinishToStart, "b", "c"),
	}
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want, err := Analyze(g, Options{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*CPMResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := Analyze(g, Options{})
			if err != nil {
				t.Errorf("analyze: %v", err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if !reflect.DeepEqual(r, want) {
			t.Errorf("result %d differs from sequential analysis", i)
		}
	}
}

func TestParseRelationMode(t *testing.T) {
	for _, in := range []string{"", "typed", "AS-FS", "fs-only"} {
		if _, err := ParseRelationMode(in); err != nil {
			t.Errorf("ParseRelationMode(%q): %v", in, err)
		}
	}
	if _, err := ParseRelationMode("all"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestCriticalIDs(t *testing.T) {
	tasks := []graph.Task{
		task("a", 1, 3),
		dependsOn(task("b", 3, 5), graph.FinishToStart, "a"),
	}
	result := analyze(t, tasks, "")

	ids := CriticalIDs(result)
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", ids)
	}
	ids[0] = "x"
	if result.CriticalPath[0] != "a" {
		t.Error("CriticalIDs must return a copy")
	}
	if CriticalIDs(nil) != nil {
		t.Error("expected nil for nil result")
	}
}
