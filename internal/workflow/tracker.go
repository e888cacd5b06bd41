package workflow

import (
	"sync"
	"time"
)

// Run states reported by Engine.Status.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
)

// StepRecord captures the execution details of a single step.
// Duration is serialized as nanoseconds (int64) in JSON, which is the
// default Go behavior for time.Duration.
type StepRecord struct {
	Step      string        `json:"step"`
	Success   bool          `json:"success"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Error     string        `json:"error,omitempty"`
}

// Tracker is the mutable record of a single run. The engine is its only
// writer; every accessor takes the same lock, so readers get a consistent
// view even while a parallel level is still recording results.
type Tracker struct {
	mu sync.Mutex

	runID       string
	startedAt   time.Time
	completedAt *time.Time
	completed   []string
	failed      []string
	results     map[string]*ProcessingResult
	records     []StepRecord
	success     bool

	now func() time.Time
}

// newTracker creates a Tracker whose run started at now().
func newTracker(runID string, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		runID:     runID,
		startedAt: now(),
		completed: []string{},
		failed:    []string{},
		results:   map[string]*ProcessingResult{},
		records:   []StepRecord{},
		now:       now,
	}
}

func (t *Tracker) recordSuccess(rec StepRecord, result *ProcessingResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = append(t.completed, rec.Step)
	t.results[rec.Step] = result
	t.records = append(t.records, rec)
}

func (t *Tracker) recordFailure(rec StepRecord, result *ProcessingResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = append(t.failed, rec.Step)
	t.results[rec.Step] = result
	t.records = append(t.records, rec)
}

// finish stamps completedAt and computes the overall outcome.
func (t *Tracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completedAt != nil {
		return
	}
	now := t.now()
	t.completedAt = &now
	t.success = len(t.failed) == 0
}

// RunID returns the identifier of the run.
func (t *Tracker) RunID() string {
	return t.runID
}

// StartedAt returns when the run began.
func (t *Tracker) StartedAt() time.Time {
	return t.startedAt
}

// CompletedAt returns when the run finished, or nil while it is running.
func (t *Tracker) CompletedAt() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completedAt == nil {
		return nil
	}
	c := *t.completedAt
	return &c
}

// IsRunning reports whether the run has started and not yet finished.
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.startedAt.IsZero() && t.completedAt == nil
}

// Duration returns the elapsed run time: up to now while running, up to
// completion afterwards.
func (t *Tracker) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durationLocked()
}

func (t *Tracker) durationLocked() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	if t.completedAt != nil {
		return t.completedAt.Sub(t.startedAt)
	}
	return t.now().Sub(t.startedAt)
}

// DurationSeconds is Duration expressed in seconds.
func (t *Tracker) DurationSeconds() float64 {
	return t.Duration().Seconds()
}

// SuccessRate returns completed/(completed+failed) as a percentage, or 0
// when no step has been attempted.
func (t *Tracker) SuccessRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return successRate(len(t.completed), len(t.failed))
}

func successRate(completed, failed int) float64 {
	total := completed + failed
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// CompletedSteps returns a copy of the successfully completed steps in the
// order they finished.
func (t *Tracker) CompletedSteps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.completed...)
}

// FailedSteps returns a copy of the failed steps in the order they failed.
func (t *Tracker) FailedSteps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.failed...)
}

// StepResults returns a shallow copy of the per-step result map.
func (t *Tracker) StepResults() map[string]*ProcessingResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*ProcessingResult, len(t.results))
	for k, v := range t.results {
		out[k] = v
	}
	return out
}

// Records returns a copy of the per-step execution records.
func (t *Tracker) Records() []StepRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]StepRecord{}, t.records...)
}

// OverallSuccess reports the outcome computed at completion. It is false
// while the run is in progress.
func (t *Tracker) OverallSuccess() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success
}

// Status is a point-in-time view of an engine's current or most recent run.
// Fields that only make sense once a run exists are pointers and are nil
// while the engine is idle.
type Status struct {
	State               string     `json:"status"`
	RunID               string     `json:"run_id,omitempty"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	CompletedSteps      []string   `json:"completed_steps"`
	FailedSteps         []string   `json:"failed_steps"`
	OverallSuccess      *bool      `json:"overall_success,omitempty"`
	DurationSeconds     *float64   `json:"duration_seconds,omitempty"`
	SuccessRate         *float64   `json:"success_rate,omitempty"`
	EnabledSteps        []string   `json:"enabled_steps,omitempty"`
	RegisteredExecutors []string   `json:"registered_executors"`
}

// snapshot fills the run-dependent fields of a Status under one lock.
func (t *Tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := StateCompleted
	if t.completedAt == nil {
		state = StateRunning
	}
	started := t.startedAt
	duration := t.durationLocked().Seconds()
	rate := successRate(len(t.completed), len(t.failed))

	st := Status{
		State:           state,
		RunID:           t.runID,
		StartedAt:       &started,
		CompletedSteps:  append([]string{}, t.completed...),
		FailedSteps:     append([]string{}, t.failed...),
		DurationSeconds: &duration,
		SuccessRate:     &rate,
	}
	if t.completedAt != nil {
		success := t.success
		st.OverallSuccess = &success
	}
	return st
}
