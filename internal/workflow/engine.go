package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAlreadyRunning is reported when Execute is called while a run is in
	// progress on the same engine.
	ErrAlreadyRunning = errors.New("workflow is already running")

	// ErrStepTimeout is wrapped into the error of a step whose executor did
	// not return within its timeout.
	ErrStepTimeout = errors.New("timed out")
)

// Engine runs the steps of a Config level by level. Steps in a level are
// dispatched together, up to MaxParallelSteps at once, and the engine waits
// for all of them before starting the next level. One engine runs at most
// one workflow at a time.
type Engine struct {
	cfg       Config
	registry  *Registry
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	current *Tracker
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithRegistry supplies the executor registry. When omitted the engine
// creates an empty one, populated through Engine.Register.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

// WithPublisher attaches an EventPublisher. Publishers that also implement
// RunObserver or RetryObserver receive those notifications too.
func WithPublisher(p EventPublisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger attaches a charmbracelet/log Logger to the engine. When nil
// the engine operates silently.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source. Useful in tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine for cfg. The configuration is copied, so later
// changes to the caller's value do not affect the engine.
func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg: cfg.clone(),
		now: time.Now,
	}
	if e.cfg.MaxParallelSteps < 1 {
		e.cfg.MaxParallelSteps = 1
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

// Register stores executor for the named step, replacing any earlier one.
func (e *Engine) Register(name string, executor Executor) {
	e.registry.Register(name, executor)
	e.logDebug("executor registered", "step", name)
}

// Registry returns the engine's executor registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// Plan builds the leveled plan for requested, or for EnabledSteps when
// requested is empty, without running anything.
func (e *Engine) Plan(requested []string) (Plan, error) {
	return BuildPlan(e.cfg.Steps, e.selection(requested))
}

// Tracker returns the tracker of the current or most recent run, or nil if
// the engine has never run.
func (e *Engine) Tracker() *Tracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) selection(requested []string) []string {
	if len(requested) == 0 {
		return e.cfg.EnabledSteps
	}
	return requested
}

// Execute runs requested (EnabledSteps when empty) and returns the
// aggregate result. It never returns a nil result and never panics because
// of a step: step failures are recorded in the result.
//
// A call made while another run is in progress fails immediately with
// ErrAlreadyRunning. A plan that cannot be built fails before any step runs
// and leaves the previous tracker in place. Cancelling ctx stops dispatch of
// further levels; steps already dispatched see the cancelled context.
func (e *Engine) Execute(ctx context.Context, requested []string) *ProcessingResult {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.logWarn("execute rejected", "reason", ErrAlreadyRunning)
		return NewFailedResult(ErrAlreadyRunning.Error())
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	plan, err := e.Plan(requested)
	if err != nil {
		e.logError("planning failed", "error", err)
		result := NewFailedResult(err.Error())
		e.observeRunFinished("", result)
		return result
	}

	started := e.now()
	tracker := newTracker(newRunID(plan, started.UnixNano()), e.now)
	e.mu.Lock()
	e.current = tracker
	e.mu.Unlock()

	e.logInfo("workflow started", "run_id", tracker.RunID(), "levels", len(plan), "steps", plan.Len(), "plan", plan.String())
	e.observeRunStarted(tracker.RunID(), plan)

	var interrupted error
	for i, level := range plan {
		if err := ctx.Err(); err != nil {
			interrupted = err
			e.logWarn("workflow interrupted, not dispatching further levels", "level", i+1, "error", err)
			break
		}

		e.logInfo("executing level", "level", i+1, "steps", level)
		e.observeLevelStarted(tracker.RunID(), i+1, level)
		e.runLevel(ctx, tracker, level)

		if err := ctx.Err(); err != nil {
			interrupted = err
			if i+1 < len(plan) {
				e.logWarn("workflow interrupted, not dispatching further levels", "level", i+1, "error", err)
			}
			break
		}
		if !e.cfg.ContinueOnError && len(tracker.FailedSteps()) > 0 {
			e.logWarn("stopping workflow execution due to failures", "level", i+1, "failed", tracker.FailedSteps())
			break
		}
	}

	tracker.finish()
	result := e.buildResult(plan, tracker, interrupted)
	if result.Success {
		e.logInfo("workflow completed", "run_id", tracker.RunID(), "seconds", fmt.Sprintf("%.2f", result.ExecutionTimeSeconds))
	} else {
		e.logError("workflow failed", "run_id", tracker.RunID(), "failed", result.ItemsFailed, "errors", len(result.Errors))
	}
	e.observeRunFinished(tracker.RunID(), result)
	return result
}

// runLevel dispatches every step of level and returns once all of them have
// reached a terminal state.
func (e *Engine) runLevel(ctx context.Context, tracker *Tracker, level []string) {
	if len(level) == 1 || e.cfg.MaxParallelSteps == 1 {
		for _, name := range level {
			e.runStep(ctx, tracker, name)
		}
		return
	}

	limit := min(len(level), e.cfg.MaxParallelSteps)

	// A plain Group rather than WithContext: workers always return nil so a
	// failed step never cancels its siblings.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, name := range level {
		g.Go(func() error {
			e.runStep(ctx, tracker, name)
			return nil
		})
	}
	_ = g.Wait()
}

// runStep executes one step, with retries when enabled, and records its
// outcome in tracker.
func (e *Engine) runStep(ctx context.Context, tracker *Tracker, name string) {
	def := e.cfg.Steps[name]
	started := e.now()

	executor, err := e.registry.Get(name)
	if err != nil {
		msg := fmt.Sprintf("no executor registered for step %q", name)
		e.logError("step failed", "step", name, "error", msg)
		tracker.recordFailure(StepRecord{
			Step:      name,
			StartedAt: started,
			Error:     msg,
		}, NewFailedResult(msg))
		e.publishFailed(name, msg)
		return
	}

	e.publishStarted(name)
	e.logInfo("executing step", "step", name)

	maxAttempts := 1 + e.retryBudget(def)
	var (
		result   *ProcessingResult
		runErr   error
		attempts int
	)
	for attempts = 1; attempts <= maxAttempts; attempts++ {
		if attempts > 1 {
			e.logWarn("retrying step", "step", name, "attempt", attempts, "last_error", runErr)
			e.publishRetry(name, attempts, runErr.Error())
			if !sleepCtx(ctx, e.cfg.RetryDelay) {
				attempts--
				break
			}
		}
		result, runErr = e.invoke(ctx, name, def.Timeout, executor)
		if runErr == nil {
			break
		}
	}
	attempts = min(attempts, maxAttempts)
	elapsed := e.now().Sub(started)

	if runErr != nil {
		msg := fmt.Sprintf("step %q failed: %v", name, runErr)
		e.logError("step failed", "step", name, "attempts", attempts, "error", runErr)
		failed := NewFailedResult(msg)
		failed.ExecutionTimeSeconds = elapsed.Seconds()
		tracker.recordFailure(StepRecord{
			Step:      name,
			StartedAt: started,
			Duration:  elapsed,
			Attempts:  attempts,
			Error:     msg,
		}, failed)
		e.publishFailed(name, msg)
		return
	}

	out := normalizeResult(result)
	if out.ExecutionTimeSeconds == 0 {
		out.ExecutionTimeSeconds = elapsed.Seconds()
	}
	tracker.recordSuccess(StepRecord{
		Step:      name,
		Success:   true,
		StartedAt: started,
		Duration:  elapsed,
		Attempts:  attempts,
	}, out)
	e.logInfo("step completed", "step", name, "seconds", fmt.Sprintf("%.2f", elapsed.Seconds()))
	e.publishCompleted(name, out)
}

// retryBudget returns how many extra attempts a failed step gets.
func (e *Engine) retryBudget(def StepDefinition) int {
	if !e.cfg.RetryFailedSteps {
		return 0
	}
	if def.RetryAttempts > 0 {
		return def.RetryAttempts
	}
	return max(e.cfg.MaxRetries, 0)
}

// invoke runs executor once. With a timeout the executor runs on its own
// goroutine under a deadline context and invoke stops waiting once that
// context is done; the goroutine is left to finish in the background and its
// result is dropped. The executor sees context.DeadlineExceeded on timeout
// and context.Canceled when ctx itself is cancelled.
func (e *Engine) invoke(ctx context.Context, name string, timeout time.Duration, executor Executor) (*ProcessingResult, error) {
	if timeout <= 0 {
		return safeRun(ctx, name, executor)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *ProcessingResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := safeRun(runCtx, name, executor)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && timedOut(ctx, runCtx) {
			return nil, fmt.Errorf("%w after %s", ErrStepTimeout, timeout)
		}
		return o.result, o.err
	case <-runCtx.Done():
		if timedOut(ctx, runCtx) {
			e.logWarn("step timed out; executor may still be running", "step", name, "timeout", timeout)
			return nil, fmt.Errorf("%w after %s", ErrStepTimeout, timeout)
		}
		e.logWarn("step interrupted; executor may still be running", "step", name)
		return nil, ctx.Err()
	}
}

// timedOut reports whether runCtx ended at its own deadline rather than
// because the parent ctx was cancelled.
func timedOut(ctx, runCtx context.Context) bool {
	return ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded)
}

// safeRun calls executor.Run wrapped in a recover() block so that panicking
// executors are converted to errors rather than crashing the process.
func safeRun(ctx context.Context, name string, executor Executor) (result *ProcessingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("step %q panicked: %v", name, r)
		}
	}()
	return executor.Run(ctx)
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// normalizeResult returns a copy of r with nil slices and maps replaced by
// empty ones. A nil r becomes an empty successful result.
func normalizeResult(r *ProcessingResult) *ProcessingResult {
	if r == nil {
		return &ProcessingResult{
			Success:  true,
			Errors:   []string{},
			Warnings: []string{},
			Data:     map[string]any{},
		}
	}
	out := *r
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	return &out
}

// buildResult assembles the aggregate ProcessingResult of a finished run.
func (e *Engine) buildResult(plan Plan, tracker *Tracker, interrupted error) *ProcessingResult {
	completed := tracker.CompletedSteps()
	failed := tracker.FailedSteps()
	results := tracker.StepResults()
	duration := tracker.DurationSeconds()

	attempted := make(map[string]struct{}, len(completed)+len(failed))
	for _, s := range completed {
		attempted[s] = struct{}{}
	}
	for _, s := range failed {
		attempted[s] = struct{}{}
	}
	skipped := []string{}
	for _, s := range plan.Steps() {
		if _, ok := attempted[s]; !ok {
			skipped = append(skipped, s)
		}
	}

	out := &ProcessingResult{
		Success:              tracker.OverallSuccess() && len(skipped) == 0,
		ItemsProcessed:       len(completed),
		ItemsFailed:          len(failed),
		Errors:               []string{},
		Warnings:             []string{},
		ExecutionTimeSeconds: duration,
	}
	for _, s := range failed {
		if r := results[s]; r != nil {
			out.Errors = append(out.Errors, r.Errors...)
		}
	}
	if interrupted != nil {
		out.AddError(fmt.Sprintf("workflow interrupted: %v", interrupted))
	}
	for _, s := range skipped {
		out.AddWarning(fmt.Sprintf("step %q was not attempted", s))
	}

	levels := make([][]string, len(plan))
	for i, level := range plan {
		levels[i] = append([]string{}, level...)
	}
	out.Data = map[string]any{
		"run_id":           tracker.RunID(),
		"plan":             levels,
		"plan_fingerprint": plan.Fingerprint(),
		"completed_steps":  completed,
		"failed_steps":     failed,
		"skipped_steps":    skipped,
		"step_results":     results,
		"execution_summary": map[string]any{
			"total_steps":      len(completed) + len(failed),
			"success_rate":     successRate(len(completed), len(failed)),
			"duration_seconds": duration,
		},
	}
	return out
}

// Status reports the state of the current or most recent run. It is safe to
// call while a run is in progress.
func (e *Engine) Status() Status {
	tracker := e.Tracker()
	registered := e.registry.List()
	if tracker == nil {
		return Status{
			State:               StateIdle,
			CompletedSteps:      []string{},
			FailedSteps:         []string{},
			EnabledSteps:        append([]string{}, e.cfg.EnabledSteps...),
			RegisteredExecutors: registered,
		}
	}
	st := tracker.snapshot()
	st.EnabledSteps = append([]string{}, e.cfg.EnabledSteps...)
	st.RegisteredExecutors = registered
	return st
}

// ---------------------------------------------------------------------------
// Publisher plumbing. Every call is isolated with recover so a misbehaving
// publisher cannot abort the run.
// ---------------------------------------------------------------------------

func (e *Engine) publish(kind string, fn func()) {
	if e.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logWarn("event publisher panicked", "event", kind, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) publishStarted(step string) {
	e.publish(WEStepStarted, func() { e.publisher.StepStarted(step) })
}

func (e *Engine) publishCompleted(step string, result *ProcessingResult) {
	e.publish(WEStepCompleted, func() { e.publisher.StepCompleted(step, result) })
}

func (e *Engine) publishFailed(step, msg string) {
	e.publish(WEStepFailed, func() { e.publisher.StepFailed(step, msg) })
}

func (e *Engine) publishRetry(step string, attempt int, lastErr string) {
	ro, ok := e.publisher.(RetryObserver)
	if !ok {
		return
	}
	e.publish(WEStepRetry, func() { ro.StepRetry(step, attempt, lastErr) })
}

func (e *Engine) observeRunStarted(runID string, plan Plan) {
	ro, ok := e.publisher.(RunObserver)
	if !ok {
		return
	}
	e.publish(WEWorkflowStarted, func() { ro.RunStarted(runID, plan) })
}

func (e *Engine) observeLevelStarted(runID string, level int, steps []string) {
	ro, ok := e.publisher.(RunObserver)
	if !ok {
		return
	}
	e.publish(WELevelStarted, func() { ro.LevelStarted(runID, level, steps) })
}

func (e *Engine) observeRunFinished(runID string, result *ProcessingResult) {
	ro, ok := e.publisher.(RunObserver)
	if !ok {
		return
	}
	e.publish(WEWorkflowFailed, func() { ro.RunFinished(runID, result) })
}

// ---------------------------------------------------------------------------
// Logging helpers. All are no-ops without a logger.
// ---------------------------------------------------------------------------

func (e *Engine) logDebug(msg string, kvs ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, kvs...)
	}
}

func (e *Engine) logInfo(msg string, kvs ...any) {
	if e.logger != nil {
		e.logger.Info(msg, kvs...)
	}
}

func (e *Engine) logWarn(msg string, kvs ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, kvs...)
	}
}

func (e *Engine) logError(msg string, kvs ...any) {
	if e.logger != nil {
		e.logger.Error(msg, kvs...)
	}
}
