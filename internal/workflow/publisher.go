package workflow

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// EventPublisher is notified as steps move through a run. Calls may arrive
// concurrently from the workers of a parallel level, in no guaranteed order.
// The engine recovers publisher panics, so a faulty publisher never aborts a
// run.
type EventPublisher interface {
	StepStarted(step string)
	StepCompleted(step string, result *ProcessingResult)
	StepFailed(step string, errMsg string)
}

// RunObserver is an optional extension of EventPublisher for run-level
// milestones.
type RunObserver interface {
	RunStarted(runID string, plan Plan)
	LevelStarted(runID string, level int, steps []string)
	RunFinished(runID string, result *ProcessingResult)
}

// RetryObserver is an optional extension of EventPublisher notified before
// each retry attempt.
type RetryObserver interface {
	StepRetry(step string, attempt int, lastErr string)
}

// ChannelPublisher converts notifications into WorkflowEvents and sends them
// on a channel. Sends are non-blocking so a slow consumer never stalls
// execution; events that do not fit are dropped.
type ChannelPublisher struct {
	ch    chan<- WorkflowEvent
	runID string
	now   func() time.Time
}

var (
	_ EventPublisher = (*ChannelPublisher)(nil)
	_ RunObserver    = (*ChannelPublisher)(nil)
	_ RetryObserver  = (*ChannelPublisher)(nil)
)

// NewChannelPublisher returns a publisher writing to ch. A nil channel makes
// every call a no-op.
func NewChannelPublisher(ch chan<- WorkflowEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch, now: time.Now}
}

// RunStarted implements RunObserver.
func (p *ChannelPublisher) RunStarted(runID string, plan Plan) {
	p.runID = runID
	p.emit(WorkflowEvent{
		Type:    WEWorkflowStarted,
		Steps:   plan.Steps(),
		Message: fmt.Sprintf("workflow started with %d step(s) in %d level(s)", plan.Len(), len(plan)),
	})
}

// LevelStarted implements RunObserver.
func (p *ChannelPublisher) LevelStarted(_ string, level int, steps []string) {
	p.emit(WorkflowEvent{
		Type:    WELevelStarted,
		Level:   level,
		Steps:   append([]string(nil), steps...),
		Message: fmt.Sprintf("level %d started", level),
	})
}

// RunFinished implements RunObserver. A run that failed to plan has an
// empty runID, and its event carries none.
func (p *ChannelPublisher) RunFinished(runID string, result *ProcessingResult) {
	p.runID = runID
	if result != nil && result.Success {
		p.emit(WorkflowEvent{
			Type:    WEWorkflowCompleted,
			Message: fmt.Sprintf("workflow completed: %d step(s) succeeded", result.ItemsProcessed),
		})
		return
	}
	ev := WorkflowEvent{Type: WEWorkflowFailed, Message: "workflow failed"}
	if result != nil {
		ev.Message = fmt.Sprintf("workflow failed: %d step(s) failed", result.ItemsFailed)
		if len(result.Errors) > 0 {
			ev.Error = result.Errors[0]
		}
	}
	p.emit(ev)
}

// StepStarted implements EventPublisher.
func (p *ChannelPublisher) StepStarted(step string) {
	p.emit(WorkflowEvent{
		Type:    WEStepStarted,
		Step:    step,
		Message: fmt.Sprintf("step %q started", step),
	})
}

// StepCompleted implements EventPublisher.
func (p *ChannelPublisher) StepCompleted(step string, result *ProcessingResult) {
	msg := fmt.Sprintf("step %q completed", step)
	if result != nil {
		msg = fmt.Sprintf("step %q completed (%d processed, %d failed)", step, result.ItemsProcessed, result.ItemsFailed)
	}
	p.emit(WorkflowEvent{
		Type:    WEStepCompleted,
		Step:    step,
		Message: msg,
	})
}

// StepFailed implements EventPublisher.
func (p *ChannelPublisher) StepFailed(step string, errMsg string) {
	p.emit(WorkflowEvent{
		Type:    WEStepFailed,
		Step:    step,
		Message: fmt.Sprintf("step %q failed", step),
		Error:   errMsg,
	})
}

// StepRetry implements RetryObserver.
func (p *ChannelPublisher) StepRetry(step string, attempt int, lastErr string) {
	p.emit(WorkflowEvent{
		Type:    WEStepRetry,
		Step:    step,
		Attempt: attempt,
		Message: fmt.Sprintf("retrying step %q (attempt %d)", step, attempt),
		Error:   lastErr,
	})
}

func (p *ChannelPublisher) emit(ev WorkflowEvent) {
	if p.ch == nil {
		return
	}
	ev.RunID = p.runID
	ev.Timestamp = p.now()
	select {
	case p.ch <- ev:
	default:
	}
}

// LogPublisher writes every notification to a charmbracelet/log Logger.
type LogPublisher struct {
	logger *log.Logger
}

var (
	_ EventPublisher = (*LogPublisher)(nil)
	_ RetryObserver  = (*LogPublisher)(nil)
)

// NewLogPublisher returns a publisher that logs to logger. A nil logger makes
// every call a no-op.
func NewLogPublisher(logger *log.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// StepStarted implements EventPublisher.
func (p *LogPublisher) StepStarted(step string) {
	if p.logger == nil {
		return
	}
	p.logger.Info("step started", "step", step)
}

// StepCompleted implements EventPublisher.
func (p *LogPublisher) StepCompleted(step string, result *ProcessingResult) {
	if p.logger == nil {
		return
	}
	if result == nil {
		p.logger.Info("step completed", "step", step)
		return
	}
	p.logger.Info("step completed",
		"step", step,
		"processed", result.ItemsProcessed,
		"failed", result.ItemsFailed,
		"seconds", fmt.Sprintf("%.2f", result.ExecutionTimeSeconds),
	)
}

// StepFailed implements EventPublisher.
func (p *LogPublisher) StepFailed(step string, errMsg string) {
	if p.logger == nil {
		return
	}
	p.logger.Error("step failed", "step", step, "error", errMsg)
}

// StepRetry implements RetryObserver.
func (p *LogPublisher) StepRetry(step string, attempt int, lastErr string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("retrying step", "step", step, "attempt", attempt, "last_error", lastErr)
}

// MultiPublisher fans notifications out to several publishers in order.
// Optional observer interfaces are forwarded to the members that implement
// them.
type MultiPublisher []EventPublisher

var (
	_ EventPublisher = MultiPublisher(nil)
	_ RunObserver    = MultiPublisher(nil)
	_ RetryObserver  = MultiPublisher(nil)
)

// StepStarted implements EventPublisher.
func (m MultiPublisher) StepStarted(step string) {
	for _, p := range m {
		if p != nil {
			p.StepStarted(step)
		}
	}
}

// StepCompleted implements EventPublisher.
func (m MultiPublisher) StepCompleted(step string, result *ProcessingResult) {
	for _, p := range m {
		if p != nil {
			p.StepCompleted(step, result)
		}
	}
}

// StepFailed implements EventPublisher.
func (m MultiPublisher) StepFailed(step string, errMsg string) {
	for _, p := range m {
		if p != nil {
			p.StepFailed(step, errMsg)
		}
	}
}

// StepRetry implements RetryObserver.
func (m MultiPublisher) StepRetry(step string, attempt int, lastErr string) {
	for _, p := range m {
		if ro, ok := p.(RetryObserver); ok {
			ro.StepRetry(step, attempt, lastErr)
		}
	}
}

// RunStarted implements RunObserver.
func (m MultiPublisher) RunStarted(runID string, plan Plan) {
	for _, p := range m {
		if ro, ok := p.(RunObserver); ok {
			ro.RunStarted(runID, plan)
		}
	}
}

// LevelStarted implements RunObserver.
func (m MultiPublisher) LevelStarted(runID string, level int, steps []string) {
	for _, p := range m {
		if ro, ok := p.(RunObserver); ok {
			ro.LevelStarted(runID, level, steps)
		}
	}
}

// RunFinished implements RunObserver.
func (m MultiPublisher) RunFinished(runID string, result *ProcessingResult) {
	for _, p := range m {
		if ro, ok := p.(RunObserver); ok {
			ro.RunFinished(runID, result)
		}
	}
}
