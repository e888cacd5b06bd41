package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// EventBridge converts workflow.WorkflowEvent values from the engine's
// ChannelPublisher into TUI messages that the Bubble Tea runtime can
// dispatch to the progress model.
type EventBridge struct{}

// NewEventBridge creates a new EventBridge. No internal state is maintained;
// the struct exists to provide a namespaced API for the bridge helpers.
func NewEventBridge() EventBridge {
	return EventBridge{}
}

// WorkflowEventCmd returns a tea.Cmd that reads a single WorkflowEvent from
// ch and converts it to a WorkflowEventMsg. The command yields nil when the
// channel is closed or ctx is done.
//
// Issue it again after handling each message to keep draining the channel:
//
//	case WorkflowEventMsg:
//	    // handle...
//	    return m, bridge.WorkflowEventCmd(ctx, ch)
func (b EventBridge) WorkflowEventCmd(ctx context.Context, ch <-chan workflow.WorkflowEvent) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return WorkflowEventMsg{Event: ev}
		}
	}
}

// SendRunDone tells the program p that the run has finished.
func SendRunDone(p *tea.Program, result *workflow.ProcessingResult) {
	p.Send(RunDoneMsg{Result: result})
}
