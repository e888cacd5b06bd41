package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/logging"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// ProgressConfig holds what the progress view needs to follow a run.
type ProgressConfig struct {
	// Title is shown above the plan, e.g. the project name.
	Title string
	// Plan is the leveled plan being executed.
	Plan workflow.Plan
	// Events is the channel the engine's ChannelPublisher writes to.
	Events <-chan workflow.WorkflowEvent
	// Cancel interrupts the run when the user presses ctrl+c. May be nil.
	Cancel context.CancelFunc
}

// ProgressModel is the Bubble Tea model of the live progress view. It lists
// every planned step by level with a spinner next to the running ones and
// updates as engine events arrive.
type ProgressModel struct {
	ctx    context.Context
	cfg    ProgressConfig
	theme  Theme
	keys   KeyMap
	bridge EventBridge

	spinner  spinner.Model
	states   map[string]StepState
	errs     map[string]string
	attempts map[string]int

	runID     string
	level     int
	started   time.Time
	finished  time.Time
	done      bool
	cancelled bool
	result    *workflow.ProcessingResult
}

// NewProgressModel builds the model for cfg. ctx bounds the event bridge.
func NewProgressModel(ctx context.Context, cfg ProgressConfig) ProgressModel {
	theme := DefaultTheme()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Title

	states := make(map[string]StepState, cfg.Plan.Len())
	for _, name := range cfg.Plan.Steps() {
		states[name] = StepPending
	}

	return ProgressModel{
		ctx:      ctx,
		cfg:      cfg,
		theme:    theme,
		keys:     DefaultKeyMap(),
		bridge:   NewEventBridge(),
		spinner:  sp,
		states:   states,
		errs:     make(map[string]string),
		attempts: make(map[string]int),
	}
}

// Init starts the spinner and the event bridge.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.WorkflowEventCmd(m.ctx, m.cfg.Events))
}

// Update applies engine events, spinner ticks and key presses.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case WorkflowEventMsg:
		m.apply(msg.Event)
		if m.done {
			return m, nil
		}
		return m, m.bridge.WorkflowEventCmd(m.ctx, m.cfg.Events)

	case RunDoneMsg:
		m.drainEvents()
		m.done = true
		m.result = msg.Result
		if m.finished.IsZero() {
			m.finished = time.Now()
		}
		for name, st := range m.states {
			if !st.Terminal() {
				m.states[name] = StepSkipped
			}
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelled {
				m.cancelled = true
				if m.cfg.Cancel != nil {
					m.cfg.Cancel()
				}
			}
			return m, nil
		case key.Matches(msg, m.keys.Close):
			if m.done {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// apply folds one engine event into the model.
func (m *ProgressModel) apply(ev workflow.WorkflowEvent) {
	switch ev.Type {
	case workflow.WEWorkflowStarted:
		m.runID = ev.RunID
		m.started = ev.Timestamp
		for _, name := range ev.Steps {
			if _, ok := m.states[name]; !ok {
				m.states[name] = StepPending
			}
		}
	case workflow.WELevelStarted:
		m.level = ev.Level
	case workflow.WEStepStarted:
		m.states[ev.Step] = StepRunning
	case workflow.WEStepRetry:
		m.states[ev.Step] = StepRetrying
		m.attempts[ev.Step] = ev.Attempt
		m.errs[ev.Step] = ev.Error
	case workflow.WEStepCompleted:
		m.states[ev.Step] = StepCompleted
		delete(m.errs, ev.Step)
	case workflow.WEStepFailed:
		m.states[ev.Step] = StepFailed
		m.errs[ev.Step] = ev.Error
	case workflow.WEWorkflowCompleted, workflow.WEWorkflowFailed:
		m.finished = ev.Timestamp
	}
}

// drainEvents applies events still buffered in the channel. The engine has
// returned by the time RunDoneMsg arrives, so nothing new will be written.
func (m *ProgressModel) drainEvents() {
	if m.cfg.Events == nil {
		return
	}
	for {
		select {
		case ev, ok := <-m.cfg.Events:
			if !ok {
				return
			}
			m.apply(ev)
		default:
			return
		}
	}
}

// State returns the display state of step.
func (m ProgressModel) State(step string) StepState {
	return m.states[step]
}

// Done reports whether the run has finished.
func (m ProgressModel) Done() bool {
	return m.done
}

// View renders the plan with per-step state.
func (m ProgressModel) View() string {
	var sb strings.Builder

	title := "Workflow"
	if m.cfg.Title != "" {
		title = m.cfg.Title
	}
	header := m.theme.Title.Render(title)
	if m.runID != "" {
		header += m.theme.Detail.Render("  " + m.runID)
	}
	sb.WriteString(header)
	sb.WriteString("\n\n")

	for i, level := range m.cfg.Plan {
		label := fmt.Sprintf("Level %d", i+1)
		if !m.done && m.level == i+1 {
			label += " (running)"
		}
		sb.WriteString(m.theme.LevelLabel.Render(label))
		sb.WriteString("\n")
		for _, name := range level {
			m.writeStep(&sb, name)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(m.footer())
	sb.WriteString("\n")
	return sb.String()
}

func (m ProgressModel) writeStep(sb *strings.Builder, name string) {
	st := m.states[name]
	style := m.theme.StatusStyle(st)

	var icon string
	switch st {
	case StepRunning:
		icon = m.spinner.View()
	case StepRetrying:
		icon = "↻"
	case StepCompleted:
		icon = "✓"
	case StepFailed:
		icon = "✗"
	case StepSkipped:
		icon = "-"
	default:
		icon = "○"
	}

	line := fmt.Sprintf("  %s %s %s", icon, style.Render(name), m.theme.Detail.Render(st.String()))
	if st == StepRetrying {
		line += m.theme.Detail.Render(fmt.Sprintf(" (attempt %d)", m.attempts[name]))
	}
	sb.WriteString(line)
	sb.WriteString("\n")
	if msg := m.errs[name]; msg != "" && (st == StepFailed || st == StepRetrying) {
		sb.WriteString("      ")
		sb.WriteString(m.theme.ErrorText.Render(msg))
		sb.WriteString("\n")
	}
}

func (m ProgressModel) footer() string {
	finished := 0
	for _, st := range m.states {
		if st == StepCompleted || st == StepFailed {
			finished++
		}
	}
	counts := fmt.Sprintf("%d/%d steps finished", finished, len(m.states))

	if !m.done {
		status := counts
		if m.cancelled {
			status += ", cancelling after running steps return"
		}
		help := m.theme.Help.Render(m.keys.Cancel.Help().Key + " " + m.keys.Cancel.Help().Desc)
		return m.theme.Detail.Render(status) + "  " + help
	}

	outcome := m.theme.StepCompleted.Render("SUCCESS")
	if m.result == nil || !m.result.Success {
		outcome = m.theme.StepFailed.Render("FAILED")
	}
	if !m.started.IsZero() && !m.finished.IsZero() {
		counts += fmt.Sprintf(" in %s", m.finished.Sub(m.started).Round(time.Millisecond))
	}
	return outcome + m.theme.Detail.Render("  "+counts)
}

// RunProgress runs the progress view while run executes the workflow, and
// returns run's result. The view closes by itself when run returns. Program
// options (input, output, renderer) can be passed for non-terminal use.
// run's result is returned even when the view fails to start.
func RunProgress(ctx context.Context, cfg ProgressConfig, run func() *workflow.ProcessingResult, opts ...tea.ProgramOption) (*workflow.ProcessingResult, error) {
	logger := logging.New("tui")
	logger.Debug("starting progress view", "steps", cfg.Plan.Len(), "levels", len(cfg.Plan))

	p := tea.NewProgram(NewProgressModel(ctx, cfg), opts...)

	resultCh := make(chan *workflow.ProcessingResult, 1)
	go func() {
		result := run()
		resultCh <- result
		SendRunDone(p, result)
	}()

	_, err := p.Run()
	result := <-resultCh
	if err != nil {
		return result, fmt.Errorf("running progress view: %w", err)
	}
	return result, nil
}
