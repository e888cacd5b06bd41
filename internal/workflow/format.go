package workflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PlanFormatter renders plans and run results for terminal output.
// When styled is true, lipgloss ANSI styling is applied; when false, plain
// text is emitted. Output is written to the embedded io.Writer via Write.
type PlanFormatter struct {
	writer io.Writer
	styled bool
}

// NewPlanFormatter creates a new PlanFormatter writing to w.
func NewPlanFormatter(w io.Writer, styled bool) *PlanFormatter {
	return &PlanFormatter{writer: w, styled: styled}
}

// Write writes the formatted string s to f.writer.
func (f *PlanFormatter) Write(s string) {
	fmt.Fprint(f.writer, s)
}

type formatStyles struct {
	header  lipgloss.Style
	level   lipgloss.Style
	step    lipgloss.Style
	detail  lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

func (f *PlanFormatter) styles() formatStyles {
	s := formatStyles{
		header:  lipgloss.NewStyle(),
		level:   lipgloss.NewStyle(),
		step:    lipgloss.NewStyle(),
		detail:  lipgloss.NewStyle(),
		warn:    lipgloss.NewStyle(),
		success: lipgloss.NewStyle(),
		failure: lipgloss.NewStyle(),
	}
	if f.styled {
		s.header = s.header.Bold(true).Foreground(lipgloss.Color("14")) // cyan
		s.level = s.level.Bold(true).Foreground(lipgloss.Color("12"))   // bright blue
		s.step = s.step.Bold(true)
		s.detail = s.detail.Faint(true)
		s.warn = s.warn.Foreground(lipgloss.Color("11"))    // yellow
		s.success = s.success.Foreground(lipgloss.Color("10")) // green
		s.failure = s.failure.Foreground(lipgloss.Color("9"))  // red
	}
	return s
}

func writeHeader(sb *strings.Builder, style lipgloss.Style, header string) {
	sb.WriteString(style.Render(header))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(header)))
	sb.WriteString("\n\n")
}

// FormatPlan renders plan level by level. Steps are numbered in execution
// order; each line carries the step's description, and indented detail lines
// show dependencies, timeouts and retry budgets from cfg. When registry is
// non-nil, steps without an executor are flagged. The method returns a
// formatted string; it does not write to f.writer.
func (f *PlanFormatter) FormatPlan(plan Plan, cfg Config, registry *Registry) string {
	if len(plan) == 0 {
		return "No steps selected.\n"
	}
	st := f.styles()

	var sb strings.Builder
	writeHeader(&sb, st.header, "Workflow Plan")

	n := 0
	for i, level := range plan {
		label := fmt.Sprintf("Level %d (%d step", i+1, len(level))
		if len(level) != 1 {
			label += "s"
		}
		label += ")"
		if len(level) > 1 {
			label += fmt.Sprintf(", up to %d in parallel", min(len(level), max(cfg.MaxParallelSteps, 1)))
		}
		sb.WriteString(st.level.Render(label))
		sb.WriteString("\n")

		for _, name := range level {
			n++
			def := cfg.Steps[name]
			desc := def.Description
			if desc == "" {
				desc = fmt.Sprintf("step %d", n)
			}
			sb.WriteString(fmt.Sprintf("  %d. %s\n", n, st.step.Render(name+": "+desc)))

			if def.HasDependencies() {
				sb.WriteString(st.detail.Render("     -> depends on: " + strings.Join(def.Dependencies, ", ")))
				sb.WriteString("\n")
			}
			if def.Timeout > 0 {
				sb.WriteString(st.detail.Render("     -> timeout: " + def.Timeout.String()))
				sb.WriteString("\n")
			}
			if cfg.RetryFailedSteps {
				budget := def.RetryAttempts
				if budget == 0 {
					budget = max(cfg.MaxRetries, 0)
				}
				if budget > 0 {
					sb.WriteString(st.detail.Render(fmt.Sprintf("     -> retries: %d", budget)))
					sb.WriteString("\n")
				}
			}
			if registry != nil && !registry.Has(name) {
				sb.WriteString(st.warn.Render("     [NO EXECUTOR]"))
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	mode := "stop on first failing level"
	if cfg.ContinueOnError {
		mode = "continue on error"
	}
	sb.WriteString(fmt.Sprintf("Total: %d steps in %d levels (%s)\n", plan.Len(), len(plan), mode))
	return sb.String()
}

// FormatResult renders the aggregate result of a run. It understands the
// Data keys written by Engine.Execute and degrades gracefully when they are
// absent, as for planning failures.
func (f *PlanFormatter) FormatResult(result *ProcessingResult) string {
	if result == nil {
		return "No result.\n"
	}
	st := f.styles()

	var sb strings.Builder
	verdict := st.success.Render("SUCCESS")
	if !result.Success {
		verdict = st.failure.Render("FAILED")
	}
	header := "Workflow Result"
	sb.WriteString(st.header.Render(header))
	sb.WriteString(": ")
	sb.WriteString(verdict)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(header)))
	sb.WriteString("\n\n")

	if runID, ok := result.Data["run_id"].(string); ok && runID != "" {
		sb.WriteString(fmt.Sprintf("  Run:          %s\n", runID))
	}
	writeStepList(&sb, "Completed", stringsFromData(result.Data, "completed_steps"))
	writeStepList(&sb, "Failed", stringsFromData(result.Data, "failed_steps"))
	writeStepList(&sb, "Skipped", stringsFromData(result.Data, "skipped_steps"))
	if summary, ok := result.Data["execution_summary"].(map[string]any); ok {
		if rate, ok := summary["success_rate"].(float64); ok {
			sb.WriteString(fmt.Sprintf("  Success rate: %.1f%%\n", rate))
		}
	}
	sb.WriteString(fmt.Sprintf("  Duration:     %.2fs\n", result.ExecutionTimeSeconds))

	if len(result.Errors) > 0 {
		sb.WriteString("\n")
		sb.WriteString(st.failure.Render(fmt.Sprintf("Errors (%d):", len(result.Errors))))
		sb.WriteString("\n")
		for _, e := range result.Errors {
			sb.WriteString("  - " + e + "\n")
		}
	}
	if len(result.Warnings) > 0 {
		sb.WriteString("\n")
		sb.WriteString(st.warn.Render(fmt.Sprintf("Warnings (%d):", len(result.Warnings))))
		sb.WriteString("\n")
		for _, w := range result.Warnings {
			sb.WriteString("  - " + w + "\n")
		}
	}
	return sb.String()
}

func writeStepList(sb *strings.Builder, label string, steps []string) {
	if steps == nil {
		return
	}
	line := "-"
	if len(steps) > 0 {
		line = strings.Join(steps, ", ")
	}
	sb.WriteString(fmt.Sprintf("  %-13s %s\n", fmt.Sprintf("%s (%d):", label, len(steps)), line))
}

// stringsFromData reads a string list from a result's Data map. It accepts
// both []string, as produced by the engine, and []any, as produced by a JSON
// round trip. A missing key yields nil.
func stringsFromData(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
