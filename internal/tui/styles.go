package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// ---------------------------------------------------------------------------
// Color Palette
// ---------------------------------------------------------------------------

// ColorPrimary is the main accent color used for titles and the spinner.
var ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}

// ColorAccent is a green-teal accent for running steps.
var ColorAccent = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}

// ColorSuccess represents completed steps (green).
var ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// ColorWarning represents retries and skipped steps (amber).
var ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// ColorError represents failures (red).
var ColorError = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// ColorMuted is a subdued foreground color for secondary text.
var ColorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// Theme holds the Lipgloss styles used by the progress view.
type Theme struct {
	Title      lipgloss.Style
	LevelLabel lipgloss.Style

	StepPending   lipgloss.Style
	StepRunning   lipgloss.Style
	StepRetrying  lipgloss.Style
	StepCompleted lipgloss.Style
	StepFailed    lipgloss.Style
	StepSkipped   lipgloss.Style

	Detail    lipgloss.Style
	ErrorText lipgloss.Style
	Help      lipgloss.Style
}

// DefaultTheme returns the progress view theme with adaptive colors.
func DefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		LevelLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMuted),

		StepPending: lipgloss.NewStyle().
			Foreground(ColorMuted),

		StepRunning: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent),

		StepRetrying: lipgloss.NewStyle().
			Foreground(ColorWarning),

		StepCompleted: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		StepFailed: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),

		StepSkipped: lipgloss.NewStyle().
			Foreground(ColorWarning),

		Detail: lipgloss.NewStyle().
			Foreground(ColorMuted),

		ErrorText: lipgloss.NewStyle().
			Foreground(ColorError),

		Help: lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true),
	}
}

// StatusStyle returns the style for a step in the given state.
func (t Theme) StatusStyle(s StepState) lipgloss.Style {
	switch s {
	case StepRunning:
		return t.StepRunning
	case StepRetrying:
		return t.StepRetrying
	case StepCompleted:
		return t.StepCompleted
	case StepFailed:
		return t.StepFailed
	case StepSkipped:
		return t.StepSkipped
	default:
		return t.StepPending
	}
}
