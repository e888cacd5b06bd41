package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings of the progress view.
type KeyMap struct {
	// Cancel interrupts the run: no further levels are dispatched and the
	// view closes once the in-flight steps have returned.
	Cancel key.Binding
	// Close hides the view after the run has finished.
	Close key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel run"),
		),
		Close: key.NewBinding(
			key.WithKeys("q", "esc", "enter"),
			key.WithHelp("q", "close"),
		),
	}
}
