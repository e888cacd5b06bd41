// Package tui renders run progress and the init wizard.
package tui
