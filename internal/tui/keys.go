package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings shared by wizards. Letter keys stay free
// for text input.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// InputHelpText returns help text for input fields.
func (k KeyMap) InputHelpText() string {
	return "enter continue • empty name finishes • esc cancel"
}

// SelectHelpText returns help text for option lists.
func (k KeyMap) SelectHelpText() string {
	return "↑/↓ navigate • enter select • esc cancel"
}
