package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/dbobj/internal/tui"
)

// Option is one choice of a Selector. Description is shown under the label.
type Option struct {
	Label       string
	Description string
	Value       string
}

// Selector picks one option from a list. It is embedded in a parent model:
// choosing an option sets Submitted instead of quitting the program.
type Selector struct {
	title     string
	options   []Option
	cursor    int
	keys      tui.KeyMap
	submitted bool
}

func NewSelector(title string, options []Option) Selector {
	return Selector{title: title, options: options, keys: tui.DefaultKeyMap()}
}

// Update moves the cursor or records the choice.
func (s Selector) Update(msg tea.Msg) (Selector, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || s.submitted {
		return s, nil
	}
	switch {
	case key.Matches(km, s.keys.Up):
		s.cursor = max(s.cursor-1, 0)
	case key.Matches(km, s.keys.Down):
		s.cursor = min(s.cursor+1, len(s.options)-1)
	case key.Matches(km, s.keys.Select):
		s.submitted = len(s.options) > 0
	}
	return s, nil
}

func (s Selector) View() string {
	var b strings.Builder
	b.WriteString(tui.LabelStyle.Render(s.title))
	b.WriteByte('\n')
	for i, opt := range s.options {
		if i == s.cursor {
			b.WriteString(tui.ChosenStyle.Render(tui.SymbolCursor + " " + opt.Label))
		} else {
			b.WriteString(tui.LabelStyle.Render("  " + opt.Label))
		}
		b.WriteByte('\n')
		if opt.Description != "" {
			b.WriteString(tui.NoteStyle.Render(opt.Description))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Submitted reports whether an option was chosen.
func (s Selector) Submitted() bool { return s.submitted }

// Value returns the chosen option's value, or "" before submission.
func (s Selector) Value() string {
	if !s.submitted {
		return ""
	}
	return s.options[s.cursor].Value
}
