package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/dbobj/internal/tui"
)

// TextField is a labeled single-line input with optional validation.
type TextField struct {
	label     string
	input     textinput.Model
	validator func(string) error
	err       error
}

func NewTextField(label, placeholder string) TextField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 40
	in.Prompt = tui.SymbolCursor + " "
	return TextField{label: label, input: in}
}

// WithValidator sets a check that Validate runs on non-empty values.
func (t TextField) WithValidator(fn func(string) error) TextField {
	t.validator = fn
	return t
}

func (t *TextField) Focus() tea.Cmd { return t.input.Focus() }

func (t *TextField) Blur() { t.input.Blur() }

// Reset clears the value and any error.
func (t *TextField) Reset() {
	t.input.Reset()
	t.err = nil
}

func (t TextField) Update(msg tea.Msg) (TextField, tea.Cmd) {
	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

func (t TextField) View() string {
	style := tui.LabelStyle
	if t.input.Focused() {
		style = tui.FocusStyle
	}
	view := tui.LabelStyle.Render(t.label) + "\n" + style.Render(t.input.View())
	if t.err != nil {
		view += "\n" + tui.ErrorStyle.Render(t.err.Error())
	}
	return view
}

// Value returns the input with surrounding spaces removed.
func (t TextField) Value() string {
	return strings.TrimSpace(t.input.Value())
}

// Validate runs the validator and keeps the result for View.
func (t *TextField) Validate() error {
	t.err = nil
	if t.validator != nil && t.Value() != "" {
		t.err = t.validator(t.Value())
	}
	return t.err
}

// SetError shows err until the next Validate or Reset.
func (t *TextField) SetError(err error) { t.err = err }
