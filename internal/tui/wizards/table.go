package wizards

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/dbobj/internal/tui"
	"github.com/vvka-141/dbobj/internal/tui/components"
)

// DefaultColumnType is used when the type prompt is left empty.
const DefaultColumnType = "text"

// TableResult holds the outcome of the create-table wizard. Each field is a
// column definition in the form accepted by create-table --field.
type TableResult struct {
	Cancelled bool
	Fields    []string
}

type tableStep int

const (
	tableStepName tableStep = iota
	tableStepType
	tableStepConstraint
	tableStepDone
)

var columnName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func constraintOptions() []components.Option {
	return []components.Option{
		{Label: "none", Value: ""},
		{Label: "primary key", Value: "PRIMARY KEY"},
		{Label: "not null", Value: "NOT NULL"},
		{Label: "unique", Value: "UNIQUE"},
		{Label: "not null unique", Value: "NOT NULL UNIQUE", Description: "usable as a replica identity"},
	}
}

// TableWizard collects column definitions one at a time. An empty column
// name finishes the table.
type TableWizard struct {
	table      string
	step       tableStep
	name       components.TextField
	typ        components.TextField
	constraint components.Selector
	fields     []string
	keys       tui.KeyMap
	result     TableResult
}

// NewTableWizard creates the wizard for table.
func NewTableWizard(table string) TableWizard {
	w := TableWizard{
		table: table,
		name: components.NewTextField("Column name", "leave empty to finish").
			WithValidator(func(s string) error {
				if !columnName.MatchString(s) {
					return fmt.Errorf("%q is not a valid column name", s)
				}
				return nil
			}),
		typ:        components.NewTextField("Column type", DefaultColumnType),
		constraint: components.NewSelector("Constraint", constraintOptions()),
		keys:       tui.DefaultKeyMap(),
	}
	w.name.Focus()
	return w
}

// Init implements tea.Model.
func (w TableWizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w TableWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return w, nil
	}
	if key.Matches(km, w.keys.Cancel) {
		w.result = TableResult{Cancelled: true}
		w.step = tableStepDone
		return w, tea.Quit
	}

	var cmd tea.Cmd
	switch w.step {
	case tableStepName:
		if key.Matches(km, w.keys.Select) {
			return w.submitName()
		}
		w.name, cmd = w.name.Update(km)

	case tableStepType:
		if key.Matches(km, w.keys.Select) {
			w.typ.Blur()
			w.step = tableStepConstraint
			return w, nil
		}
		w.typ, cmd = w.typ.Update(km)

	case tableStepConstraint:
		w.constraint, cmd = w.constraint.Update(km)
		if w.constraint.Submitted() {
			w.addField()
			cmd = w.name.Focus()
			return w, cmd
		}
	}
	return w, cmd
}

func (w TableWizard) submitName() (tea.Model, tea.Cmd) {
	if w.name.Value() == "" {
		if len(w.fields) == 0 {
			w.name.SetError(errors.New("add at least one column"))
			return w, nil
		}
		w.result = TableResult{Fields: w.fields}
		w.step = tableStepDone
		return w, tea.Quit
	}
	if err := w.name.Validate(); err != nil {
		return w, nil
	}
	w.name.Blur()
	w.step = tableStepType
	cmd := w.typ.Focus()
	return w, cmd
}

func (w *TableWizard) addField() {
	typ := w.typ.Value()
	if typ == "" {
		typ = DefaultColumnType
	}
	parts := []string{w.name.Value(), typ}
	if c := w.constraint.Value(); c != "" {
		parts = append(parts, c)
	}
	w.fields = append(w.fields, strings.Join(parts, " "))

	w.name.Reset()
	w.typ.Reset()
	w.constraint = components.NewSelector("Constraint", constraintOptions())
	w.step = tableStepName
}

// View implements tea.Model.
func (w TableWizard) View() string {
	if w.step == tableStepDone {
		return ""
	}
	var b strings.Builder
	b.WriteString(tui.TitleStyle.Render("New table " + w.table))
	b.WriteString("\n\n")
	for _, f := range w.fields {
		b.WriteString(tui.SuccessStyle.Render(tui.SymbolCheck + " " + f))
		b.WriteString("\n")
	}
	if len(w.fields) > 0 {
		b.WriteString("\n")
	}

	switch w.step {
	case tableStepName:
		b.WriteString(w.name.View())
		b.WriteString(tui.HelpStyle.Render("\n" + w.keys.InputHelpText()))
	case tableStepType:
		b.WriteString(tui.SubtitleStyle.Render("Column " + w.name.Value()))
		b.WriteString("\n")
		b.WriteString(w.typ.View())
		b.WriteString(tui.HelpStyle.Render("\n" + w.keys.InputHelpText()))
	case tableStepConstraint:
		b.WriteString(tui.SubtitleStyle.Render("Column " + w.name.Value()))
		b.WriteString("\n")
		b.WriteString(w.constraint.View())
		b.WriteString(tui.HelpStyle.Render(w.keys.SelectHelpText()))
	}
	return b.String()
}

// Result returns the outcome once the program has exited.
func (w TableWizard) Result() TableResult {
	return w.result
}

// RunTableWizard runs the wizard on the terminal.
func RunTableWizard(table string) (TableResult, error) {
	final, err := tea.NewProgram(NewTableWizard(table)).Run()
	if err != nil {
		return TableResult{}, fmt.Errorf("create-table wizard failed: %w", err)
	}
	return final.(TableWizard).Result(), nil
}
