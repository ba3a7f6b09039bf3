package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

var (
	warningTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warningBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)
)

// renderWarning boxes the list of destructive changes to subject.
func renderWarning(subject string, details []string) string {
	var b strings.Builder
	b.WriteString(warningTitle.Render("DANGER: destructive replication change on " + subject))
	for _, d := range details {
		b.WriteString("\n  - ")
		b.WriteString(d)
	}
	return warningBox.Render(b.String())
}

// InteractiveApprover asks the user to type the subject name to confirm.
type InteractiveApprover struct {
	input  io.Reader
	output io.Writer
}

// NewInteractiveApprover creates a new InteractiveApprover on stdin and stderr.
func NewInteractiveApprover() *InteractiveApprover {
	return &InteractiveApprover{input: os.Stdin, output: os.Stderr}
}

func (a *InteractiveApprover) RequestApproval(ctx context.Context, subject string, details []string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, renderWarning(subject, details))
	fmt.Fprintf(a.output, "\nTo confirm, type '%s' and press Enter: ", subject)

	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(a.input).ReadString('\n')
		if err != nil && line == "" {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == subject {
			fmt.Fprintln(a.output, "✓ Confirmed.")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match '%s'. Operation cancelled.\n", input, subject)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ dbobj.Approver = (*InteractiveApprover)(nil)

// AutoApprover approves without prompting. It serves dry runs and deltas
// without destructive changes.
type AutoApprover struct{}

func (AutoApprover) RequestApproval(context.Context, string, []string) (bool, error) {
	return true, nil
}

var _ dbobj.Approver = AutoApprover{}
