package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// ForcedApprover approves after a countdown. It backs the --force flag and
// leaves the user a few seconds to press Ctrl+C.
type ForcedApprover struct {
	output    io.Writer
	countdown time.Duration
	sleepFn   func(time.Duration)
}

// NewForcedApprover creates a new ForcedApprover writing to stderr.
func NewForcedApprover() *ForcedApprover {
	return &ForcedApprover{
		output:    os.Stderr,
		countdown: dbobj.DefaultForceApprovalCountdown,
		sleepFn:   time.Sleep,
	}
}

// RequestApproval prints the pending changes and approves once the countdown ends.
func (a *ForcedApprover) RequestApproval(ctx context.Context, subject string, details []string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, renderWarning(subject, details))
	fmt.Fprintln(a.output)

	for i := int(a.countdown.Seconds()); i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rApplying in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with changes to %s                              \n", subject)
	return true, nil
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ dbobj.Approver = (*ForcedApprover)(nil)
