package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

var dropDetails = []string{"DROP TABLE orders from dbobj_shop"}

func TestForcedApprover_ApprovesAfterCountdown(t *testing.T) {
	var output bytes.Buffer
	sleepCalls := 0
	approver := &ForcedApprover{
		output:    &output,
		countdown: dbobj.DefaultForceApprovalCountdown,
		sleepFn:   func(time.Duration) { sleepCalls++ },
	}

	approved, err := approver.RequestApproval(context.Background(), "dbobj_shop", dropDetails)
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Equal(t, 5, sleepCalls)

	out := output.String()
	assert.Contains(t, out, "DANGER")
	assert.Contains(t, out, "DROP TABLE orders")
	assert.Contains(t, out, "Proceeding with changes to dbobj_shop")
}

func TestForcedApprover_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleepCalls := 0
	approver := &ForcedApprover{
		output:    io.Discard,
		countdown: 5 * time.Second,
		sleepFn: func(time.Duration) {
			sleepCalls++
			if sleepCalls >= 2 {
				cancel()
			}
		},
	}

	approved, err := approver.RequestApproval(ctx, "dbobj_shop", dropDetails)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, approved)
	assert.Equal(t, 2, sleepCalls)
}

func TestNewForcedApprover(t *testing.T) {
	a := NewForcedApprover()
	assert.Equal(t, dbobj.DefaultForceApprovalCountdown, a.countdown)
	assert.NotNil(t, a.sleepFn)
}

func TestInteractiveApprover(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		approved bool
		output   string
	}{
		{name: "matching input", input: "dbobj_shop\n", approved: true, output: "Confirmed"},
		{name: "surrounding whitespace", input: "  dbobj_shop  \n", approved: true, output: "Confirmed"},
		{name: "input without newline", input: "dbobj_shop", approved: true, output: "Confirmed"},
		{name: "wrong name", input: "yes\n", approved: false, output: "does not match"},
		{name: "empty line", input: "\n", approved: false, output: "does not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			approver := &InteractiveApprover{input: strings.NewReader(tt.input), output: &output}

			approved, err := approver.RequestApproval(context.Background(), "dbobj_shop", dropDetails)
			require.NoError(t, err)
			assert.Equal(t, tt.approved, approved)
			assert.Contains(t, output.String(), tt.output)
			assert.Contains(t, output.String(), "type 'dbobj_shop'")
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stdin closed") }

func TestInteractiveApprover_ReadError(t *testing.T) {
	approver := &InteractiveApprover{input: failingReader{}, output: io.Discard}
	approved, err := approver.RequestApproval(context.Background(), "dbobj_shop", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdin closed")
	assert.False(t, approved)
}

func TestInteractiveApprover_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	approver := &InteractiveApprover{input: pr, output: io.Discard}
	approved, err := approver.RequestApproval(ctx, "dbobj_shop", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, approved)
}

func TestAutoApprover(t *testing.T) {
	approved, err := AutoApprover{}.RequestApproval(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.True(t, approved)
}
