package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vvka-141/dbobj/internal/tui"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// finding is one error of a check, flattened for output.
type finding struct {
	Kind    string `json:"kind"`
	File    string `json:"file,omitempty"`
	Object  string `json:"object,omitempty"`
	Message string `json:"message"`
}

// checkReport is the pass/fail outcome printed by check-version and check-code.
type checkReport struct {
	Check       string    `json:"check"`
	Application string    `json:"application"`
	Version     string    `json:"version,omitempty"`
	OK          bool      `json:"ok"`
	Objects     int       `json:"objects"`
	Errors      []finding `json:"errors"`
	Warnings    []string  `json:"warnings"`

	source *dbobj.Report
}

func newCheckReport(check, app string, objects int, r *dbobj.Report) *checkReport {
	out := &checkReport{
		Check:       check,
		Application: app,
		OK:          r.OK(),
		Objects:     objects,
		Errors:      []finding{},
		Warnings:    append([]string{}, r.Warnings()...),
		source:      r,
	}
	for _, err := range r.Errors() {
		file, object := locate(err)
		out.Errors = append(out.Errors, finding{
			Kind:    dbobj.ErrorKind(err),
			File:    file,
			Object:  object,
			Message: err.Error(),
		})
	}
	return out
}

// locate extracts the file and object name carried by a typed error.
func locate(err error) (file, object string) {
	var (
		parseErr    *dbobj.ParseError
		tagErr      *dbobj.TagSyntaxError
		dupErr      *dbobj.DuplicateObjectError
		missingErr  *dbobj.MissingObjectError
		orphanErr   *dbobj.OrphanFileError
		namingErr   *dbobj.NamingMismatchError
		danglingErr *dbobj.DanglingReferenceError
	)
	switch {
	case errors.As(err, &parseErr):
		return parseErr.File, ""
	case errors.As(err, &tagErr):
		return tagErr.File, ""
	case errors.As(err, &dupErr):
		return strings.Join(dupErr.Files, ","), dupErr.Name
	case errors.As(err, &missingErr):
		return missingErr.File, missingErr.Name
	case errors.As(err, &orphanErr):
		return orphanErr.File, orphanErr.Name
	case errors.As(err, &namingErr):
		return namingErr.File, namingErr.ActualName
	case errors.As(err, &danglingErr):
		return danglingErr.File, danglingErr.Object
	}
	return "", ""
}

func (r *checkReport) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *checkReport) writeText(w io.Writer, styled bool) {
	paint := func(style interface{ Render(...string) string }, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}

	subject := r.Check + " " + r.Application
	if r.Version != "" {
		subject += " " + r.Version
	}
	if r.OK {
		fmt.Fprintln(w, paint(tui.SuccessStyle, fmt.Sprintf("%s %s: %d objects, no problems", tui.SymbolCheck, subject, r.Objects)))
	} else {
		fmt.Fprintln(w, paint(tui.ErrorStyle, fmt.Sprintf("%s %s: %d problem(s) in %d objects", tui.SymbolCross, subject, len(r.Errors), r.Objects)))
	}
	for _, f := range r.Errors {
		fmt.Fprintf(w, "  %s [%s] %s\n", paint(tui.ErrorStyle, tui.SymbolCross), f.Kind, f.Message)
	}
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  %s %s\n", paint(tui.WarningStyle, tui.SymbolWarning), msg)
	}
}

// write prints the report as JSON or text.
func (r *checkReport) write(w io.Writer, asJSON bool) error {
	if asJSON {
		return r.writeJSON(w)
	}
	r.writeText(w, tui.StyledOutput())
	return nil
}

// failure returns nil when the check passed, otherwise a short error that
// unwraps to every finding so the exit code reflects their category.
func (r *checkReport) failure() error {
	if r.OK {
		return nil
	}
	return &checkFailure{check: r.Check, count: len(r.Errors), err: r.source.Err()}
}

type checkFailure struct {
	check string
	count int
	err   error
}

func (e *checkFailure) Error() string {
	return fmt.Sprintf("%s failed with %d problem(s)", e.check, e.count)
}

func (e *checkFailure) Unwrap() error { return e.err }
