package dbobj

import (
	"errors"
	"fmt"
)

// Report collects every finding of a check instead of stopping at the first one.
// The zero value is ready to use. A Report is not safe for concurrent use.
type Report struct {
	errs     []error
	warnings []string
}

// Add records err. Nil errors are ignored; joined errors are flattened.
func (r *Report) Add(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok && !isTyped(err) {
		for _, e := range joined.Unwrap() {
			r.Add(e)
		}
		return
	}
	r.errs = append(r.errs, err)
}

// Warn records a non-fatal finding.
func (r *Report) Warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Merge appends all findings of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.errs = append(r.errs, other.errs...)
	r.warnings = append(r.warnings, other.warnings...)
}

// Errors returns the recorded errors in insertion order.
func (r *Report) Errors() []error {
	return r.errs
}

// Warnings returns the recorded warnings in insertion order.
func (r *Report) Warnings() []string {
	return r.warnings
}

// Len returns the number of recorded errors.
func (r *Report) Len() int {
	return len(r.errs)
}

// OK reports whether no errors were recorded.
func (r *Report) OK() bool {
	return len(r.errs) == 0
}

// Err joins all recorded errors, or returns nil when there are none.
func (r *Report) Err() error {
	return errors.Join(r.errs...)
}

// isTyped keeps multi-cause typed errors such as ReplicationConfigError intact.
func isTyped(err error) bool {
	_, ok := err.(*ReplicationConfigError)
	return ok
}

// ErrorKind returns a short, stable category name for err, used in JSON reports.
func ErrorKind(err error) string {
	var (
		parseErr    *ParseError
		tagErr      *TagSyntaxError
		dupErr      *DuplicateObjectError
		missingErr  *MissingObjectError
		orphanErr   *OrphanFileError
		namingErr   *NamingMismatchError
		danglingErr *DanglingReferenceError
		replErr     *ReplicationConfigError
	)
	switch {
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &tagErr):
		return "tag-syntax"
	case errors.As(err, &dupErr):
		return "duplicate-object"
	case errors.As(err, &missingErr):
		return "missing-object"
	case errors.As(err, &orphanErr):
		return "orphan-file"
	case errors.As(err, &namingErr):
		return "naming-mismatch"
	case errors.As(err, &danglingErr):
		return "dangling-reference"
	case errors.As(err, &replErr):
		return "replication-config"
	default:
		return "error"
	}
}
