package dbobj

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error categories using errors.Is().
//
// Example usage:
//
//	_, err := manager.CheckVersion(ctx, "1.2.0")
//	if errors.Is(err, dbobj.ErrMissingObject) {
//	    // At least one declared object is gone
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrParse indicates an object definition could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrTagSyntax indicates a malformed metadata tag or comment.
	ErrTagSyntax = errors.New("tag syntax error")

	// ErrTagTargetNotFound indicates a tag was applied to a field that does not exist.
	ErrTagTargetNotFound = errors.New("tag target not found")

	// ErrDuplicateObject indicates two files declare the same object name.
	ErrDuplicateObject = errors.New("duplicate object")

	// ErrObjectNotFound indicates a lookup for an unknown object.
	ErrObjectNotFound = errors.New("object not found")

	// ErrMissingObject indicates a manifest declares an object with no file.
	ErrMissingObject = errors.New("missing object")

	// ErrOrphanFile indicates a file exists that no manifest declares.
	ErrOrphanFile = errors.New("orphan file")

	// ErrNamingMismatch indicates a file name does not match its object name.
	ErrNamingMismatch = errors.New("naming mismatch")

	// ErrDanglingReference indicates a foreign key pointing at nothing.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrManifestExists indicates new-version would overwrite an existing manifest.
	ErrManifestExists = errors.New("manifest already exists")

	// ErrObjectExists indicates a scaffold would overwrite an existing definition file.
	ErrObjectExists = errors.New("object file already exists")

	// ErrManifestLocked indicates a manifest was checked and is now immutable.
	ErrManifestLocked = errors.New("manifest is locked")

	// ErrManifestNotFound indicates the requested version has no manifest.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrReplicationConfig indicates a replication route is invalid or failed.
	ErrReplicationConfig = errors.New("replication configuration error")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates a database endpoint could not be reached.
	ErrConnectionFailed = errors.New("connection failed")
)

// ParseError reports a definition file that could not be turned into a SchemaObject.
type ParseError struct {
	File   string
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", position(e.File, e.Line, e.Column), e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// TagSyntaxError reports a malformed tag token or unbalanced comment delimiter.
type TagSyntaxError struct {
	File   string
	Line   int
	Column int
	Token  string
	Reason string
}

func (e *TagSyntaxError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: invalid tag %q: %s", position(e.File, e.Line, e.Column), e.Token, e.Reason)
	}
	return fmt.Sprintf("%s: %s", position(e.File, e.Line, e.Column), e.Reason)
}

func (e *TagSyntaxError) Unwrap() error { return ErrTagSyntax }

// DuplicateObjectError reports an object name declared by more than one file.
// Files is sorted so the message does not depend on scan order.
type DuplicateObjectError struct {
	Name  string
	Files []string
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("object %q is declared in multiple files: %s", e.Name, strings.Join(e.Files, ", "))
}

func (e *DuplicateObjectError) Unwrap() error { return ErrDuplicateObject }

// MissingObjectError reports an object declared by a manifest but absent from disk.
type MissingObjectError struct {
	Version string
	Name    string
	File    string
}

func (e *MissingObjectError) Error() string {
	return fmt.Sprintf("version %s declares %q (%s) but no such object exists", e.Version, e.Name, e.File)
}

func (e *MissingObjectError) Unwrap() error { return ErrMissingObject }

// OrphanFileError reports an object file present on disk but absent from a manifest.
type OrphanFileError struct {
	Version string
	File    string
	Name    string
}

func (e *OrphanFileError) Error() string {
	return fmt.Sprintf("file %s (object %q) is not declared by version %s", e.File, e.Name, e.Version)
}

func (e *OrphanFileError) Unwrap() error { return ErrOrphanFile }

// NamingMismatchError reports a file whose name does not match the object it declares.
// ExpectedName is the object name implied by the file; ActualName is the declared one.
type NamingMismatchError struct {
	File         string
	ExpectedName string
	ActualName   string
	ExpectedFile string
}

func (e *NamingMismatchError) Error() string {
	return fmt.Sprintf("%s: expected object %q but found %q (rename file to %s)",
		e.File, e.ExpectedName, e.ActualName, e.ExpectedFile)
}

func (e *NamingMismatchError) Unwrap() error { return ErrNamingMismatch }

// DanglingReferenceError reports a foreign key whose target does not resolve.
type DanglingReferenceError struct {
	File      string
	Object    string
	Field     string
	RefTable  string
	RefColumn string
	Reason    string
}

func (e *DanglingReferenceError) Error() string {
	target := e.RefTable
	if e.RefColumn != "" {
		target += "." + e.RefColumn
	}
	return fmt.Sprintf("%s: %s.%s references %s: %s", e.File, e.Object, e.Field, target, e.Reason)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// ReplicationConfigError reports a replication route that cannot be configured.
// Tables lists the offending tables when the failure is table-specific.
type ReplicationConfigError struct {
	Route    string
	Endpoint string
	Tables   []string
	Reason   string
	Err      error
}

func (e *ReplicationConfigError) Error() string {
	var b strings.Builder
	b.WriteString("replication ")
	b.WriteString(e.Route)
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " (endpoint %s)", e.Endpoint)
	}
	if len(e.Tables) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Tables, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ReplicationConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrReplicationConfig}
	}
	return []error{ErrReplicationConfig, e.Err}
}

func position(file string, line, column int) string {
	switch {
	case line > 0 && column > 0:
		return fmt.Sprintf("%s:%d:%d", file, line, column)
	case line > 0:
		return fmt.Sprintf("%s:%d", file, line)
	default:
		return file
	}
}

// usagePatterns are the message prefixes cobra produces for command-line misuse.
var usagePatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"requires at most",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrReplicationConfig):
		return ExitReplicationConfig
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrParse), errors.Is(err, ErrTagSyntax):
		return ExitParseError
	case errors.Is(err, ErrDuplicateObject),
		errors.Is(err, ErrMissingObject),
		errors.Is(err, ErrOrphanFile),
		errors.Is(err, ErrNamingMismatch),
		errors.Is(err, ErrDanglingReference):
		return ExitDiscrepancy
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedAuthMethod),
		errors.Is(err, ErrManifestExists),
		errors.Is(err, ErrObjectExists),
		errors.Is(err, ErrManifestLocked),
		errors.Is(err, ErrManifestNotFound):
		return ExitConfigError
	}

	errStr := err.Error()
	for _, p := range usagePatterns {
		if strings.HasPrefix(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
