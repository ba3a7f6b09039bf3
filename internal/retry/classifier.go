package retry

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// PostgreSQL error codes retried by ConflictClassifier.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	PgCodeSerializationFailure = "40001"
	PgCodeDeadlockDetected     = "40P01"
	PgCodeLockNotAvailable     = "55P03"
)

// ErrorClassifier decides whether a failed attempt may be repeated.
type ErrorClassifier interface {
	IsTransient(err error) bool
}

// ConflictClassifier treats transaction conflicts as transient and
// everything else, connection failures included, as fatal.
type ConflictClassifier struct{}

// NewConflictClassifier creates a new ConflictClassifier.
func NewConflictClassifier() *ConflictClassifier {
	return &ConflictClassifier{}
}

func (c *ConflictClassifier) IsTransient(err error) bool {
	if err == nil || errors.Is(err, dbobj.ErrConnectionFailed) {
		return false
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case PgCodeSerializationFailure, PgCodeDeadlockDetected, PgCodeLockNotAvailable:
		return true
	}
	return false
}

var _ ErrorClassifier = (*ConflictClassifier)(nil)
