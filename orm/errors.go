package orm

import (
	"errors"
	"fmt"
)

// FormatError reports malformed builder usage: an empty query, an empty
// table name, a clause without content, or a placeholder with no value.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return "orm: " + e.Msg }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// ModelNotFoundError is returned when a registry token cannot be resolved
// to a physical table.
type ModelNotFoundError struct {
	Database string
	Model    string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("orm: model %q is not registered in database %q", e.Model, e.Database)
}

// DatabaseError wraps any driver-level failure.
type DatabaseError struct {
	Query string
	Err   error
	// Constraint is true when the dialect classified Err as an integrity
	// constraint violation (unique, foreign key, not null, check).
	Constraint bool
}

func (e *DatabaseError) Error() string { return "orm: database error: " + e.Err.Error() }

func (e *DatabaseError) Unwrap() error { return e.Err }

// IsConstraintViolation reports whether err is a DatabaseError caused by
// an integrity constraint.
func IsConstraintViolation(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr) && dbErr.Constraint
}
