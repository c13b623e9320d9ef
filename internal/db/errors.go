package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// DuplicateKeyError represents a database constraint violation error
type DuplicateKeyError struct {
	Field string // The field that caused the constraint violation
	err   error  // The underlying database error
}

func (e *DuplicateKeyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("duplicate key violation: %s already exists", e.Field)
	}
	return "duplicate key violation"
}

// Unwrap returns the underlying error for error chain support
func (e *DuplicateKeyError) Unwrap() error {
	return e.err
}

// NewDuplicateKeyError creates a new DuplicateKeyError
func NewDuplicateKeyError(field string, err error) error {
	return &DuplicateKeyError{
		Field: field,
		err:   err,
	}
}

// WrapErrorIfDuplicateConstraint converts a unique-constraint failure from
// either supported driver into a DuplicateKeyError. Other errors pass through.
func WrapErrorIfDuplicateConstraint(err error) (bool, error) {
	var sqliteErr sqlite3.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
		return true, NewDuplicateKeyError(extractViolatedFieldFromSQLite(err), err)
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return true, NewDuplicateKeyError(extractViolatedFieldFromPostgres(pgErr), err)
	default:
		return false, err
	}
}

// e.g. "UNIQUE constraint failed: accounts.email"
var sqliteUniqueConstraintRegex = regexp.MustCompile(`UNIQUE constraint failed: \w+\.(\w+)`)

func extractViolatedFieldFromSQLite(err error) string {
	matches := sqliteUniqueConstraintRegex.FindStringSubmatch(err.Error())
	if len(matches) > 1 {
		return matches[1]
	}
	return "unknown"
}

// Postgres names default unique constraints <table>_<column>_key.
func extractViolatedFieldFromPostgres(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	name := strings.TrimSuffix(pgErr.ConstraintName, "_key")
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	}
	if name == "" {
		return "unknown"
	}
	return name
}
