package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// hasCode reports whether err is a PostgreSQL error with the given code.
// If constraint is empty any constraint matches.
func hasCode(err error, code, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	if string(pqErr.Code) != code {
		return false
	}

	if constraint == "" {
		return true
	}

	return pqErr.Constraint == constraint
}

// IsForeignKeyViolation checks if an error is a PostgreSQL foreign key violation
func IsForeignKeyViolation(err error, constraint string) bool {
	return hasCode(err, pqForeignKeyViolation, constraint)
}

// IsCheckViolation checks if an error is a PostgreSQL check constraint violation
func IsCheckViolation(err error, constraint string) bool {
	return hasCode(err, pqCheckViolation, constraint)
}
