package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres unique_violation.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique-constraint failure from
// the driver. Callers map this to a conflict rather than an internal error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
