package postgresql

import (
	"errors"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// constraintErrors maps unique constraint names to domain errors.
var constraintErrors = map[string]error{
	"uq_payroll_runs_active_period": payrun.ErrRunAlreadyExists,
}

// mapConstraintError translates known constraint violations, returning err unchanged
// otherwise.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
	}
	return err
}
