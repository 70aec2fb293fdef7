package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type runRepository struct {
	db *database.DB
}

func NewRunRepository(db *database.DB) payrun.RunRepository {
	return &runRepository{db: db}
}

const runColumns = `
	id, company_id, period_id, status, processed_by, notes,
	approved_by, approved_at, paid_by, paid_at, cancelled_by, cancelled_at,
	created_at, updated_at`

func scanRun(row pgx.Row) (payrun.Run, error) {
	var r payrun.Run
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.PeriodID, &r.Status, &r.ProcessedBy, &r.Notes,
		&r.ApprovedBy, &r.ApprovedAt, &r.PaidBy, &r.PaidAt, &r.CancelledBy, &r.CancelledAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (r *runRepository) Create(ctx context.Context, run payrun.Run) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_runs (id, company_id, period_id, status, processed_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query, run.ID, run.CompanyID, run.PeriodID, run.Status, run.ProcessedBy, run.Notes, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payroll run: %w", mapConstraintError(err))
	}
	return nil
}

func (r *runRepository) GetByID(ctx context.Context, id string, companyID string) (payrun.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2`
	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payrun.Run{}, payrun.ErrRunNotFound
		}
		return payrun.Run{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *runRepository) FindLiveByPeriod(ctx context.Context, periodID string, companyID string) (payrun.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + runColumns + `
		FROM payroll_runs
		WHERE period_id = $1 AND company_id = $2 AND status NOT IN ('CANCELLED', 'ARCHIVED')
		LIMIT 1`
	run, err := scanRun(q.QueryRow(ctx, query, periodID, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payrun.Run{}, payrun.ErrRunNotFound
		}
		return payrun.Run{}, fmt.Errorf("failed to find payroll run for period: %w", err)
	}
	return run, nil
}

func (r *runRepository) ExistsPaidForPeriod(ctx context.Context, periodID string, companyID string, excludeRunID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_runs
			WHERE period_id = $1 AND company_id = $2 AND status = 'PAID' AND id <> $3
		)
	`
	var exists bool
	if err := q.QueryRow(ctx, query, periodID, companyID, excludeRunID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check paid runs: %w", err)
	}
	return exists, nil
}

func (r *runRepository) UpdateStatus(ctx context.Context, run payrun.Run) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			status = $3, notes = $4,
			approved_by = $5, approved_at = $6,
			paid_by = $7, paid_at = $8,
			cancelled_by = $9, cancelled_at = $10,
			updated_at = $11
		WHERE id = $1 AND company_id = $2
	`
	tag, err := q.Exec(ctx, query, run.ID, run.CompanyID, run.Status, run.Notes,
		run.ApprovedBy, run.ApprovedAt, run.PaidBy, run.PaidAt, run.CancelledBy, run.CancelledAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payrun.ErrRunNotFound
	}
	return nil
}

func (r *runRepository) List(ctx context.Context, companyID string, filter payrun.RunFilter) ([]payrun.Run, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := `WHERE company_id = $1`
	args := []interface{}{companyID}
	if filter.PeriodID != nil {
		args = append(args, *filter.PeriodID)
		where += fmt.Sprintf(" AND period_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM payroll_runs `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT`+runColumns+` FROM payroll_runs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payrun.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
