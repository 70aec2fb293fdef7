package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type adjustmentRepository struct {
	db *database.DB
}

func NewAdjustmentRepository(db *database.DB) payrun.AdjustmentRepository {
	return &adjustmentRepository{db: db}
}

func (r *adjustmentRepository) ListUnlinkedPosted(ctx context.Context, periodID string, companyID string) ([]payrun.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, employee_id, period_id, type, original_amount, adjusted_amount,
			   status, run_id, reason, created_at
		FROM payroll_adjustments
		WHERE period_id = $1 AND company_id = $2 AND status = 'POSTED' AND run_id IS NULL
		ORDER BY created_at, id
	`
	rows, err := q.Query(ctx, query, periodID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var out []payrun.Adjustment
	for rows.Next() {
		var a payrun.Adjustment
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.EmployeeID, &a.PeriodID, &a.Type, &a.OriginalAmount,
			&a.AdjustedAmount, &a.Status, &a.RunID, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *adjustmentRepository) LinkToRun(ctx context.Context, runID string, companyID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_adjustments SET run_id = $1
		WHERE company_id = $2 AND id = ANY($3) AND run_id IS NULL AND status = 'POSTED'
	`
	tag, err := q.Exec(ctx, query, runID, companyID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to link adjustments: %w", err)
	}
	return tag.RowsAffected(), nil
}
