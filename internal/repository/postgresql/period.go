package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type periodRepository struct {
	db *database.DB
}

func NewPeriodRepository(db *database.DB) payrun.PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) GetByID(ctx context.Context, id string, companyID string) (payrun.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, year, month, start_date, end_date, status, created_at, updated_at
		FROM payroll_periods
		WHERE id = $1 AND company_id = $2
	`
	var p payrun.Period
	err := q.QueryRow(ctx, query, id, companyID).Scan(
		&p.ID, &p.CompanyID, &p.Year, &p.Month, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payrun.Period{}, payrun.ErrPeriodNotFound
		}
		return payrun.Period{}, fmt.Errorf("failed to get payroll period: %w", err)
	}
	return p, nil
}

func (r *periodRepository) MarkPaid(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE payroll_periods SET status = 'PAID', updated_at = NOW() WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to mark period paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payrun.ErrPeriodNotFound
	}
	return nil
}
