package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type statutoryRepository struct {
	db *database.DB
}

func NewStatutoryProvider(db *database.DB) statutory.Provider {
	return &statutoryRepository{db: db}
}

const statutoryColumns = `
	id, company_id, version, employee_rate, employer_rate, saned_rate, hazard_rate,
	max_cap_amount, min_base_salary, minimum_wage, minimum_wage_categories,
	deduction_cap_percent, debt_settlement_percent, nationals_only, nationality_code,
	effective_date, end_date, is_active, created_at`

func scanStatutory(row pgx.Row) (statutory.Config, error) {
	var c statutory.Config
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Version, &c.EmployeeRate, &c.EmployerRate, &c.SanedRate, &c.HazardRate,
		&c.MaxCapAmount, &c.MinBaseSalary, &c.MinimumWage, &c.MinimumWageCategories,
		&c.DeductionCapPercent, &c.DebtSettlementPercent, &c.NationalsOnly, &c.NationalityCode,
		&c.EffectiveDate, &c.EndDate, &c.IsActive, &c.CreatedAt,
	)
	return c, err
}

func (r *statutoryRepository) ActiveConfig(ctx context.Context, companyID string, asOf time.Time) (statutory.Config, error) {
	q := GetQuerier(ctx, r.db)

	effective := `SELECT` + statutoryColumns + `
		FROM statutory_configs
		WHERE company_id = $1 AND is_active
		  AND effective_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY version DESC
		LIMIT 1`
	c, err := scanStatutory(q.QueryRow(ctx, effective, companyID, asOf))
	if err == nil {
		return c, nil
	}
	if err != pgx.ErrNoRows {
		return statutory.Config{}, fmt.Errorf("failed to get statutory config: %w", err)
	}

	latest := `SELECT` + statutoryColumns + `
		FROM statutory_configs
		WHERE company_id = $1 AND is_active
		ORDER BY version DESC
		LIMIT 1`
	c, err = scanStatutory(q.QueryRow(ctx, latest, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return statutory.Config{}, statutory.ErrConfigNotFound
		}
		return statutory.Config{}, fmt.Errorf("failed to get latest statutory config: %w", err)
	}
	return c, nil
}

func (r *statutoryRepository) LegalRates(ctx context.Context) (statutory.LegalRates, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_pension, employee_saned, employer_pension, employer_saned, employer_hazard,
			   max_cap_amount, min_base_salary, tolerance
		FROM statutory_legal_rates
		WHERE effective_date <= NOW()
		ORDER BY effective_date DESC
		LIMIT 1
	`
	var l statutory.LegalRates
	err := q.QueryRow(ctx, query).Scan(
		&l.EmployeePension, &l.EmployeeSaned, &l.EmployerPension, &l.EmployerSaned, &l.EmployerHazard,
		&l.MaxCapAmount, &l.MinBaseSalary, &l.Tolerance,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return statutory.DefaultLegalRates(), nil
		}
		return statutory.LegalRates{}, fmt.Errorf("failed to get legal rates: %w", err)
	}
	return l, nil
}

func (r *statutoryRepository) CompaniesWithActiveConfig(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT company_id FROM statutory_configs WHERE is_active ORDER BY company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies with statutory config: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
