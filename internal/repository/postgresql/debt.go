package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type debtRepository struct {
	db *database.DB
}

func NewDebtRepository(db *database.DB) debt.DebtRepository {
	return &debtRepository{db: db}
}

const debtColumns = `
	id, company_id, employee_id, original_amount, remaining_balance, status, source_type,
	run_id, period_id, notes, version, created_by, created_at, updated_at`

func scanDebt(row pgx.Row) (debt.Debt, error) {
	var d debt.Debt
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.EmployeeID, &d.OriginalAmount, &d.RemainingBalance, &d.Status, &d.SourceType,
		&d.RunID, &d.PeriodID, &d.Notes, &d.Version, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

func (r *debtRepository) Create(ctx context.Context, d debt.Debt) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_debts (
			id, company_id, employee_id, original_amount, remaining_balance, status, source_type,
			run_id, period_id, notes, version, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := q.Exec(ctx, query,
		d.ID, d.CompanyID, d.EmployeeID, d.OriginalAmount, d.RemainingBalance, d.Status, d.SourceType,
		d.RunID, d.PeriodID, d.Notes, d.Version, d.CreatedBy, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func (r *debtRepository) GetByID(ctx context.Context, id string, companyID string) (debt.Debt, error) {
	q := GetQuerier(ctx, r.db)

	d, err := scanDebt(q.QueryRow(ctx, `SELECT`+debtColumns+` FROM employee_debts WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return debt.Debt{}, debt.ErrDebtNotFound
		}
		return debt.Debt{}, fmt.Errorf("failed to get debt: %w", err)
	}
	return d, nil
}

func (r *debtRepository) ListByEmployee(ctx context.Context, employeeID string, companyID string, openOnly bool) ([]debt.Debt, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + debtColumns + ` FROM employee_debts WHERE employee_id = $1 AND company_id = $2`
	if openOnly {
		query += ` AND status IN ('ACTIVE', 'PARTIALLY_PAID')`
	}
	query += ` ORDER BY created_at, id`

	return r.query(ctx, q, query, employeeID, companyID)
}

func (r *debtRepository) List(ctx context.Context, companyID string, filter debt.Filter) ([]debt.Debt, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := `WHERE company_id = $1`
	args := []interface{}{companyID}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		where += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.SourceType != nil {
		args = append(args, *filter.SourceType)
		where += fmt.Sprintf(" AND source_type = $%d", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM employee_debts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count debts: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT`+debtColumns+` FROM employee_debts %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	debts, err := r.query(ctx, q, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return debts, total, nil
}

func (r *debtRepository) query(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]debt.Debt, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var out []debt.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *debtRepository) Update(ctx context.Context, d debt.Debt, expectedVersion int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employee_debts SET
			remaining_balance = $4, status = $5, notes = $6, version = $7, updated_at = $8
		WHERE id = $1 AND company_id = $2 AND version = $3
	`
	tag, err := q.Exec(ctx, query, d.ID, d.CompanyID, expectedVersion,
		d.RemainingBalance, d.Status, d.Notes, d.Version, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return debt.ErrConcurrentModification
	}
	return nil
}

func (r *debtRepository) AddTransaction(ctx context.Context, tx debt.Transaction) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO debt_transactions (
			id, debt_id, company_id, sequence, type, source, amount, balance_before, balance_after,
			run_id, notes, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := q.Exec(ctx, query,
		tx.ID, tx.DebtID, tx.CompanyID, tx.Sequence, tx.Type, tx.Source, tx.Amount, tx.BalanceBefore, tx.BalanceAfter,
		tx.RunID, tx.Notes, tx.CreatedBy, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add debt transaction: %w", err)
	}
	return nil
}

func (r *debtRepository) ListTransactions(ctx context.Context, debtID string, companyID string) ([]debt.Transaction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, debt_id, company_id, sequence, type, source, amount, balance_before, balance_after,
			   run_id, notes, created_by, created_at
		FROM debt_transactions
		WHERE debt_id = $1 AND company_id = $2
		ORDER BY sequence
	`
	rows, err := q.Query(ctx, query, debtID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt transactions: %w", err)
	}
	defer rows.Close()

	var out []debt.Transaction
	for rows.Next() {
		var t debt.Transaction
		if err := rows.Scan(&t.ID, &t.DebtID, &t.CompanyID, &t.Sequence, &t.Type, &t.Source, &t.Amount,
			&t.BalanceBefore, &t.BalanceAfter, &t.RunID, &t.Notes, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *debtRepository) TotalsByStatus(ctx context.Context, companyID string) ([]debt.StatusTotal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT status, COUNT(*), COALESCE(SUM(original_amount), 0), COALESCE(SUM(remaining_balance), 0)
		FROM employee_debts
		WHERE company_id = $1
		GROUP BY status
		ORDER BY status
	`
	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize debts: %w", err)
	}
	defer rows.Close()

	var out []debt.StatusTotal
	for rows.Next() {
		var st debt.StatusTotal
		if err := rows.Scan(&st.Status, &st.Count, &st.Original, &st.Remaining); err != nil {
			return nil, fmt.Errorf("failed to scan debt summary: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *debtRepository) CountEmployeesWithOpenDebt(ctx context.Context, companyID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var n int
	err := q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT employee_id) FROM employee_debts
		WHERE company_id = $1 AND status IN ('ACTIVE', 'PARTIALLY_PAID')
	`, companyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees with debt: %w", err)
	}
	return n, nil
}
