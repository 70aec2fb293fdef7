package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payslipRepository struct {
	db *database.DB
}

func NewPayslipRepository(db *database.DB) payrun.PayslipRepository {
	return &payslipRepository{db: db}
}

const payslipColumns = `
	id, company_id, run_id, period_id, employee_id, employee_code, employee_name,
	category, nationality, bank_account, is_national, base_salary, gross_salary,
	total_deductions, net_salary, employer_contribution, negative_balance, status,
	trace, created_at, updated_at`

func scanPayslip(row pgx.Row) (payrun.Payslip, error) {
	var p payrun.Payslip
	var trace []byte
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.RunID, &p.PeriodID, &p.EmployeeID, &p.EmployeeCode, &p.EmployeeName,
		&p.Category, &p.Nationality, &p.BankAccount, &p.IsNational, &p.BaseSalary, &p.Gross,
		&p.TotalDeductions, &p.Net, &p.EmployerContribution, &p.NegativeBalance, &p.Status,
		&trace, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if len(trace) > 0 {
		if err := json.Unmarshal(trace, &p.Trace); err != nil {
			return p, fmt.Errorf("decode payslip trace: %w", err)
		}
	}
	return p, nil
}

func (r *payslipRepository) Create(ctx context.Context, p payrun.Payslip) error {
	q := GetQuerier(ctx, r.db)

	trace, err := json.Marshal(p.Trace)
	if err != nil {
		return fmt.Errorf("encode payslip trace: %w", err)
	}

	query := `
		INSERT INTO payslips (
			id, company_id, run_id, period_id, employee_id, employee_code, employee_name,
			category, nationality, bank_account, is_national, base_salary, gross_salary,
			total_deductions, net_salary, employer_contribution, negative_balance, status,
			trace, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = q.Exec(ctx, query,
		p.ID, p.CompanyID, p.RunID, p.PeriodID, p.EmployeeID, p.EmployeeCode, p.EmployeeName,
		p.Category, p.Nationality, p.BankAccount, p.IsNational, p.BaseSalary, p.Gross,
		p.TotalDeductions, p.Net, p.EmployerContribution, p.NegativeBalance, p.Status,
		trace, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payslip: %w", err)
	}

	lineQuery := `
		INSERT INTO payslip_lines (
			id, payslip_id, component_id, component_code, description, amount,
			sign, source, cost_center_id, units, rate, line_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, l := range p.Lines {
		_, err := q.Exec(ctx, lineQuery,
			l.ID, p.ID, l.ComponentID, l.ComponentCode, l.Description, l.Amount,
			l.Sign.String(), l.Source.String(), l.CostCenterID, nullDecimal(l.Units), nullDecimal(l.Rate), l.Order,
		)
		if err != nil {
			return fmt.Errorf("failed to create payslip line %s: %w", l.ComponentCode, err)
		}
	}
	return nil
}

func (r *payslipRepository) GetByID(ctx context.Context, id string, companyID string) (payrun.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPayslip(q.QueryRow(ctx, `SELECT`+payslipColumns+` FROM payslips WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payrun.Payslip{}, payrun.ErrPayslipNotFound
		}
		return payrun.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}

	lines, err := r.linesFor(ctx, []string{p.ID})
	if err != nil {
		return payrun.Payslip{}, err
	}
	p.Lines = lines[p.ID]
	return p, nil
}

func (r *payslipRepository) ListByRun(ctx context.Context, runID string, companyID string) ([]payrun.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT`+payslipColumns+` FROM payslips WHERE run_id = $1 AND company_id = $2 ORDER BY employee_code, id`, runID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	var payslips []payrun.Payslip
	var ids []string
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return payslips, nil
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range payslips {
		payslips[i].Lines = lines[payslips[i].ID]
	}
	return payslips, nil
}

func (r *payslipRepository) linesFor(ctx context.Context, payslipIDs []string) (map[string][]payrun.Line, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, payslip_id, component_id, component_code, description, amount,
			   sign, source, cost_center_id, units, rate, line_order
		FROM payslip_lines
		WHERE payslip_id = ANY($1)
		ORDER BY payslip_id, line_order
	`
	rows, err := q.Query(ctx, query, payslipIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslip lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]payrun.Line)
	for rows.Next() {
		var l payrun.Line
		var sign, source string
		var units, rate decimal.NullDecimal
		if err := rows.Scan(&l.ID, &l.PayslipID, &l.ComponentID, &l.ComponentCode, &l.Description, &l.Amount,
			&sign, &source, &l.CostCenterID, &units, &rate, &l.Order); err != nil {
			return nil, fmt.Errorf("failed to scan payslip line: %w", err)
		}
		if l.Sign, err = payrun.ParseSign(sign); err != nil {
			return nil, err
		}
		if l.Source, err = payrun.ParseSource(source); err != nil {
			return nil, err
		}
		l.Units = decimalPtr(units)
		l.Rate = decimalPtr(rate)
		out[l.PayslipID] = append(out[l.PayslipID], l)
	}
	return out, rows.Err()
}

func (r *payslipRepository) UpdateStatusByRun(ctx context.Context, runID string, companyID string, status payrun.Status) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `UPDATE payslips SET status = $3, updated_at = NOW() WHERE run_id = $1 AND company_id = $2`, runID, companyID, status)
	if err != nil {
		return fmt.Errorf("failed to update payslip status: %w", err)
	}
	return nil
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}

func decimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
