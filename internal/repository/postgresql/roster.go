package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type rosterRepository struct {
	db *database.DB
}

func NewRosterProvider(db *database.DB) roster.Provider {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) EligibleEmployees(ctx context.Context, companyID string, start, end time.Time) ([]roster.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT e.id, e.company_id, e.code, e.full_name, e.category, e.nationality, e.branch_id,
			   e.department, e.bank_account, e.hire_date,
			   sa.id, sa.base_salary, sa.insurable_base, sa.effective_date
		FROM employees e
		JOIN LATERAL (
			SELECT id, base_salary, insurable_base, effective_date
			FROM salary_assignments
			WHERE employee_id = e.id AND is_active
			  AND effective_date <= $3 AND (end_date IS NULL OR end_date >= $2)
			ORDER BY effective_date DESC
			LIMIT 1
		) sa ON TRUE
		WHERE e.company_id = $1
		  AND e.hire_date <= $3
		  AND (e.resign_date IS NULL OR e.resign_date >= $2)
		ORDER BY e.code, e.id
	`
	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible employees: %w", err)
	}
	defer rows.Close()

	var employees []roster.Employee
	index := make(map[string]int)
	assignmentOwner := make(map[string]int)
	for rows.Next() {
		var e roster.Employee
		var insurable decimal.NullDecimal
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.Category, &e.Nationality, &e.BranchID,
			&e.Department, &e.BankAccount, &e.HireDate,
			&e.Salary.ID, &e.Salary.BaseSalary, &insurable, &e.Salary.EffectiveDate); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.Salary.InsurableBase = decimalPtr(insurable)
		index[e.ID] = len(employees)
		assignmentOwner[e.Salary.ID] = len(employees)
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return employees, nil
	}

	if err := r.loadStructure(ctx, employees, assignmentOwner); err != nil {
		return nil, err
	}
	if err := r.loadCostCenters(ctx, employees, index); err != nil {
		return nil, err
	}
	if err := r.loadAdvances(ctx, employees, index, start, end); err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *rosterRepository) loadStructure(ctx context.Context, employees []roster.Employee, owner map[string]int) error {
	q := GetQuerier(ctx, r.db)

	ids := make([]string, 0, len(owner))
	for id := range owner {
		ids = append(ids, id)
	}
	rows, err := q.Query(ctx, `
		SELECT si.assignment_id, si.component_id, c.code, c.name, c.sign, si.kind, si.value
		FROM salary_structure_items si
		JOIN payroll_components c ON c.id = si.component_id
		WHERE si.assignment_id = ANY($1) AND c.is_active
		ORDER BY si.assignment_id, si.item_order, c.code
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list salary structure: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var assignmentID, sign string
		var item roster.StructureItem
		if err := rows.Scan(&assignmentID, &item.ComponentID, &item.ComponentCode, &item.Name, &sign, &item.Kind, &item.Value); err != nil {
			return fmt.Errorf("failed to scan structure item: %w", err)
		}
		item.IsDeduction = sign == "DEDUCTION"
		i := owner[assignmentID]
		employees[i].Salary.Items = append(employees[i].Salary.Items, item)
	}
	return rows.Err()
}

func (r *rosterRepository) loadCostCenters(ctx context.Context, employees []roster.Employee, index map[string]int) error {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT employee_id, cost_center_id, percent
		FROM cost_center_allocations
		WHERE employee_id = ANY($1)
		ORDER BY employee_id, percent DESC
	`, keys(index))
	if err != nil {
		return fmt.Errorf("failed to list cost centers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var employeeID string
		var a roster.CostCenterAllocation
		if err := rows.Scan(&employeeID, &a.CostCenterID, &a.Percent); err != nil {
			return fmt.Errorf("failed to scan cost center: %w", err)
		}
		i := index[employeeID]
		employees[i].CostCenters = append(employees[i].CostCenters, a)
	}
	return rows.Err()
}

func (r *rosterRepository) loadAdvances(ctx context.Context, employees []roster.Employee, index map[string]int, start, end time.Time) error {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT employee_id, id, amount, monthly_deduction, start_date, end_date
		FROM advance_requests
		WHERE employee_id = ANY($1) AND status = 'APPROVED'
		  AND start_date <= $3 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY employee_id, start_date, id
	`, keys(index), start, end)
	if err != nil {
		return fmt.Errorf("failed to list advances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var employeeID string
		var a roster.Advance
		if err := rows.Scan(&employeeID, &a.ID, &a.Amount, &a.MonthlyDeduction, &a.StartDate, &a.EndDate); err != nil {
			return fmt.Errorf("failed to scan advance: %w", err)
		}
		i := index[employeeID]
		employees[i].Advances = append(employees[i].Advances, a)
	}
	return rows.Err()
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
