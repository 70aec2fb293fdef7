package payrun

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rules"
)

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// selectEmployees applies the run filters to the eligible roster, keeping roster order.
func selectEmployees(engine *rules.Engine, employees []roster.Employee, f payrun.Filters, asOf time.Time) ([]roster.Employee, error) {
	include := toSet(f.EmployeeIDs)
	exclude := toSet(f.ExcludeEmployeeIDs)
	categories := toSet(f.Categories)
	branches := toSet(f.BranchIDs)

	if f.Expression != "" {
		if engine == nil {
			return nil, fmt.Errorf("%w: expressions are not enabled", payrun.ErrInvalidFilter)
		}
		if err := engine.Compile(f.Expression); err != nil {
			return nil, fmt.Errorf("%w: %v", payrun.ErrInvalidFilter, err)
		}
	}

	var out []roster.Employee
	for _, emp := range employees {
		if emp.IsTerminated {
			continue
		}
		if include != nil {
			if _, ok := include[emp.ID]; !ok {
				continue
			}
		}
		if _, ok := exclude[emp.ID]; ok {
			continue
		}
		if categories != nil {
			if _, ok := categories[emp.Category]; !ok {
				continue
			}
		}
		if branches != nil {
			if emp.BranchID == nil {
				continue
			}
			if _, ok := branches[*emp.BranchID]; !ok {
				continue
			}
		}
		if f.Expression != "" {
			ok, err := engine.Match(f.Expression, employeeVars(emp, asOf))
			if err != nil {
				return nil, fmt.Errorf("%w: employee %s: %v", payrun.ErrInvalidFilter, emp.Code, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, emp)
	}
	return out, nil
}

// employeeVars is the variable map a filter expression sees as `employee`.
func employeeVars(emp roster.Employee, asOf time.Time) map[string]any {
	branch := ""
	if emp.BranchID != nil {
		branch = *emp.BranchID
	}
	tenure := int64(0)
	if !emp.HireDate.IsZero() && asOf.After(emp.HireDate) {
		tenure = int64((asOf.Year()-emp.HireDate.Year())*12 + int(asOf.Month()) - int(emp.HireDate.Month()))
	}
	return map[string]any{
		"id":            emp.ID,
		"code":          emp.Code,
		"name":          emp.Name,
		"category":      emp.Category,
		"nationality":   emp.Nationality,
		"department":    emp.Department,
		"branch_id":     branch,
		"base_salary":   emp.Salary.BaseSalary.InexactFloat64(),
		"tenure_months": tenure,
		"has_advances":  len(emp.Advances) > 0,
	}
}
