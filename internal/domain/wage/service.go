// Package wage describes the wage-computation collaborator that turns one employee and
// period into raw payslip lines.
package wage

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/shopspring/decimal"
)

type Request struct {
	CompanyID   string
	PeriodID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Employee    roster.Employee
	Statutory   statutory.Snapshot
}

// Result carries ordered raw lines plus the collaborator's own aggregates. The engine
// recomputes totals from the lines it keeps.
type Result struct {
	Lines                []payrun.Line
	Gross                decimal.Decimal
	TotalDeductions      decimal.Decimal
	EmployerContribution decimal.Decimal
}

// Calculator computes raw wage lines. A returned error aborts the whole run.
type Calculator interface {
	Compute(ctx context.Context, req Request) (Result, error)
}
