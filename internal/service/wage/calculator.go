// Package wage holds the built-in structure calculator used when no remote wage service
// is configured.
package wage

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/wage"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	CodeBasic = "BASIC"
	CodeLoan  = "LOAN_DED"
	CodeGOSI  = "GOSI_DED"
)

type StructureCalculator struct{}

func NewStructureCalculator() wage.Calculator {
	return StructureCalculator{}
}

// Compute derives raw lines from the salary assignment, the advances overlapping the
// period and the statutory snapshot carried in the request.
func (StructureCalculator) Compute(ctx context.Context, req wage.Request) (wage.Result, error) {
	emp := req.Employee
	base := emp.Salary.BaseSalary
	if base.IsNegative() {
		return wage.Result{}, fmt.Errorf("%w: employee %s has a negative base salary", payrun.ErrWageComputation, emp.Code)
	}

	costCenter := emp.PrimaryCostCenter()
	var lines []payrun.Line
	add := func(l payrun.Line) {
		if !l.Amount.IsPositive() {
			return
		}
		l.Amount = money.RoundMoney(l.Amount)
		l.CostCenterID = costCenter
		l.Order = len(lines)
		lines = append(lines, l)
	}

	add(payrun.Line{
		ComponentCode: CodeBasic,
		Description:   "Basic salary",
		Amount:        base,
		Sign:          payrun.Earning,
		Source:        payrun.SourceStructure,
	})

	for _, item := range emp.Salary.Items {
		l, err := structureLine(item, base)
		if err != nil {
			return wage.Result{}, fmt.Errorf("employee %s: %w", emp.Code, err)
		}
		add(l)
	}

	for _, adv := range emp.Advances {
		if !adv.Overlaps(req.PeriodStart, req.PeriodEnd) {
			continue
		}
		add(payrun.Line{
			ComponentCode: CodeLoan,
			Description:   fmt.Sprintf("Advance %s installment", adv.ID),
			Amount:        money.Min(adv.MonthlyDeduction, adv.Amount),
			Sign:          payrun.Deduction,
			Source:        payrun.SourceStructure,
		})
	}

	employer := decimal.Zero
	snap := req.Statutory
	if snap.AppliesTo(emp.Nationality) {
		insurable := Insurable(emp, snap.MaxCapAmount)
		rate := snap.EmployeeContributionRate()
		add(payrun.Line{
			ComponentCode: CodeGOSI,
			Description:   "Social insurance (employee share)",
			Amount:        money.Percent(insurable, rate),
			Sign:          payrun.Deduction,
			Source:        payrun.SourceStatutory,
			Units:         &insurable,
			Rate:          &rate,
		})
		employer = money.RoundMoney(money.Percent(insurable, snap.EmployerContributionRate()))
	}

	gross, ded := payrun.SumLines(lines)
	return wage.Result{
		Lines:                lines,
		Gross:                gross,
		TotalDeductions:      ded,
		EmployerContribution: employer,
	}, nil
}

// Insurable is the insurable base limited to maxCap; a zero cap means no limit.
func Insurable(emp roster.Employee, maxCap decimal.Decimal) decimal.Decimal {
	base := emp.InsurableBase()
	if maxCap.IsPositive() {
		return money.Min(base, maxCap)
	}
	return base
}

func structureLine(item roster.StructureItem, base decimal.Decimal) (payrun.Line, error) {
	sign := payrun.Earning
	if item.IsDeduction {
		sign = payrun.Deduction
	}
	l := payrun.Line{
		ComponentCode: item.ComponentCode,
		Description:   item.Name,
		Sign:          sign,
		Source:        payrun.SourceStructure,
	}
	if item.ComponentID != "" {
		id := item.ComponentID
		l.ComponentID = &id
	}

	switch item.Kind {
	case roster.KindFixed:
		l.Amount = item.Value
	case roster.KindPercentage:
		pct := item.Value
		l.Amount = money.Percent(base, pct)
		l.Rate = &pct
	default:
		return payrun.Line{}, fmt.Errorf("%w: structure item %s has unknown kind %q", payrun.ErrWageComputation, item.ComponentCode, item.Kind)
	}
	if l.Amount.IsNegative() {
		return payrun.Line{}, fmt.Errorf("%w: structure item %s is negative", payrun.ErrWageComputation, item.ComponentCode)
	}
	return l, nil
}
