package roster

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountKind says how a structure item is valued.
type AmountKind string

const (
	KindFixed      AmountKind = "FIXED"
	KindPercentage AmountKind = "PERCENTAGE"
)

// StructureItem is one recurring component of an employee's salary assignment.
type StructureItem struct {
	ComponentID   string
	ComponentCode string
	Name          string
	// IsDeduction is false for earnings.
	IsDeduction bool
	Kind        AmountKind
	// Value is an amount for FIXED items and a percentage of base salary otherwise.
	Value decimal.Decimal
}

// SalaryAssignment is the active salary structure of an employee.
type SalaryAssignment struct {
	ID            string
	BaseSalary    decimal.Decimal
	InsurableBase *decimal.Decimal
	EffectiveDate time.Time
	Items         []StructureItem
}

// CostCenterAllocation splits an employee's cost across cost centers.
type CostCenterAllocation struct {
	CostCenterID string
	Percent      decimal.Decimal
}

// Advance is an approved salary advance or loan recovered in installments.
type Advance struct {
	ID               string
	Amount           decimal.Decimal
	MonthlyDeduction decimal.Decimal
	StartDate        time.Time
	EndDate          *time.Time
}

// Overlaps reports whether the advance is recovered inside [start, end].
func (a Advance) Overlaps(start, end time.Time) bool {
	if a.StartDate.After(end) {
		return false
	}
	return a.EndDate == nil || !a.EndDate.Before(start)
}

// Employee is an eligible employee with everything the wage calculation needs.
type Employee struct {
	ID           string
	CompanyID    string
	Code         string
	Name         string
	Category     string
	Nationality  string
	BranchID     *string
	Department   string
	BankAccount  *string
	HireDate     time.Time
	Salary       SalaryAssignment
	CostCenters  []CostCenterAllocation
	Advances     []Advance
	IsTerminated bool
}

// InsurableBase is the salary basis for statutory insurance.
func (e Employee) InsurableBase() decimal.Decimal {
	if e.Salary.InsurableBase != nil {
		return *e.Salary.InsurableBase
	}
	return e.Salary.BaseSalary
}

// PrimaryCostCenter returns the allocation with the largest share.
func (e Employee) PrimaryCostCenter() *string {
	var best *CostCenterAllocation
	for i := range e.CostCenters {
		if best == nil || e.CostCenters[i].Percent.GreaterThan(best.Percent) {
			best = &e.CostCenters[i]
		}
	}
	if best == nil {
		return nil
	}
	id := best.CostCenterID
	return &id
}
