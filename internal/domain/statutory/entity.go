package statutory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is a tenant's social-insurance and payroll-limit configuration. Every change
// creates a new Version so historical payslips can be reproduced from their snapshot.
type Config struct {
	ID                    string
	CompanyID             string
	Version               int
	EmployeeRate          decimal.Decimal
	EmployerRate          decimal.Decimal
	SanedRate             decimal.Decimal
	HazardRate            decimal.Decimal
	MaxCapAmount          decimal.Decimal
	MinBaseSalary         decimal.Decimal
	MinimumWage           decimal.Decimal
	MinimumWageCategories []string
	DeductionCapPercent   decimal.Decimal
	DebtSettlementPercent decimal.Decimal
	NationalsOnly         bool
	NationalityCode       string
	EffectiveDate         time.Time
	EndDate               *time.Time
	IsActive              bool
	CreatedAt             time.Time
}

// LegalRates are the externally supplied expected figures the gate compares against.
type LegalRates struct {
	EmployeePension decimal.Decimal
	EmployeeSaned   decimal.Decimal
	EmployerPension decimal.Decimal
	EmployerSaned   decimal.Decimal
	EmployerHazard  decimal.Decimal
	MaxCapAmount    decimal.Decimal
	MinBaseSalary   decimal.Decimal
	Tolerance       decimal.Decimal
}

// DefaultLegalRates are the Saudi GOSI figures: 9% + 0.75% employee, 9% + 0.75% + 2%
// employer, 45000 cap.
func DefaultLegalRates() LegalRates {
	return LegalRates{
		EmployeePension: decimal.NewFromInt(9),
		EmployeeSaned:   decimal.RequireFromString("0.75"),
		EmployerPension: decimal.NewFromInt(9),
		EmployerSaned:   decimal.RequireFromString("0.75"),
		EmployerHazard:  decimal.NewFromInt(2),
		MaxCapAmount:    decimal.NewFromInt(45000),
		MinBaseSalary:   decimal.NewFromInt(1500),
		Tolerance:       decimal.RequireFromString("0.01"),
	}
}

func (l LegalRates) EmployeeTotal() decimal.Decimal {
	return l.EmployeePension.Add(l.EmployeeSaned)
}

func (l LegalRates) EmployerTotal() decimal.Decimal {
	return l.EmployerPension.Add(l.EmployerSaned).Add(l.EmployerHazard)
}

// Snapshot is the immutable copy of a Config stored in every payslip trace.
type Snapshot struct {
	ConfigID              string          `json:"config_id"`
	Version               int             `json:"version"`
	EmployeeRate          decimal.Decimal `json:"employee_rate"`
	EmployerRate          decimal.Decimal `json:"employer_rate"`
	SanedRate             decimal.Decimal `json:"saned_rate"`
	HazardRate            decimal.Decimal `json:"hazard_rate"`
	MaxCapAmount          decimal.Decimal `json:"max_cap_amount"`
	MinBaseSalary         decimal.Decimal `json:"min_base_salary"`
	MinimumWage           decimal.Decimal `json:"minimum_wage"`
	MinimumWageCategories []string        `json:"minimum_wage_categories,omitempty"`
	DeductionCapPercent   decimal.Decimal `json:"deduction_cap_percent"`
	DebtSettlementPercent decimal.Decimal `json:"debt_settlement_percent"`
	NationalsOnly         bool            `json:"nationals_only"`
	NationalityCode       string          `json:"nationality_code,omitempty"`
	EffectiveDate         time.Time       `json:"effective_date"`
	EndDate               *time.Time      `json:"end_date,omitempty"`
}

var fifty = decimal.NewFromInt(50)

// Snapshot copies c, filling the 50% defaults for the deduction cap and the debt
// settlement share.
func (c Config) Snapshot() Snapshot {
	s := Snapshot{
		ConfigID:              c.ID,
		Version:               c.Version,
		EmployeeRate:          c.EmployeeRate,
		EmployerRate:          c.EmployerRate,
		SanedRate:             c.SanedRate,
		HazardRate:            c.HazardRate,
		MaxCapAmount:          c.MaxCapAmount,
		MinBaseSalary:         c.MinBaseSalary,
		MinimumWage:           c.MinimumWage,
		MinimumWageCategories: append([]string(nil), c.MinimumWageCategories...),
		DeductionCapPercent:   c.DeductionCapPercent,
		DebtSettlementPercent: c.DebtSettlementPercent,
		NationalsOnly:         c.NationalsOnly,
		NationalityCode:       c.NationalityCode,
		EffectiveDate:         c.EffectiveDate,
		EndDate:               c.EndDate,
	}
	if s.DeductionCapPercent.IsZero() {
		s.DeductionCapPercent = fifty
	}
	if s.DebtSettlementPercent.IsZero() {
		s.DebtSettlementPercent = fifty
	}
	return s
}

// EmployeeContributionRate is the share withheld from the employee.
func (s Snapshot) EmployeeContributionRate() decimal.Decimal {
	return s.EmployeeRate.Add(s.SanedRate)
}

// EmployerContributionRate is the employer's own share.
func (s Snapshot) EmployerContributionRate() decimal.Decimal {
	return s.EmployerRate.Add(s.SanedRate).Add(s.HazardRate)
}

// AppliesTo reports whether statutory insurance covers an employee of the given
// nationality.
func (s Snapshot) AppliesTo(nationality string) bool {
	if !s.NationalsOnly {
		return true
	}
	return nationality != "" && nationality == s.NationalityCode
}

// MinimumWageApplies reports whether the minimum wage check covers category. An empty
// category list means the minimum wage applies to nobody.
func (s Snapshot) MinimumWageApplies(category string) bool {
	if !s.MinimumWage.IsPositive() {
		return false
	}
	for _, c := range s.MinimumWageCategories {
		if c == category {
			return true
		}
	}
	return false
}
