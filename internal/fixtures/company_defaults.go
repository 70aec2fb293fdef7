package fixtures

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/uid"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func strPtr(s string) *string { return &s }

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// Seeder is implemented by stores that accept reference data directly.
type Seeder interface {
	AddPeriod(p payrun.Period)
	AddComponent(c payrun.Component)
	AddEmployee(e roster.Employee)
	AddStatutoryConfig(c statutory.Config)
}

// ==========================================
// SEEDED DATA RESULT
// ==========================================

// SeededDataIDs holds IDs of all seeded default data for a company
type SeededDataIDs struct {
	CompanyID string

	// Component IDs by code
	ComponentIDs map[string]string // e.g., "HOUSING" -> "uuid"

	// Open period for the seeding month
	PeriodID string

	StatutoryConfigID string

	// Employee IDs by code
	EmployeeIDs map[string]string // e.g., "E001" -> "uuid"
}

func NewSeededDataIDs(companyID string) *SeededDataIDs {
	return &SeededDataIDs{
		CompanyID:    companyID,
		ComponentIDs: make(map[string]string),
		EmployeeIDs:  make(map[string]string),
	}
}

// ==========================================
// DEFAULT COMPONENTS
// ==========================================

// GetDefaultComponents returns the standard earning and deduction components for a new company
func GetDefaultComponents(companyID string) []payrun.Component {
	return []payrun.Component{
		{CompanyID: companyID, Code: "BASIC", Name: "Basic Salary", Sign: payrun.Earning, Category: payrun.CategoryBasic, IsActive: true},
		{CompanyID: companyID, Code: "HOUSING", Name: "Housing Allowance", Sign: payrun.Earning, Category: payrun.CategoryAllowance, IsActive: true},
		{CompanyID: companyID, Code: "TRANSPORT", Name: "Transport Allowance", Sign: payrun.Earning, Category: payrun.CategoryAllowance, IsActive: true},
		{CompanyID: companyID, Code: "OVERTIME", Name: "Overtime", Sign: payrun.Earning, Category: payrun.CategoryOvertime, IsActive: true},
		{CompanyID: companyID, Code: "GOSI_DED", Name: "Social Insurance", Sign: payrun.Deduction, Category: payrun.CategoryStatutory, IsActive: true},
		{CompanyID: companyID, Code: "LOAN_DED", Name: "Loan Repayment", Sign: payrun.Deduction, Category: payrun.CategoryLoan, IsActive: true},
		{CompanyID: companyID, Code: "ABSENCE", Name: "Absence Deduction", Sign: payrun.Deduction, Category: payrun.CategoryPenalty, IsActive: true},
	}
}

// ==========================================
// DEFAULT PERIOD
// ==========================================

// GetDefaultPeriod returns the OPEN calendar-month period containing now
func GetDefaultPeriod(companyID string, now time.Time) payrun.Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return payrun.Period{
		CompanyID: companyID,
		Year:      start.Year(),
		Month:     int(start.Month()),
		StartDate: start,
		EndDate:   end,
		Status:    payrun.PeriodOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ==========================================
// DEFAULT STATUTORY CONFIG
// ==========================================

// GetDefaultStatutoryConfig returns a configuration matching the default legal rates:
// 9% pension on both sides, 0.75% SANED, 2% occupational hazard, capped at 45,000.
func GetDefaultStatutoryConfig(companyID string, now time.Time) statutory.Config {
	return statutory.Config{
		CompanyID:             companyID,
		Version:               1,
		EmployeeRate:          amount(9),
		EmployerRate:          amount(9),
		SanedRate:             decimal.RequireFromString("0.75"),
		HazardRate:            amount(2),
		MaxCapAmount:          amount(45000),
		MinBaseSalary:         amount(1500),
		MinimumWage:           amount(4000),
		MinimumWageCategories: []string{"NATIONAL"},
		DeductionCapPercent:   amount(50),
		DebtSettlementPercent: amount(50),
		NationalsOnly:         true,
		NationalityCode:       "SA",
		EffectiveDate:         time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:              true,
		CreatedAt:             now,
	}
}

// ==========================================
// DEMO EMPLOYEES
// ==========================================

type demoEmployee struct {
	code        string
	name        string
	category    string
	nationality string
	department  string
	base        int64
	housing     int64
	transport   int64
	bank        bool
}

// A small mixed roster: nationals and expatriates, one without bank details.
var demoEmployees = []demoEmployee{
	{"E001", "Faisal Al-Harbi", "NATIONAL", "SA", "Finance", 12000, 25, 800, true},
	{"E002", "Noura Al-Qahtani", "NATIONAL", "SA", "Operations", 8500, 25, 600, true},
	{"E003", "Ravi Menon", "EXPAT", "IN", "Engineering", 9000, 20, 500, true},
	{"E004", "Maria Santos", "EXPAT", "PH", "Operations", 4500, 0, 400, false},
	{"E005", "Omar Al-Shehri", "NATIONAL", "SA", "Sales", 3800, 10, 300, true},
}

// GetDemoEmployees returns the demo roster. Housing is a percentage of base salary,
// transport a fixed amount; component IDs come from ids.ComponentIDs.
func GetDemoEmployees(ids *SeededDataIDs, now time.Time) []roster.Employee {
	hired := time.Date(now.Year()-2, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]roster.Employee, 0, len(demoEmployees))
	for i, d := range demoEmployees {
		var items []roster.StructureItem
		if d.housing > 0 {
			items = append(items, roster.StructureItem{
				ComponentID: ids.ComponentIDs["HOUSING"], ComponentCode: "HOUSING", Name: "Housing Allowance",
				Kind: roster.KindPercentage, Value: amount(d.housing),
			})
		}
		if d.transport > 0 {
			items = append(items, roster.StructureItem{
				ComponentID: ids.ComponentIDs["TRANSPORT"], ComponentCode: "TRANSPORT", Name: "Transport Allowance",
				Kind: roster.KindFixed, Value: amount(d.transport),
			})
		}

		e := roster.Employee{
			ID:          uid.New(),
			CompanyID:   ids.CompanyID,
			Code:        d.code,
			Name:        d.name,
			Category:    d.category,
			Nationality: d.nationality,
			Department:  d.department,
			HireDate:    hired,
			Salary: roster.SalaryAssignment{
				ID:            uid.New(),
				BaseSalary:    amount(d.base),
				EffectiveDate: hired,
				Items:         items,
			},
		}
		if d.bank {
			e.BankAccount = strPtr(fmt.Sprintf("SA03800000006080101675%02d", i+1))
		}
		out = append(out, e)
	}
	return out
}

// SeedCompany loads the defaults and the demo roster into s for companyID.
func SeedCompany(s Seeder, companyID string, now time.Time) *SeededDataIDs {
	ids := NewSeededDataIDs(companyID)

	for _, c := range GetDefaultComponents(companyID) {
		c.ID = uid.New()
		s.AddComponent(c)
		ids.ComponentIDs[c.Code] = c.ID
	}

	period := GetDefaultPeriod(companyID, now)
	period.ID = uid.New()
	s.AddPeriod(period)
	ids.PeriodID = period.ID

	cfg := GetDefaultStatutoryConfig(companyID, now)
	cfg.ID = uid.New()
	s.AddStatutoryConfig(cfg)
	ids.StatutoryConfigID = cfg.ID

	for _, e := range GetDemoEmployees(ids, now) {
		s.AddEmployee(e)
		ids.EmployeeIDs[e.Code] = e.ID
	}
	return ids
}
