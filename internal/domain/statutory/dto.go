package statutory

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
)

type ConfigResponse struct {
	ID                    string     `json:"id"`
	Version               int        `json:"version"`
	EmployeeRate          float64    `json:"employee_rate"`
	EmployerRate          float64    `json:"employer_rate"`
	SanedRate             float64    `json:"saned_rate"`
	HazardRate            float64    `json:"hazard_rate"`
	MaxCapAmount          float64    `json:"max_cap_amount"`
	MinBaseSalary         float64    `json:"min_base_salary"`
	MinimumWage           float64    `json:"minimum_wage"`
	MinimumWageCategories []string   `json:"minimum_wage_categories,omitempty"`
	DeductionCapPercent   float64    `json:"deduction_cap_percent"`
	DebtSettlementPercent float64    `json:"debt_settlement_percent"`
	NationalsOnly         bool       `json:"nationals_only"`
	NationalityCode       string     `json:"nationality_code,omitempty"`
	EffectiveDate         time.Time  `json:"effective_date"`
	EndDate               *time.Time `json:"end_date,omitempty"`
}

type GateResponse struct {
	validation.ResultResponse
	AsOf   string          `json:"as_of"`
	Config *ConfigResponse `json:"config,omitempty"`
}

func ToConfigResponse(c Config) ConfigResponse {
	return ConfigResponse{
		ID:                    c.ID,
		Version:               c.Version,
		EmployeeRate:          money.Display(c.EmployeeRate),
		EmployerRate:          money.Display(c.EmployerRate),
		SanedRate:             money.Display(c.SanedRate),
		HazardRate:            money.Display(c.HazardRate),
		MaxCapAmount:          money.Display(c.MaxCapAmount),
		MinBaseSalary:         money.Display(c.MinBaseSalary),
		MinimumWage:           money.Display(c.MinimumWage),
		MinimumWageCategories: c.MinimumWageCategories,
		DeductionCapPercent:   money.Display(c.DeductionCapPercent),
		DebtSettlementPercent: money.Display(c.DebtSettlementPercent),
		NationalsOnly:         c.NationalsOnly,
		NationalityCode:       c.NationalityCode,
		EffectiveDate:         c.EffectiveDate,
		EndDate:               c.EndDate,
	}
}

func ToGateResponse(r GateResult, asOf time.Time) GateResponse {
	resp := GateResponse{
		ResultResponse: validation.ToResultResponse(r.Result),
		AsOf:           asOf.Format("2006-01-02"),
	}
	if r.Config != nil {
		c := ToConfigResponse(*r.Config)
		resp.Config = &c
	}
	return resp
}
