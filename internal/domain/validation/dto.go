package validation

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Statistics summarises net pay across a run's payslips.
type Statistics struct {
	PayslipCount int
	AverageNet   decimal.Decimal
	MedianNet    decimal.Decimal
	HighestNet   decimal.Decimal
	LowestNet    decimal.Decimal
	Nationals    int
	NonNationals int
}

// Report is a full validation plus statistics and recommendations.
type Report struct {
	Validation      Result
	Statistics      Statistics
	Recommendations []string
}

type BalanceCheckResponse struct {
	TotalGross      float64 `json:"total_gross"`
	TotalDeductions float64 `json:"total_deductions"`
	TotalNet        float64 `json:"total_net"`
	ExpectedNet     float64 `json:"expected_net"`
	Variance        float64 `json:"variance"`
	IsBalanced      bool    `json:"is_balanced"`
}

type ResultResponse struct {
	IsValid        bool                  `json:"is_valid"`
	CanProceed     bool                  `json:"can_proceed"`
	Summary        Summary               `json:"summary"`
	PayslipCount   int                   `json:"payslip_count"`
	BalanceCheck   *BalanceCheckResponse `json:"balance_check,omitempty"`
	Issues         []Issue               `json:"issues"`
	EmployeeIssues map[string][]Issue    `json:"employee_issues,omitempty"`
	ValidatedAt    time.Time             `json:"validated_at"`
}

type StatisticsResponse struct {
	PayslipCount int     `json:"payslip_count"`
	AverageNet   float64 `json:"average_net"`
	MedianNet    float64 `json:"median_net"`
	HighestNet   float64 `json:"highest_net"`
	LowestNet    float64 `json:"lowest_net"`
	Nationals    int     `json:"nationals"`
	NonNationals int     `json:"non_nationals"`
}

type ReportResponse struct {
	Validation      ResultResponse     `json:"validation"`
	Statistics      StatisticsResponse `json:"statistics"`
	Recommendations []string           `json:"recommendations"`
}

func ToResultResponse(r Result) ResultResponse {
	resp := ResultResponse{
		IsValid:        r.IsValid,
		CanProceed:     r.CanProceed,
		Summary:        r.Summary,
		PayslipCount:   r.PayslipCount,
		Issues:         r.Issues,
		EmployeeIssues: r.EmployeeIssues,
		ValidatedAt:    r.ValidatedAt,
	}
	if r.BalanceCheck != nil {
		resp.BalanceCheck = &BalanceCheckResponse{
			TotalGross:      money.Display(r.BalanceCheck.TotalGross),
			TotalDeductions: money.Display(r.BalanceCheck.TotalDeductions),
			TotalNet:        money.Display(r.BalanceCheck.TotalNet),
			ExpectedNet:     money.Display(r.BalanceCheck.ExpectedNet),
			Variance:        money.Display(r.BalanceCheck.Variance),
			IsBalanced:      r.BalanceCheck.IsBalanced,
		}
	}
	return resp
}

func ToReportResponse(r Report) ReportResponse {
	return ReportResponse{
		Validation: ToResultResponse(r.Validation),
		Statistics: StatisticsResponse{
			PayslipCount: r.Statistics.PayslipCount,
			AverageNet:   money.Display(r.Statistics.AverageNet),
			MedianNet:    money.Display(r.Statistics.MedianNet),
			HighestNet:   money.Display(r.Statistics.HighestNet),
			LowestNet:    money.Display(r.Statistics.LowestNet),
			Nationals:    r.Statistics.Nationals,
			NonNationals: r.Statistics.NonNationals,
		},
		Recommendations: r.Recommendations,
	}
}
