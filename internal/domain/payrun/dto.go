package payrun

import (
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== REQUESTS ==========

// Filters narrows the roster of a run. Expression is a boolean rule over the employee
// (see the rules package for the available fields).
type Filters struct {
	EmployeeIDs        []string `json:"employee_ids,omitempty"`
	ExcludeEmployeeIDs []string `json:"exclude_employee_ids,omitempty"`
	Categories         []string `json:"categories,omitempty"`
	BranchIDs          []string `json:"branch_ids,omitempty"`
	Expression         string   `json:"expression,omitempty"`
}

// ManualLineRequest is a bonus or deduction supplied at run creation for one employee.
type ManualLineRequest struct {
	EmployeeID    string          `json:"employee_id"`
	ComponentID   *string         `json:"component_id,omitempty"`
	ComponentCode string          `json:"component_code"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Sign          string          `json:"sign"`
}

type CreateRunRequest struct {
	PeriodID              string              `json:"period_id"`
	Filters               Filters             `json:"filters"`
	ManualLines           []ManualLineRequest `json:"manual_lines,omitempty"`
	Notes                 string              `json:"notes,omitempty"`
	StrictStatutory       bool                `json:"strict_statutory,omitempty"`
	AllowExpiredStatutory bool                `json:"allow_expired_statutory,omitempty"`
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.PeriodID) {
		errs.Add("period_id", "is required")
	}
	if validator.HasDuplicates(r.Filters.EmployeeIDs) {
		errs.Add("filters.employee_ids", "must not contain duplicates")
	}
	for i, ml := range r.ManualLines {
		field := "manual_lines[" + strconv.Itoa(i) + "]"
		if validator.IsEmpty(ml.EmployeeID) {
			errs.Add(field+".employee_id", "is required")
		}
		if validator.IsEmpty(ml.ComponentCode) {
			errs.Add(field+".component_code", "is required")
		}
		if !validator.IsPositiveAmount(ml.Amount) {
			errs.Add(field+".amount", "must be greater than zero")
		}
		if _, err := ParseSign(ml.Sign); err != nil {
			errs.Add(field+".sign", "must be EARNING or DEDUCTION")
		}
	}
	return errs.Err()
}

// ManualLinesByEmployee groups the manual lines by employee, preserving order.
func (r *CreateRunRequest) ManualLinesByEmployee() map[string][]ManualLineRequest {
	out := make(map[string][]ManualLineRequest)
	for _, ml := range r.ManualLines {
		out[ml.EmployeeID] = append(out[ml.EmployeeID], ml)
	}
	return out
}

type ApproveRunRequest struct {
	Strict bool   `json:"strict,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

type CancelRunRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ========== RESULTS ==========

type RunDetail struct {
	Run      Run
	Payslips []Payslip
	Totals   Totals
}

// Preview is a computed run that was never persisted.
type Preview struct {
	Run      Run
	Payslips []Payslip
	Totals   Totals
	NewDebts []debt.Debt
	Warnings []string
}

type ListRunsResult struct {
	Runs       []Run
	TotalItems int64
	Page       int
	Limit      int
}

// ========== RESPONSES ==========

type LineResponse struct {
	ComponentID   *string  `json:"component_id,omitempty"`
	ComponentCode string   `json:"component_code"`
	Description   string   `json:"description,omitempty"`
	Amount        float64  `json:"amount"`
	Sign          Sign     `json:"sign"`
	Source        Source   `json:"source"`
	CostCenterID  *string  `json:"cost_center_id,omitempty"`
	Units         *float64 `json:"units,omitempty"`
	Rate          *float64 `json:"rate,omitempty"`
}

type PayslipResponse struct {
	ID                   string         `json:"id"`
	EmployeeID           string         `json:"employee_id"`
	EmployeeCode         string         `json:"employee_code"`
	EmployeeName         string         `json:"employee_name"`
	BaseSalary           float64        `json:"base_salary"`
	Gross                float64        `json:"gross_salary"`
	TotalDeductions      float64        `json:"total_deductions"`
	Net                  float64        `json:"net_salary"`
	EmployerContribution float64        `json:"employer_contribution"`
	NegativeBalance      float64        `json:"negative_balance,omitempty"`
	Status               Status         `json:"status"`
	Lines                []LineResponse `json:"lines"`
	Trace                *Trace         `json:"trace,omitempty"`
}

type TotalsResponse struct {
	PayslipCount              int     `json:"payslip_count"`
	TotalGross                float64 `json:"total_gross"`
	TotalDeductions           float64 `json:"total_deductions"`
	TotalNet                  float64 `json:"total_net"`
	TotalEmployerContribution float64 `json:"total_employer_contribution"`
	TotalDebtRepayment        float64 `json:"total_debt_repayment"`
	NewDebtCount              int     `json:"new_debt_count"`
	NewDebtTotal              float64 `json:"new_debt_total"`
}

type RunResponse struct {
	ID          string     `json:"id"`
	PeriodID    string     `json:"period_id"`
	Status      Status     `json:"status"`
	ProcessedBy string     `json:"processed_by"`
	Notes       string     `json:"notes,omitempty"`
	ApprovedBy  *string    `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PaidBy      *string    `json:"paid_by,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledBy *string    `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type RunDetailResponse struct {
	Run      RunResponse       `json:"run"`
	Totals   TotalsResponse    `json:"totals"`
	Payslips []PayslipResponse `json:"payslips"`
}

type PreviewResponse struct {
	RunDetailResponse
	NewDebts []debt.DebtResponse `json:"new_debts"`
	Warnings []string            `json:"warnings,omitempty"`
}

func displayPtr(v *decimal.Decimal) *float64 {
	if v == nil {
		return nil
	}
	f := money.Display(*v)
	return &f
}

func ToRunResponse(r Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		PeriodID:    r.PeriodID,
		Status:      r.Status,
		ProcessedBy: r.ProcessedBy,
		Notes:       r.Notes,
		ApprovedBy:  r.ApprovedBy,
		ApprovedAt:  r.ApprovedAt,
		PaidBy:      r.PaidBy,
		PaidAt:      r.PaidAt,
		CancelledBy: r.CancelledBy,
		CancelledAt: r.CancelledAt,
		CreatedAt:   r.CreatedAt,
	}
}

func ToRunResponses(runs []Run) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, ToRunResponse(r))
	}
	return out
}

func ToPayslipResponse(p Payslip, withTrace bool) PayslipResponse {
	resp := PayslipResponse{
		ID:                   p.ID,
		EmployeeID:           p.EmployeeID,
		EmployeeCode:         p.EmployeeCode,
		EmployeeName:         p.EmployeeName,
		BaseSalary:           money.Display(p.BaseSalary),
		Gross:                money.Display(p.Gross),
		TotalDeductions:      money.Display(p.TotalDeductions),
		Net:                  money.Display(p.Net),
		EmployerContribution: money.Display(p.EmployerContribution),
		NegativeBalance:      money.Display(p.NegativeBalance),
		Status:               p.Status,
		Lines:                make([]LineResponse, 0, len(p.Lines)),
	}
	for _, l := range p.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			ComponentID:   l.ComponentID,
			ComponentCode: l.ComponentCode,
			Description:   l.Description,
			Amount:        money.Display(l.Amount),
			Sign:          l.Sign,
			Source:        l.Source,
			CostCenterID:  l.CostCenterID,
			Units:         displayPtr(l.Units),
			Rate:          displayPtr(l.Rate),
		})
	}
	if withTrace {
		tr := p.Trace
		resp.Trace = &tr
	}
	return resp
}

func ToTotalsResponse(t Totals) TotalsResponse {
	return TotalsResponse{
		PayslipCount:              t.PayslipCount,
		TotalGross:                money.Display(t.TotalGross),
		TotalDeductions:           money.Display(t.TotalDeductions),
		TotalNet:                  money.Display(t.TotalNet),
		TotalEmployerContribution: money.Display(t.TotalEmployerContribution),
		TotalDebtRepayment:        money.Display(t.TotalDebtRepayment),
		NewDebtCount:              t.NewDebtCount,
		NewDebtTotal:              money.Display(t.NewDebtTotal),
	}
}

func ToRunDetailResponse(d RunDetail, withTrace bool) RunDetailResponse {
	resp := RunDetailResponse{
		Run:      ToRunResponse(d.Run),
		Totals:   ToTotalsResponse(d.Totals),
		Payslips: make([]PayslipResponse, 0, len(d.Payslips)),
	}
	for _, p := range d.Payslips {
		resp.Payslips = append(resp.Payslips, ToPayslipResponse(p, withTrace))
	}
	return resp
}

func ToPreviewResponse(p Preview) PreviewResponse {
	return PreviewResponse{
		RunDetailResponse: ToRunDetailResponse(RunDetail{Run: p.Run, Payslips: p.Payslips, Totals: p.Totals}, true),
		NewDebts:          debt.ToDebtResponses(p.NewDebts),
		Warnings:          p.Warnings,
	}
}

// ComputeTotals aggregates payslip headers.
func ComputeTotals(runID string, payslips []Payslip) Totals {
	t := Totals{
		RunID:                     runID,
		PayslipCount:              len(payslips),
		TotalGross:                decimal.Zero,
		TotalDeductions:           decimal.Zero,
		TotalNet:                  decimal.Zero,
		TotalEmployerContribution: decimal.Zero,
		TotalDebtRepayment:        decimal.Zero,
		NewDebtTotal:              decimal.Zero,
	}
	for _, p := range payslips {
		t.TotalGross = t.TotalGross.Add(p.Gross)
		t.TotalDeductions = t.TotalDeductions.Add(p.TotalDeductions)
		t.TotalNet = t.TotalNet.Add(p.Net)
		t.TotalEmployerContribution = t.TotalEmployerContribution.Add(p.EmployerContribution)
		for _, l := range p.Lines {
			if l.Source == SourceDebtRepayment && l.Sign == Deduction {
				t.TotalDebtRepayment = t.TotalDebtRepayment.Add(l.Amount)
			}
		}
		if p.NegativeBalance.IsPositive() {
			t.NewDebtCount++
			t.NewDebtTotal = t.NewDebtTotal.Add(p.NegativeBalance)
		}
	}
	return t
}
