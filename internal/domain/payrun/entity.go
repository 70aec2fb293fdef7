package payrun

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/shopspring/decimal"
)

// PeriodStatus enum
type PeriodStatus string

const (
	PeriodDraft  PeriodStatus = "DRAFT"
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodLocked PeriodStatus = "LOCKED"
	PeriodPaid   PeriodStatus = "PAID"
)

// Period - calendar month window, owned by period management
type Period struct {
	ID        string
	CompanyID string
	Year      int
	Month     int
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingDays is the number of calendar days in the window, both ends included.
func (p Period) WorkingDays() int {
	return int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
}

// Status is shared by runs and their payslips.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusFinanceApproved Status = "FINANCE_APPROVED"
	StatusPaid            Status = "PAID"
	StatusCancelled       Status = "CANCELLED"
	StatusArchived        Status = "ARCHIVED"
)

// IsLive reports whether a run in this status blocks another run for its period.
func (s Status) IsLive() bool {
	return s != StatusCancelled && s != StatusArchived
}

// Run - one batch execution against one period
type Run struct {
	ID          string
	CompanyID   string
	PeriodID    string
	Status      Status
	ProcessedBy string
	Notes       string
	ApprovedBy  *string
	ApprovedAt  *time.Time
	PaidBy      *string
	PaidAt      *time.Time
	CancelledBy *string
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Totals aggregates payslip headers of a run.
type Totals struct {
	RunID                     string
	PayslipCount              int
	TotalGross                decimal.Decimal
	TotalDeductions           decimal.Decimal
	TotalNet                  decimal.Decimal
	TotalEmployerContribution decimal.Decimal
	TotalDebtRepayment        decimal.Decimal
	NewDebtCount              int
	NewDebtTotal              decimal.Decimal
}

// TraceStep is one named calculation step kept for audit.
type TraceStep struct {
	Step    string          `json:"step"`
	Formula string          `json:"formula"`
	Result  decimal.Decimal `json:"result"`
}

// Trace is the payslip calculation trace; it is never used for invariant checking.
type Trace struct {
	Statutory statutory.Snapshot `json:"statutory"`
	Steps     []TraceStep        `json:"steps"`
	Warnings  []string           `json:"warnings,omitempty"`
}

func (t *Trace) Add(step, formula string, result decimal.Decimal) {
	t.Steps = append(t.Steps, TraceStep{Step: step, Formula: formula, Result: result})
}

func (t *Trace) Warn(msg string) {
	t.Warnings = append(t.Warnings, msg)
}

// Payslip - one per employee and run. Gross and TotalDeductions are always the sums of
// Lines; Net is max(0, Gross - TotalDeductions).
type Payslip struct {
	ID                   string
	CompanyID            string
	RunID                string
	PeriodID             string
	EmployeeID           string
	EmployeeCode         string
	EmployeeName         string
	Category             string
	Nationality          string
	BankAccount          *string
	IsNational           bool
	BaseSalary           decimal.Decimal
	Gross                decimal.Decimal
	TotalDeductions      decimal.Decimal
	Net                  decimal.Decimal
	EmployerContribution decimal.Decimal
	// NegativeBalance is the shortfall carried forward as a new debt when deductions
	// exceeded gross.
	NegativeBalance decimal.Decimal
	Status          Status
	Lines           []Line
	Trace           Trace
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ComponentCategory classifies pay components for ledger posting.
type ComponentCategory string

const (
	CategoryBasic     ComponentCategory = "BASIC"
	CategoryAllowance ComponentCategory = "ALLOWANCE"
	CategoryOvertime  ComponentCategory = "OVERTIME"
	CategoryStatutory ComponentCategory = "STATUTORY"
	CategoryLoan      ComponentCategory = "LOAN"
	CategoryPenalty   ComponentCategory = "PENALTY"
	CategoryOther     ComponentCategory = "OTHER"
)

// Component - tenant pay component master data (read-only to the engine)
type Component struct {
	ID        string
	CompanyID string
	Code      string
	Name      string
	Sign      Sign
	Category  ComponentCategory
	IsActive  bool
}

// AdjustmentType enum
type AdjustmentType string

const (
	AdjustWaiveDeduction AdjustmentType = "WAIVE_DEDUCTION"
	AdjustConvertToLeave AdjustmentType = "CONVERT_TO_LEAVE"
	AdjustManualAddition AdjustmentType = "MANUAL_ADDITION"
	AdjustManualDeduct   AdjustmentType = "MANUAL_DEDUCTION"
)

// AdjustmentStatus enum
type AdjustmentStatus string

const (
	AdjustmentPending   AdjustmentStatus = "PENDING"
	AdjustmentPosted    AdjustmentStatus = "POSTED"
	AdjustmentCancelled AdjustmentStatus = "CANCELLED"
)

// Adjustment - reviewer-approved change to one employee's payslip
type Adjustment struct {
	ID             string
	CompanyID      string
	EmployeeID     string
	PeriodID       string
	Type           AdjustmentType
	OriginalAmount decimal.Decimal
	AdjustedAmount decimal.Decimal
	Status         AdjustmentStatus
	RunID          *string
	Reason         string
	CreatedAt      time.Time
}

// Effect converts the adjustment into a payslip line effect. ok is false when the
// adjustment changes nothing.
func (a Adjustment) Effect() (sign Sign, amount decimal.Decimal, ok bool) {
	switch a.Type {
	case AdjustManualAddition:
		return Earning, a.AdjustedAmount, a.AdjustedAmount.IsPositive()
	case AdjustManualDeduct:
		return Deduction, a.AdjustedAmount, a.AdjustedAmount.IsPositive()
	case AdjustWaiveDeduction, AdjustConvertToLeave:
		// The deduction already inside the wage lines is refunded down to AdjustedAmount.
		refund := a.OriginalAmount.Sub(a.AdjustedAmount)
		return Earning, refund, refund.IsPositive()
	}
	return 0, decimal.Zero, false
}

// RunFilter for listing runs
type RunFilter struct {
	PeriodID *string
	Status   *Status
	Page     int
	Limit    int
}
