package validation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity of a validation issue. ERROR always blocks a transition, WARNING blocks only
// in strict mode, INFO never blocks.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Issue codes raised by the run and payslip gates.
const (
	CodeRunNotFound             = "RUN_NOT_FOUND"
	CodeEmptyRun                = "EMPTY_RUN"
	CodeBalanceMismatch         = "BALANCE_MISMATCH"
	CodeNegativeGross           = "NEGATIVE_GROSS"
	CodeNegativeNet             = "NEGATIVE_NET"
	CodeBelowMinWage            = "BELOW_MIN_WAGE"
	CodeExceedsMaxSalary        = "EXCEEDS_MAX_SALARY"
	CodeExcessiveDeductions     = "EXCESSIVE_DEDUCTIONS"
	CodeLinesGrossMismatch      = "LINES_GROSS_MISMATCH"
	CodeLinesDeductionsMismatch = "LINES_DEDUCTIONS_MISMATCH"
	CodeMissingBankAccount      = "MISSING_BANK_ACCOUNT"
	CodeDuplicateEmployees      = "DUPLICATE_EMPLOYEES"
	CodePeriodAlreadyPaid       = "PERIOD_ALREADY_PAID"
	CodeTotalBalanceMismatch    = "TOTAL_BALANCE_MISMATCH"
)

// Issue is one structured finding. Expected/Actual are preformatted strings so callers
// can render every problem at once.
type Issue struct {
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	EmployeeID string   `json:"employee_id,omitempty"`
	PayslipID  string   `json:"payslip_id,omitempty"`
	Field      string   `json:"field,omitempty"`
	Expected   string   `json:"expected,omitempty"`
	Actual     string   `json:"actual,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// BalanceCheck aggregates run totals. ExpectedNet is the sum of max(0, gross - deductions)
// per payslip.
type BalanceCheck struct {
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
	ExpectedNet     decimal.Decimal
	Variance        decimal.Decimal
	IsBalanced      bool
}

type Result struct {
	IsValid        bool
	CanProceed     bool
	Issues         []Issue
	Summary        Summary
	BalanceCheck   *BalanceCheck
	EmployeeIssues map[string][]Issue
	PayslipCount   int
	ValidatedAt    time.Time
}

// Options tunes the run gate. Zero values fall back to DefaultOptions.
type Options struct {
	Strict                bool
	TolerancePercent      decimal.Decimal
	MaxSalaryThreshold    decimal.Decimal
	DeductionCapPercent   decimal.Decimal
	MinimumWage           decimal.Decimal
	MinimumWageCategories []string
	ErrorsOnly            bool
}

// DefaultOptions mirrors the thresholds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TolerancePercent:    decimal.NewFromInt(1),
		MaxSalaryThreshold:  decimal.NewFromInt(500000),
		DeductionCapPercent: decimal.NewFromInt(50),
	}
}

// WithDefaults fills unset thresholds.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.TolerancePercent.IsZero() {
		o.TolerancePercent = def.TolerancePercent
	}
	if o.MaxSalaryThreshold.IsZero() {
		o.MaxSalaryThreshold = def.MaxSalaryThreshold
	}
	if o.DeductionCapPercent.IsZero() {
		o.DeductionCapPercent = def.DeductionCapPercent
	}
	return o
}

// NewResult counts severities and derives IsValid and CanProceed.
func NewResult(issues []Issue, strict bool, now time.Time) Result {
	if issues == nil {
		issues = []Issue{}
	}
	res := Result{
		Issues:         issues,
		EmployeeIssues: make(map[string][]Issue),
		ValidatedAt:    now,
	}
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			res.Summary.Errors++
		case SeverityWarning:
			res.Summary.Warnings++
		default:
			res.Summary.Info++
		}
		if is.EmployeeID != "" {
			res.EmployeeIssues[is.EmployeeID] = append(res.EmployeeIssues[is.EmployeeID], is)
		}
	}
	res.IsValid = res.Summary.Errors == 0
	if strict {
		res.CanProceed = res.Summary.Errors == 0 && res.Summary.Warnings == 0
	} else {
		res.CanProceed = res.Summary.Errors == 0
	}
	return res
}

// Errors returns only ERROR issues.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// HasCode reports whether any issue carries code.
func (r Result) HasCode(code string) bool {
	for _, is := range r.Issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

// Codes lists issue codes in order.
func (r Result) Codes() []string {
	codes := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		codes = append(codes, is.Code)
	}
	return codes
}
