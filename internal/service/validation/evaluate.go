package validation

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

var (
	minTolerance = decimal.RequireFromString("0.01")
	oneUnit      = decimal.NewFromInt(1)
)

var recommendFor = map[string]string{
	validation.CodeMissingBankAccount:  "Add bank account details for every employee before exporting the payment file",
	validation.CodeBelowMinWage:        "Some employees are paid below the configured minimum wage; review their salary assignments",
	validation.CodeExcessiveDeductions: "Some deductions exceed the deduction cap; review manual deductions and debt repayments",
	validation.CodeNegativeNet:         "Some payslips carry a negative balance forward as employee debt; review before approval",
	validation.CodeBalanceMismatch:     "Regenerate the run: payslip totals do not reconcile with their lines",
}

// expectedNet is max(0, gross - deductions).
func expectedNet(p payrun.Payslip) decimal.Decimal {
	return money.Max(decimal.Zero, p.Gross.Sub(p.TotalDeductions))
}

// CheckBalance is the balance-equation check used for single payslip re-validation.
func CheckBalance(p payrun.Payslip, tolerancePercent decimal.Decimal) []validation.Issue {
	expected := expectedNet(p)
	diff := p.Net.Sub(expected).Abs()
	threshold := money.Max(money.Percent(p.Gross.Abs(), tolerancePercent), minTolerance)
	if diff.LessThanOrEqual(threshold) {
		return nil
	}
	return []validation.Issue{{
		Code:       validation.CodeBalanceMismatch,
		Severity:   validation.SeverityError,
		Message:    "Net salary does not equal gross minus deductions",
		EmployeeID: p.EmployeeID,
		PayslipID:  p.ID,
		Field:      "net_salary",
		Expected:   expected.StringFixed(money.DisplayPlaces),
		Actual:     p.Net.StringFixed(money.DisplayPlaces),
	}}
}

// EvaluatePayslip runs every per-payslip rule.
func EvaluatePayslip(p payrun.Payslip, opts validation.Options) []validation.Issue {
	issues := CheckBalance(p, opts.TolerancePercent)
	base := func(code string, sev validation.Severity, msg string) validation.Issue {
		return validation.Issue{Code: code, Severity: sev, Message: msg, EmployeeID: p.EmployeeID, PayslipID: p.ID}
	}

	if p.Gross.IsNegative() {
		is := base(validation.CodeNegativeGross, validation.SeverityError, "Gross salary is negative")
		is.Actual = p.Gross.StringFixed(money.DisplayPlaces)
		issues = append(issues, is)
	}

	if raw := p.Gross.Sub(p.TotalDeductions); raw.IsNegative() || p.Net.IsNegative() {
		is := base(validation.CodeNegativeNet, validation.SeverityWarning, "Deductions exceed gross salary")
		is.Actual = raw.StringFixed(money.DisplayPlaces)
		is.Suggestion = "The shortfall is carried forward as employee debt"
		issues = append(issues, is)
	}

	if opts.MinimumWage.IsPositive() && contains(opts.MinimumWageCategories, p.Category) && p.BaseSalary.LessThan(opts.MinimumWage) {
		is := base(validation.CodeBelowMinWage, validation.SeverityWarning, "Base salary is below the minimum wage")
		is.Field = "base_salary"
		is.Expected = opts.MinimumWage.StringFixed(money.DisplayPlaces)
		is.Actual = p.BaseSalary.StringFixed(money.DisplayPlaces)
		issues = append(issues, is)
	}

	if p.Gross.GreaterThan(opts.MaxSalaryThreshold) {
		is := base(validation.CodeExceedsMaxSalary, validation.SeverityWarning, "Gross salary exceeds the review threshold")
		is.Expected = opts.MaxSalaryThreshold.StringFixed(money.DisplayPlaces)
		is.Actual = p.Gross.StringFixed(money.DisplayPlaces)
		issues = append(issues, is)
	}

	if p.Gross.IsPositive() {
		ratio := money.PercentOf(p.TotalDeductions, p.Gross)
		if ratio.GreaterThan(opts.DeductionCapPercent) {
			is := base(validation.CodeExcessiveDeductions, validation.SeverityWarning, "Deductions exceed the deduction cap")
			is.Expected = "<= " + opts.DeductionCapPercent.String() + "%"
			is.Actual = money.RoundMoney(ratio).String() + "%"
			issues = append(issues, is)
		}
	}

	linesGross, linesDed := payrun.SumLines(p.Lines)
	if linesGross.Sub(p.Gross).Abs().GreaterThan(oneUnit) {
		is := base(validation.CodeLinesGrossMismatch, validation.SeverityWarning, "Earning lines do not add up to gross salary")
		is.Expected = p.Gross.StringFixed(money.DisplayPlaces)
		is.Actual = linesGross.StringFixed(money.DisplayPlaces)
		issues = append(issues, is)
	}
	if linesDed.Sub(p.TotalDeductions).Abs().GreaterThan(oneUnit) {
		is := base(validation.CodeLinesDeductionsMismatch, validation.SeverityWarning, "Deduction lines do not add up to total deductions")
		is.Expected = p.TotalDeductions.StringFixed(money.DisplayPlaces)
		is.Actual = linesDed.StringFixed(money.DisplayPlaces)
		issues = append(issues, is)
	}

	if p.BankAccount == nil || *p.BankAccount == "" {
		issues = append(issues, base(validation.CodeMissingBankAccount, validation.SeverityInfo, "Employee has no bank account"))
	}
	return issues
}

// EvaluateRun runs the payslip rules plus the run-level rules. paidElsewhere reports
// whether another run of the same period is already PAID.
func EvaluateRun(payslips []payrun.Payslip, paidElsewhere bool, opts validation.Options) ([]validation.Issue, validation.BalanceCheck) {
	var issues []validation.Issue

	if len(payslips) == 0 {
		issues = append(issues, validation.Issue{
			Code:     validation.CodeEmptyRun,
			Severity: validation.SeverityWarning,
			Message:  "Run has no payslips",
		})
	}

	if paidElsewhere {
		issues = append(issues, validation.Issue{
			Code:     validation.CodePeriodAlreadyPaid,
			Severity: validation.SeverityError,
			Message:  "Another run for this period is already paid",
		})
	}

	seen := make(map[string]int, len(payslips))
	for _, p := range payslips {
		seen[p.EmployeeID]++
	}
	dupes := make([]string, 0)
	for id, n := range seen {
		if n > 1 {
			dupes = append(dupes, id)
		}
	}
	sort.Strings(dupes)
	for _, id := range dupes {
		issues = append(issues, validation.Issue{
			Code:       validation.CodeDuplicateEmployees,
			Severity:   validation.SeverityError,
			Message:    fmt.Sprintf("Employee appears on %d payslips in this run", seen[id]),
			EmployeeID: id,
		})
	}

	bc := validation.BalanceCheck{
		TotalGross:      decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
		ExpectedNet:     decimal.Zero,
	}
	for _, p := range payslips {
		issues = append(issues, EvaluatePayslip(p, opts)...)
		bc.TotalGross = bc.TotalGross.Add(p.Gross)
		bc.TotalDeductions = bc.TotalDeductions.Add(p.TotalDeductions)
		bc.TotalNet = bc.TotalNet.Add(p.Net)
		bc.ExpectedNet = bc.ExpectedNet.Add(expectedNet(p))
	}
	bc.Variance = bc.TotalNet.Sub(bc.ExpectedNet)
	bc.IsBalanced = bc.Variance.Abs().LessThanOrEqual(oneUnit)
	if !bc.IsBalanced {
		issues = append(issues, validation.Issue{
			Code:     validation.CodeTotalBalanceMismatch,
			Severity: validation.SeverityError,
			Message:  "Run net total does not reconcile with gross minus deductions",
			Expected: bc.ExpectedNet.StringFixed(money.DisplayPlaces),
			Actual:   bc.TotalNet.StringFixed(money.DisplayPlaces),
		})
	}
	return issues, bc
}

// Stats summarises net pay. The median is the upper middle value.
func Stats(payslips []payrun.Payslip) validation.Statistics {
	st := validation.Statistics{
		PayslipCount: len(payslips),
		AverageNet:   decimal.Zero,
		MedianNet:    decimal.Zero,
		HighestNet:   decimal.Zero,
		LowestNet:    decimal.Zero,
	}
	if len(payslips) == 0 {
		return st
	}
	nets := make([]decimal.Decimal, 0, len(payslips))
	for _, p := range payslips {
		nets = append(nets, p.Net)
		if p.IsNational {
			st.Nationals++
		} else {
			st.NonNationals++
		}
	}
	sort.Slice(nets, func(i, j int) bool { return nets[i].LessThan(nets[j]) })
	st.AverageNet = money.RoundMoney(money.Avg(nets...))
	st.MedianNet = nets[len(nets)/2]
	st.LowestNet = nets[0]
	st.HighestNet = nets[len(nets)-1]
	return st
}

// Recommend derives one recommendation per distinct issue code that has one.
func Recommend(res validation.Result) []string {
	out := make([]string, 0)
	done := make(map[string]bool)
	for _, is := range res.Issues {
		msg, ok := recommendFor[is.Code]
		if !ok || done[is.Code] {
			continue
		}
		done[is.Code] = true
		out = append(out, msg)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
