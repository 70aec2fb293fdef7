package validation

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = decimal.NewFromInt

func strPtr(s string) *string { return &s }

// balanced builds a payslip whose header matches its lines.
func balanced(id, employee string, gross, ded int64) payrun.Payslip {
	net := d(gross - ded)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return payrun.Payslip{
		ID:              id,
		EmployeeID:      employee,
		EmployeeCode:    employee,
		Category:        "NATIONAL",
		IsNational:      true,
		BankAccount:     strPtr("SA0380000000608010167519"),
		BaseSalary:      d(gross),
		Gross:           d(gross),
		TotalDeductions: d(ded),
		Net:             net,
		Lines: []payrun.Line{
			{ComponentCode: "BASIC", Amount: d(gross), Sign: payrun.Earning, Source: payrun.SourceStructure},
			{ComponentCode: "GOSI_DED", Amount: d(ded), Sign: payrun.Deduction, Source: payrun.SourceStatutory},
		},
	}
}

func TestEvaluatePayslip_Clean(t *testing.T) {
	issues := EvaluatePayslip(balanced("p1", "e1", 10000, 975), validation.DefaultOptions())
	assert.Empty(t, issues)
}

func TestEvaluatePayslip_BalanceTolerance(t *testing.T) {
	opts := validation.DefaultOptions()

	p := balanced("p1", "e1", 10000, 1000)
	p.Net = d(9050) // within 1% of gross
	assert.Empty(t, EvaluatePayslip(p, opts))

	p.Net = d(9200)
	issues := EvaluatePayslip(p, opts)
	require.Len(t, issues, 1)
	assert.Equal(t, validation.CodeBalanceMismatch, issues[0].Code)
	assert.Equal(t, validation.SeverityError, issues[0].Severity)
	assert.Equal(t, "9000.00", issues[0].Expected)

	zero := balanced("p2", "e2", 0, 0)
	zero.Lines = nil
	zero.Net = decimal.RequireFromString("0.02")
	assert.Len(t, CheckBalance(zero, opts.TolerancePercent), 1, "tolerance floor is 0.01")
}

func TestEvaluatePayslip_Catalogue(t *testing.T) {
	opts := validation.DefaultOptions()
	opts.MinimumWage = d(4000)
	opts.MinimumWageCategories = []string{"NATIONAL"}

	insolvent := balanced("p1", "e1", 3000, 5000)
	insolvent.BankAccount = nil
	issues := EvaluatePayslip(insolvent, opts)
	codes := codesOf(issues)
	assert.ElementsMatch(t, []string{
		validation.CodeNegativeNet,
		validation.CodeBelowMinWage,
		validation.CodeExcessiveDeductions,
		validation.CodeMissingBankAccount,
	}, codes)

	expat := balanced("p2", "e2", 3000, 0)
	expat.Category = "EXPAT"
	assert.Empty(t, EvaluatePayslip(expat, opts), "minimum wage only applies to listed categories")

	rich := balanced("p3", "e3", 600000, 0)
	assert.Equal(t, []string{validation.CodeExceedsMaxSalary}, codesOf(EvaluatePayslip(rich, opts)))

	negative := balanced("p4", "e4", 0, 0)
	negative.Gross = d(-10)
	negative.Lines = nil
	assert.Contains(t, codesOf(EvaluatePayslip(negative, opts)), validation.CodeNegativeGross)
}

func TestEvaluatePayslip_LineMismatch(t *testing.T) {
	p := balanced("p1", "e1", 10000, 975)
	p.Lines[0].Amount = d(9990)
	p.Lines[1].Amount = decimal.RequireFromString("975.5")
	assert.Equal(t, []string{validation.CodeLinesGrossMismatch}, codesOf(EvaluatePayslip(p, validation.DefaultOptions())))
}

func TestEvaluateRun(t *testing.T) {
	opts := validation.DefaultOptions()

	issues, bc := EvaluateRun(nil, false, opts)
	assert.Equal(t, []string{validation.CodeEmptyRun}, codesOf(issues))
	assert.True(t, bc.IsBalanced)

	slips := []payrun.Payslip{
		balanced("p1", "e1", 10000, 975),
		balanced("p2", "e1", 8000, 780),
		balanced("p3", "e3", 3000, 5000),
	}
	issues, bc = EvaluateRun(slips, true, opts)
	codes := codesOf(issues)
	assert.Contains(t, codes, validation.CodePeriodAlreadyPaid)
	assert.Contains(t, codes, validation.CodeDuplicateEmployees)
	assert.NotContains(t, codes, validation.CodeTotalBalanceMismatch)
	assert.True(t, bc.TotalNet.Equal(d(16245)))
	assert.True(t, bc.ExpectedNet.Equal(d(16245)))

	res := validation.NewResult(issues, false, time.Time{})
	assert.False(t, res.CanProceed)
}

func TestEvaluateRun_TotalMismatch(t *testing.T) {
	a := balanced("p1", "e1", 10000, 0)
	a.Net = decimal.RequireFromString("10050")
	b := balanced("p2", "e2", 10000, 0)
	b.Net = decimal.RequireFromString("10050")

	issues, bc := EvaluateRun([]payrun.Payslip{a, b}, false, validation.DefaultOptions())
	assert.False(t, bc.IsBalanced)
	assert.True(t, bc.Variance.Equal(d(100)))
	assert.Equal(t, []string{validation.CodeTotalBalanceMismatch}, codesOf(issues))
}

func TestStatsAndRecommendations(t *testing.T) {
	slips := []payrun.Payslip{
		balanced("p1", "e1", 1000, 0),
		balanced("p2", "e2", 3000, 0),
		balanced("p3", "e3", 2000, 0),
	}
	slips[2].IsNational = false

	st := Stats(slips)
	assert.Equal(t, 3, st.PayslipCount)
	assert.True(t, st.AverageNet.Equal(d(2000)))
	assert.True(t, st.MedianNet.Equal(d(2000)))
	assert.True(t, st.HighestNet.Equal(d(3000)))
	assert.True(t, st.LowestNet.Equal(d(1000)))
	assert.Equal(t, 2, st.Nationals)
	assert.Equal(t, 1, st.NonNationals)

	res := validation.Result{Issues: []validation.Issue{
		{Code: validation.CodeMissingBankAccount},
		{Code: validation.CodeMissingBankAccount},
		{Code: validation.CodeEmptyRun},
	}}
	assert.Len(t, Recommend(res), 1)
}

func codesOf(issues []validation.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Code)
	}
	return out
}
