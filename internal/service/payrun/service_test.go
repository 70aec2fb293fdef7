package payrun

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/wage"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rules"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	auditsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/audit"
	ledgersvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/ledger"
	statutorysvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/statutory"
	validationsvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/validation"
	wagesvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/wage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = decimal.NewFromInt

func date(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

func earn(code string, amount int64) payrun.Line {
	return payrun.Line{ComponentCode: code, Amount: d(amount), Sign: payrun.Earning, Source: payrun.SourceStructure}
}

func deduct(code string, amount int64, src payrun.Source) payrun.Line {
	return payrun.Line{ComponentCode: code, Amount: d(amount), Sign: payrun.Deduction, Source: src}
}

type stubCalculator struct {
	mu    sync.Mutex
	lines map[string][]payrun.Line
	fail  map[string]error
}

func (c *stubCalculator) set(employeeID string, lines ...payrun.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[employeeID] = lines
}

func (c *stubCalculator) Compute(ctx context.Context, req wage.Request) (wage.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[req.Employee.ID]; err != nil {
		return wage.Result{}, err
	}
	lines := append([]payrun.Line(nil), c.lines[req.Employee.ID]...)
	gross, ded := payrun.SumLines(lines)
	return wage.Result{Lines: lines, Gross: gross, TotalDeductions: ded, EmployerContribution: decimal.Zero}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Emit(ctx context.Context, e audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) actions() []audit.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Action, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	svc   *PayrunServiceImpl
	store *memory.Store
	calc  *stubCalculator
	sink  *recordingSink
	ctx   context.Context
}

func statutoryConfig() statutory.Config {
	return statutory.Config{
		ID:              "cfg-1",
		CompanyID:       "co-1",
		Version:         1,
		EmployeeRate:    d(9),
		EmployerRate:    d(9),
		SanedRate:       decimal.RequireFromString("0.75"),
		HazardRate:      d(2),
		MaxCapAmount:    d(45000),
		MinBaseSalary:   d(1500),
		NationalsOnly:   true,
		NationalityCode: "SA",
		EffectiveDate:   date(2020, 1, 1),
		IsActive:        true,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddPeriod(payrun.Period{
		ID: "p-1", CompanyID: "co-1", Year: 2026, Month: 1,
		StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 31), Status: payrun.PeriodOpen,
	})
	store.AddStatutoryConfig(statutoryConfig())

	engine, err := rules.NewEngine()
	require.NoError(t, err)

	calc := &stubCalculator{lines: map[string][]payrun.Line{}, fail: map[string]error{}}
	sink := &recordingSink{}
	ledgerService := ledgersvc.NewLedgerService(store.Ledgers(), store.Runs(), store.Payslips(), store.Components(), store, auditsvc.Discard{})
	svc := NewPayrunService(
		Repositories{
			Runs:        store.Runs(),
			Payslips:    store.Payslips(),
			Periods:     store.Periods(),
			Adjustments: store.Adjustments(),
			Components:  store.Components(),
			Debts:       store.Debts(),
			Roster:      store.Roster(),
		},
		statutorysvc.NewGateService(store.Statutory()),
		calc,
		validationsvc.NewValidationService(store.Runs(), store.Payslips()),
		ledgerService,
		engine,
		store,
		sink,
		Config{Workers: 4},
	).(*PayrunServiceImpl)

	var mu sync.Mutex
	clock := date(2026, 2, 1).Add(9 * time.Hour)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}

	ctx := actor.WithActor(context.Background(), actor.Actor{CompanyID: "co-1", UserID: "hr-1"})
	return &fixture{svc: svc, store: store, calc: calc, sink: sink, ctx: ctx}
}

func (f *fixture) employee(id, code, category string, base int64) {
	f.store.AddEmployee(roster.Employee{
		ID: id, CompanyID: "co-1", Code: code, Name: "Employee " + code, Category: category, Nationality: "SA",
		Salary: roster.SalaryAssignment{BaseSalary: d(base)},
	})
}

func (f *fixture) openDebt(t *testing.T, employeeID string, amount int64, createdAt time.Time) debt.Debt {
	t.Helper()
	dbt, tx, err := debt.NewDebt("co-1", employeeID, d(amount), debt.SourceLoan, debt.Origin{}, "", "hr-1", createdAt)
	require.NoError(t, err)
	require.NoError(t, f.store.Debts().Create(f.ctx, dbt))
	require.NoError(t, f.store.Debts().AddTransaction(f.ctx, tx))
	return dbt
}

func assertBalanced(t *testing.T, p payrun.Payslip) {
	t.Helper()
	gross, ded := payrun.SumLines(p.Lines)
	assert.True(t, gross.Equal(p.Gross), "gross %s lines %s", p.Gross, gross)
	assert.True(t, ded.Equal(p.TotalDeductions), "deductions %s lines %s", p.TotalDeductions, ded)
	want := gross.Sub(ded)
	if want.IsNegative() {
		want = decimal.Zero
	}
	assert.True(t, want.Equal(p.Net), "net %s want %s", p.Net, want)
}

func findLine(p payrun.Payslip, code string) (payrun.Line, bool) {
	for _, l := range p.Lines {
		if l.ComponentCode == code {
			return l, true
		}
	}
	return payrun.Line{}, false
}

func TestCreateRun_NegativeNetCarriedForward(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 3000)
	f.calc.set("e1", earn("BASIC", 3000), deduct("PENALTY", 5000, payrun.SourceSmartPolicy))

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)
	require.Len(t, detail.Payslips, 1)

	p := detail.Payslips[0]
	assertBalanced(t, p)
	assert.True(t, p.Net.IsZero())
	assert.True(t, p.NegativeBalance.Equal(d(2000)))
	assert.Equal(t, 1, detail.Totals.NewDebtCount)
	assert.NotEmpty(t, p.Trace.Warnings)
	assert.Equal(t, "cfg-1", p.Trace.Statutory.ConfigID)

	debts, err := f.store.Debts().ListByEmployee(f.ctx, "e1", "co-1", false)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.True(t, debts[0].OriginalAmount.Equal(d(2000)))
	assert.Equal(t, debt.SourceNegativeBalance, debts[0].SourceType)
	require.NotNil(t, debts[0].RunID)
	assert.Equal(t, detail.Run.ID, *debts[0].RunID)
	require.NotNil(t, debts[0].PeriodID)
	assert.Equal(t, "p-1", *debts[0].PeriodID)

	txs, err := f.store.Debts().ListTransactions(f.ctx, debts[0].ID, "co-1")
	require.NoError(t, err)
	require.NoError(t, debt.VerifyChain(debts[0], txs))

	assert.Contains(t, f.sink.actions(), audit.ActionRunCreated)
}

func TestCreateRun_DeductionCapTrimsLowestPriorityFirst(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 10000)
	f.calc.set("e1",
		earn("BASIC", 10000),
		deduct("GOSI_DED", 900, payrun.SourceStatutory),
		deduct("LATE", 5100, payrun.SourceSmartPolicy),
	)

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	p := detail.Payslips[0]
	assertBalanced(t, p)
	assert.True(t, p.TotalDeductions.Equal(d(5000)), p.TotalDeductions.String())
	assert.True(t, p.Net.Equal(d(5000)))

	late, ok := findLine(p, "LATE")
	require.True(t, ok)
	assert.True(t, late.Amount.Equal(d(4100)))
	gosi, ok := findLine(p, "GOSI_DED")
	require.True(t, ok)
	assert.True(t, gosi.Amount.Equal(d(900)))

	var capStep *payrun.TraceStep
	for i := range p.Trace.Steps {
		if p.Trace.Steps[i].Step == "deduction_cap" {
			capStep = &p.Trace.Steps[i]
		}
	}
	require.NotNil(t, capStep)
	assert.True(t, capStep.Result.Equal(d(1000)))
}

func TestCreateRun_DeductionCapWithOddCentGross(t *testing.T) {
	f := newFixture(t)
	bank := "SA0380000000608010167519"
	f.store.AddEmployee(roster.Employee{
		ID: "e1", CompanyID: "co-1", Code: "E001", Name: "Employee E001", Category: "NATIONAL", Nationality: "SA",
		BankAccount: &bank,
		Salary:      roster.SalaryAssignment{BaseSalary: d(10000)},
	})
	basic := earn("BASIC", 0)
	basic.Amount = decimal.RequireFromString("10000.01")
	f.calc.set("e1", basic, deduct("LATE", 6000, payrun.SourceSmartPolicy))

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	// 50% of 10000.01 is 5000.005; the cap rounds down to 5000.00.
	p := detail.Payslips[0]
	assertBalanced(t, p)
	limit := money.Percent(p.Gross, decimal.NewFromInt(50))
	assert.True(t, p.TotalDeductions.LessThanOrEqual(limit), "deductions %s limit %s", p.TotalDeductions, limit)
	assert.True(t, p.TotalDeductions.Equal(d(5000)), p.TotalDeductions.String())

	res, err := f.svc.validator.ValidateRun(f.ctx, detail.Run.ID, validation.Options{Strict: true})
	require.NoError(t, err)
	assert.False(t, res.HasCode(validation.CodeExcessiveDeductions), res.Issues)

	approved, err := f.svc.ApproveRun(f.ctx, detail.Run.ID, payrun.ApproveRunRequest{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, payrun.StatusFinanceApproved, approved.Status)
}

func TestCreateRun_SettlesDebtsFIFOWithinHeadroom(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 10000)
	f.calc.set("e1", earn("BASIC", 10000), deduct("GOSI_DED", 1000, payrun.SourceStatutory))
	d1 := f.openDebt(t, "e1", 300, date(2025, 11, 1))
	d2 := f.openDebt(t, "e1", 5000, date(2025, 12, 1))

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	// budget = min(50% of 9000, 5000 - 1000) = 4000
	p := detail.Payslips[0]
	assertBalanced(t, p)
	assert.True(t, p.TotalDeductions.Equal(d(5000)))
	assert.True(t, p.Net.Equal(d(5000)))
	assert.True(t, detail.Totals.TotalDebtRepayment.Equal(d(4000)))

	first, err := f.store.Debts().GetByID(f.ctx, d1.ID, "co-1")
	require.NoError(t, err)
	assert.Equal(t, debt.StatusSettled, first.Status)

	second, err := f.store.Debts().GetByID(f.ctx, d2.ID, "co-1")
	require.NoError(t, err)
	assert.Equal(t, debt.StatusPartiallyPaid, second.Status)
	assert.True(t, second.RemainingBalance.Equal(d(1300)))

	for _, dbt := range []debt.Debt{first, second} {
		txs, err := f.store.Debts().ListTransactions(f.ctx, dbt.ID, "co-1")
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, debt.TxPayrollDeduction, txs[1].Type)
		assert.Equal(t, detail.Run.ID, *txs[1].RunID)
		require.NoError(t, debt.VerifyChain(dbt, txs))
	}
}

func TestCreateRun_SecondRunForPeriodRejected(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 5000)
	f.calc.set("e1", earn("BASIC", 5000))

	_, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	_, err = f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	assert.ErrorIs(t, err, payrun.ErrRunAlreadyExists)

	runs, payslips, _ := f.store.Counts()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, payslips)
}

func TestCreateRun_ConcurrentCreatesForSamePeriod(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 5000)
	f.employee("e2", "E002", "NATIONAL", 6000)
	f.calc.set("e1", earn("BASIC", 5000))
	f.calc.set("e2", earn("BASIC", 6000))

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, payrun.ErrRunAlreadyExists)
	}
	assert.Equal(t, 1, succeeded)

	runs, payslips, _ := f.store.Counts()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 2, payslips)
}

func TestCreateRun_RollsBackEverythingOnFailure(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 3000)
	f.employee("e2", "E002", "NATIONAL", 8000)
	f.calc.set("e1", earn("BASIC", 3000), deduct("PENALTY", 5000, payrun.SourceManual))
	f.calc.set("e2", earn("BASIC", 8000))
	f.store.AddAdjustment(payrun.Adjustment{
		ID: "adj-1", CompanyID: "co-1", EmployeeID: "e2", PeriodID: "p-1",
		Type: payrun.AdjustManualAddition, AdjustedAmount: d(250), Status: payrun.AdjustmentPosted,
	})
	boom := errors.New("disk full")
	f.store.InjectFault("adjustment.link", boom)

	_, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.ErrorIs(t, err, boom)

	runs, payslips, debts := f.store.Counts()
	assert.Zero(t, runs)
	assert.Zero(t, payslips)
	assert.Zero(t, debts)
	adj, ok := f.store.Adjustment("adj-1")
	require.True(t, ok)
	assert.Nil(t, adj.RunID)

	f.store.InjectFault("adjustment.link", nil)
	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)
	adj, _ = f.store.Adjustment("adj-1")
	require.NotNil(t, adj.RunID)
	assert.Equal(t, detail.Run.ID, *adj.RunID)
}

func TestCreateRun_WageFailureAbortsRun(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 5000)
	f.employee("e2", "E002", "NATIONAL", 5000)
	f.calc.set("e1", earn("BASIC", 5000))
	f.calc.fail["e2"] = errors.New("timeout")

	_, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	assert.ErrorIs(t, err, payrun.ErrWageComputation)

	runs, payslips, _ := f.store.Counts()
	assert.Zero(t, runs)
	assert.Zero(t, payslips)
}

func TestCreateRun_LinesAdjustmentsAndManualEntries(t *testing.T) {
	f := newFixture(t)
	f.store.AddComponent(payrun.Component{ID: "c-housing", CompanyID: "co-1", Code: "HOUSING", Sign: payrun.Earning, Category: payrun.CategoryAllowance, IsActive: true})
	f.employee("e1", "E001", "NATIONAL", 5000)
	housing, ghost := "c-housing", "c-ghost"
	f.calc.set("e1",
		earn("BASIC", 5000),
		payrun.Line{ComponentID: &housing, ComponentCode: "HOUSING", Amount: d(1000), Sign: payrun.Earning, Source: payrun.SourceStructure},
		payrun.Line{ComponentID: &ghost, ComponentCode: "GHOST", Amount: d(700), Sign: payrun.Earning, Source: payrun.SourceStructure},
	)
	f.store.AddAdjustment(payrun.Adjustment{
		ID: "adj-1", CompanyID: "co-1", EmployeeID: "e1", PeriodID: "p-1",
		Type: payrun.AdjustWaiveDeduction, OriginalAmount: d(300), AdjustedAmount: d(100), Status: payrun.AdjustmentPosted,
	})
	f.store.AddAdjustment(payrun.Adjustment{
		ID: "adj-other", CompanyID: "co-1", EmployeeID: "e9", PeriodID: "p-1",
		Type: payrun.AdjustManualAddition, AdjustedAmount: d(100), Status: payrun.AdjustmentPosted,
	})

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{
		PeriodID: "p-1",
		ManualLines: []payrun.ManualLineRequest{
			{EmployeeID: "e1", ComponentCode: "BONUS", Amount: d(400), Sign: "EARNING"},
			{EmployeeID: "e1", ComponentCode: "FINE", Amount: d(150), Sign: "DEDUCTION"},
		},
	})
	require.NoError(t, err)

	p := detail.Payslips[0]
	assertBalanced(t, p)
	_, hasGhost := findLine(p, "GHOST")
	assert.False(t, hasGhost)
	assert.NotEmpty(t, p.Trace.Warnings)

	// 5000 + 1000 + 400 + 200 refund
	assert.True(t, p.Gross.Equal(d(6600)), p.Gross.String())
	assert.True(t, p.TotalDeductions.Equal(d(150)))

	waived, ok := findLine(p, string(payrun.AdjustWaiveDeduction))
	require.True(t, ok)
	assert.Equal(t, payrun.SourceAdjustment, waived.Source)
	fine, ok := findLine(p, "FINE")
	require.True(t, ok)
	assert.Equal(t, payrun.SourceManual, fine.Source)

	adj, _ := f.store.Adjustment("adj-1")
	require.NotNil(t, adj.RunID)
	other, _ := f.store.Adjustment("adj-other")
	assert.Nil(t, other.RunID)
}

func TestCreateRun_FilterExpression(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 5000)
	f.employee("e2", "E002", "EXPAT", 9000)
	f.calc.set("e1", earn("BASIC", 5000))
	f.calc.set("e2", earn("BASIC", 9000))

	preview, err := f.svc.PreviewRun(f.ctx, payrun.CreateRunRequest{
		PeriodID: "p-1",
		Filters:  payrun.Filters{Expression: `employee.category == "EXPAT" && employee.base_salary > 8000.0`},
	})
	require.NoError(t, err)
	require.Len(t, preview.Payslips, 1)
	assert.Equal(t, "e2", preview.Payslips[0].EmployeeID)

	_, err = f.svc.PreviewRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1", Filters: payrun.Filters{Expression: "employee.("}})
	assert.ErrorIs(t, err, payrun.ErrInvalidFilter)

	_, err = f.svc.PreviewRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1", Filters: payrun.Filters{ExcludeEmployeeIDs: []string{"e1", "e2"}}})
	assert.ErrorIs(t, err, payrun.ErrNoEligibleEmployees)
}

func TestPreviewRun_PersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 3000)
	f.calc.set("e1", earn("BASIC", 3000), deduct("PENALTY", 5000, payrun.SourceSmartPolicy))

	preview, err := f.svc.PreviewRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)
	require.Len(t, preview.NewDebts, 1)
	assert.True(t, preview.NewDebts[0].OriginalAmount.Equal(d(2000)))
	assert.True(t, preview.Totals.NewDebtTotal.Equal(d(2000)))

	runs, payslips, debts := f.store.Counts()
	assert.Zero(t, runs)
	assert.Zero(t, payslips)
	assert.Zero(t, debts)
}

func TestCreateRun_StatutoryGateBlocks(t *testing.T) {
	f := newFixture(t)
	f.store.AddPeriod(payrun.Period{
		ID: "p-x", CompanyID: "co-2", Year: 2026, Month: 1,
		StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 31), Status: payrun.PeriodOpen,
	})
	ctx := actor.WithActor(context.Background(), actor.Actor{CompanyID: "co-2", UserID: "hr-2"})

	_, err := f.svc.CreateRun(ctx, payrun.CreateRunRequest{PeriodID: "p-x"})
	var blocked *validation.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.True(t, blocked.Result.HasCode(statutory.CodeNoConfig))
	assert.ErrorIs(t, err, validation.ErrValidationFailed)
}

func TestRunLifecycle(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 8000)
	f.employee("e2", "E002", "NATIONAL", 3000)
	f.calc.set("e1", earn("BASIC", 8000), deduct("GOSI_DED", 780, payrun.SourceStatutory))
	f.calc.set("e2", earn("BASIC", 3000), deduct("PENALTY", 5000, payrun.SourceSmartPolicy))

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)
	runID := detail.Run.ID

	_, err = f.svc.PayRun(f.ctx, runID)
	assert.ErrorIs(t, err, payrun.ErrInvalidTransition)

	approved, err := f.svc.ApproveRun(f.ctx, runID, payrun.ApproveRunRequest{Notes: "checked"})
	require.NoError(t, err)
	assert.Equal(t, payrun.StatusFinanceApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)

	l, err := f.store.Ledgers().GetByRun(f.ctx, runID, "co-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, l.Status)
	assert.True(t, l.IsBalanced())

	_, err = f.svc.CancelRun(f.ctx, runID, payrun.CancelRunRequest{})
	assert.ErrorIs(t, err, payrun.ErrInvalidTransition)

	paid, err := f.svc.PayRun(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, payrun.StatusPaid, paid.Status)

	l, err = f.store.Ledgers().GetByRun(f.ctx, runID, "co-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, l.Status)

	period, err := f.store.Periods().GetByID(f.ctx, "p-1", "co-1")
	require.NoError(t, err)
	assert.Equal(t, payrun.PeriodPaid, period.Status)

	got, err := f.svc.GetRun(f.ctx, runID)
	require.NoError(t, err)
	for _, p := range got.Payslips {
		assert.Equal(t, payrun.StatusPaid, p.Status)
		assertBalanced(t, p)
	}

	_, err = f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	assert.ErrorIs(t, err, payrun.ErrPeriodAlreadyPaid)

	assert.Equal(t, []audit.Action{audit.ActionRunCreated, audit.ActionRunApproved, audit.ActionRunPaid}, f.sink.actions())
}

func TestApproveRun_BlockedByStrictWarnings(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 3000)
	f.calc.set("e1", earn("BASIC", 3000), deduct("PENALTY", 5000, payrun.SourceSmartPolicy))

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	_, err = f.svc.ApproveRun(f.ctx, detail.Run.ID, payrun.ApproveRunRequest{Strict: true})
	var blocked *validation.BlockedError
	require.ErrorAs(t, err, &blocked)

	run, err := f.store.Runs().GetByID(f.ctx, detail.Run.ID, "co-1")
	require.NoError(t, err)
	assert.Equal(t, payrun.StatusDraft, run.Status)
}

func TestCancelRun_FreesPeriod(t *testing.T) {
	f := newFixture(t)
	f.employee("e1", "E001", "NATIONAL", 5000)
	f.calc.set("e1", earn("BASIC", 5000))

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelRun(f.ctx, detail.Run.ID, payrun.CancelRunRequest{Reason: "wrong roster"})
	require.NoError(t, err)
	assert.Equal(t, payrun.StatusCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Notes, "wrong roster")

	kept, err := f.store.Payslips().ListByRun(f.ctx, detail.Run.ID, "co-1")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	_, err = f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	list, err := f.svc.ListRuns(f.ctx, payrun.RunFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.TotalItems)
	assert.Equal(t, 20, list.Limit)
}

func TestCreateRun_WithStructureCalculator(t *testing.T) {
	f := newFixture(t)
	f.svc.calculator = wagesvc.NewStructureCalculator()
	f.employee("e1", "E001", "NATIONAL", 8000)

	detail, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "p-1"})
	require.NoError(t, err)

	p := detail.Payslips[0]
	assertBalanced(t, p)
	gosi, ok := findLine(p, wagesvc.CodeGOSI)
	require.True(t, ok)
	assert.True(t, gosi.Amount.Equal(d(780)))
	assert.True(t, p.EmployerContribution.Equal(d(940)))
	assert.True(t, p.IsNational)
}

func TestCreateRun_InputErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{})
	assert.Error(t, err)

	_, err = f.svc.CreateRun(f.ctx, payrun.CreateRunRequest{PeriodID: "missing"})
	assert.ErrorIs(t, err, payrun.ErrPeriodNotFound)

	_, err = f.svc.CreateRun(context.Background(), payrun.CreateRunRequest{PeriodID: "p-1"})
	assert.ErrorIs(t, err, actor.ErrNoActor)
}
