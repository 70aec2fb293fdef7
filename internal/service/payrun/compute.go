package payrun

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/wage"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/uid"
	"github.com/shopspring/decimal"
)

// runContext is everything shared by the payslips of one run.
type runContext struct {
	run        payrun.Run
	period     payrun.Period
	snapshot   statutory.Snapshot
	components map[string]payrun.Component
	actorID    string
	now        time.Time
}

// employeeInput is the raw material of one payslip.
type employeeInput struct {
	employee    roster.Employee
	wage        wage.Result
	manual      []payrun.ManualLineRequest
	adjustments []payrun.Adjustment
	openDebts   []debt.Debt
}

// employeeOutcome is one computed payslip and the mutations it needs.
type employeeOutcome struct {
	payslip       payrun.Payslip
	commands      []payrun.Command
	adjustmentIDs []string
	newDebt       *debt.Debt
	warnings      []string
}

// computePayslip runs the per-employee pipeline: raw lines, manual lines, adjustments,
// reference check, debt settlement, negative balance carry-forward and the deduction
// cap. Header totals always come from the kept lines.
func (rc runContext) computePayslip(in employeeInput) (employeeOutcome, error) {
	emp := in.employee
	out := employeeOutcome{}
	p := payrun.Payslip{
		ID:                   uid.New(),
		CompanyID:            rc.run.CompanyID,
		RunID:                rc.run.ID,
		PeriodID:             rc.run.PeriodID,
		EmployeeID:           emp.ID,
		EmployeeCode:         emp.Code,
		EmployeeName:         emp.Name,
		Category:             emp.Category,
		Nationality:          emp.Nationality,
		BankAccount:          emp.BankAccount,
		IsNational:           rc.snapshot.NationalityCode != "" && emp.Nationality == rc.snapshot.NationalityCode,
		BaseSalary:           emp.Salary.BaseSalary,
		EmployerContribution: in.wage.EmployerContribution,
		NegativeBalance:      decimal.Zero,
		Status:               payrun.StatusDraft,
		Trace:                payrun.Trace{Statutory: rc.snapshot},
		CreatedAt:            rc.now,
		UpdatedAt:            rc.now,
	}
	warn := func(msg string, args ...any) {
		text := fmt.Sprintf(msg, args...)
		p.Trace.Warn(text)
		out.warnings = append(out.warnings, emp.Code+": "+text)
	}

	lines := make([]payrun.Line, 0, len(in.wage.Lines)+len(in.manual)+len(in.adjustments)+2)
	for _, l := range in.wage.Lines {
		if !l.Source.Valid() {
			l.Source = payrun.SourceSmartPolicy
		}
		lines = append(lines, l)
	}
	p.Trace.Add("wage_lines", "lines returned by the wage collaborator", decimal.NewFromInt(int64(len(in.wage.Lines))))

	for _, ml := range in.manual {
		sign, err := payrun.ParseSign(ml.Sign)
		if err != nil {
			return out, err
		}
		lines = append(lines, payrun.Line{
			ComponentID:   ml.ComponentID,
			ComponentCode: ml.ComponentCode,
			Description:   ml.Description,
			Amount:        ml.Amount,
			Sign:          sign,
			Source:        payrun.SourceManual,
		})
	}

	for _, adj := range in.adjustments {
		out.adjustmentIDs = append(out.adjustmentIDs, adj.ID)
		sign, amount, ok := adj.Effect()
		if !ok {
			continue
		}
		lines = append(lines, payrun.Line{
			ComponentCode: string(adj.Type),
			Description:   adj.Reason,
			Amount:        amount,
			Sign:          sign,
			Source:        payrun.SourceAdjustment,
		})
	}

	lines = rc.keepValidLines(lines, warn)

	gross, ded := payrun.SumLines(lines)
	net := gross.Sub(ded)
	p.Trace.Add("provisional_gross", "sum(earning lines)", gross)
	p.Trace.Add("provisional_deductions", "sum(deduction lines)", ded)
	p.Trace.Add("provisional_net", "gross - deductions", net)

	capLimit := money.FloorMoney(money.Percent(gross, rc.snapshot.DeductionCapPercent))

	if net.IsPositive() && len(in.openDebts) > 0 {
		headroom := money.Max(capLimit.Sub(ded), decimal.Zero)
		share := money.FloorMoney(money.Percent(net, rc.snapshot.DebtSettlementPercent))
		budget := money.Min(share, headroom)
		runID := rc.run.ID
		plan := debt.PlanDeduction(in.openDebts, budget, decimal.NewFromInt(100), debt.Movement{
			Source:    debt.TxSourcePayroll,
			RunID:     &runID,
			Notes:     fmt.Sprintf("Payroll deduction for period %04d-%02d", rc.period.Year, rc.period.Month),
			CreatedBy: rc.actorID,
			At:        rc.now,
		})
		for _, st := range plan.Settlements {
			lines = append(lines, payrun.Line{
				ComponentCode: "DEBT_REPAYMENT",
				Description:   "Debt repayment " + st.Debt.ID,
				Amount:        st.Transaction.Amount,
				Sign:          payrun.Deduction,
				Source:        payrun.SourceDebtRepayment,
			})
			out.commands = append(out.commands, payrun.ApplyDebtTransactionCmd{
				Debt:            st.Debt,
				ExpectedVersion: st.ExpectedVersion,
				Transaction:     st.Transaction,
			})
		}
		p.Trace.Add("debt_settlement", "min(settlement% x net, cap - deductions)", plan.TotalDeducted)
		gross, ded = payrun.SumLines(lines)
		net = gross.Sub(ded)
	}

	switch {
	case net.IsNegative():
		shortfall := net.Neg()
		runID, periodID := rc.run.ID, rc.run.PeriodID
		d, tx, err := debt.NewDebt(rc.run.CompanyID, emp.ID, shortfall, debt.SourceNegativeBalance,
			debt.Origin{RunID: &runID, PeriodID: &periodID},
			fmt.Sprintf("Negative balance carried forward from period %04d-%02d", rc.period.Year, rc.period.Month),
			rc.actorID, rc.now)
		if err != nil {
			return out, fmt.Errorf("failed to open carry-forward debt: %w", err)
		}
		p.NegativeBalance = shortfall
		out.newDebt = &d
		out.commands = append(out.commands, payrun.CreateDebtCmd{Debt: d, Transaction: tx})
		p.Trace.Add("negative_balance", "deductions - gross, carried forward as debt; net clamped to 0", shortfall)
		warn("deductions exceed gross by %s, carried forward as debt", shortfall.StringFixed(money.DisplayPlaces))

	case ded.GreaterThan(capLimit):
		var excess decimal.Decimal
		lines, excess = payrun.TrimDeductions(lines, capLimit)
		p.Trace.Add("deduction_cap", fmt.Sprintf("deductions limited to %s%% of gross", rc.snapshot.DeductionCapPercent), excess)
		warn("deductions capped at %s, excess %s removed", capLimit.StringFixed(money.DisplayPlaces), excess.StringFixed(money.DisplayPlaces))
		slog.Warn("Deduction cap applied", "run_id", rc.run.ID, "employee_id", emp.ID, "cap", capLimit.String(), "excess", excess.String())
	}

	for i := range lines {
		lines[i].ID = uid.New()
		lines[i].PayslipID = p.ID
		lines[i].Order = i
	}
	p.Lines = lines
	p.Gross, p.TotalDeductions = payrun.SumLines(lines)
	p.Net = money.Max(p.Gross.Sub(p.TotalDeductions), decimal.Zero)
	p.Trace.Add("gross", "sum(kept earning lines)", p.Gross)
	p.Trace.Add("total_deductions", "sum(kept deduction lines)", p.TotalDeductions)
	p.Trace.Add("net", "max(0, gross - deductions)", p.Net)

	out.payslip = p
	out.commands = append([]payrun.Command{payrun.CreatePayslipCmd{Payslip: p}}, out.commands...)
	return out, nil
}

// keepValidLines drops lines that reference unknown components or carry a
// non-positive amount.
func (rc runContext) keepValidLines(lines []payrun.Line, warn func(string, ...any)) []payrun.Line {
	kept := lines[:0]
	for _, l := range lines {
		if l.ComponentID != nil {
			if _, ok := rc.components[*l.ComponentID]; !ok {
				warn("line %s dropped: unknown component %s", l.ComponentCode, *l.ComponentID)
				slog.Warn("Dropped payslip line with unknown component",
					"run_id", rc.run.ID, "component_id", *l.ComponentID, "component_code", l.ComponentCode)
				continue
			}
		}
		if !l.Amount.IsPositive() {
			if l.Amount.IsNegative() {
				warn("line %s dropped: negative amount %s", l.ComponentCode, l.Amount.String())
			}
			continue
		}
		kept = append(kept, l)
	}
	return kept
}
