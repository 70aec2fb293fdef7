package ledger

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/uid"
	"github.com/shopspring/decimal"
)

// Component codes with a fixed meaning in classification.
const (
	CodeBasic   = "BASIC"
	CodeLoanDed = "LOAN_DED"
)

// AccountFor maps a payslip line to its account and side. Every source has an explicit
// arm for both signs.
func AccountFor(l payrun.Line, comp *payrun.Component) (Account, Side) {
	category := payrun.ComponentCategory("")
	if comp != nil {
		category = comp.Category
	}
	if l.Sign == payrun.Earning {
		switch l.Source {
		case payrun.SourceStructure:
			if l.ComponentCode == CodeBasic || category == payrun.CategoryBasic {
				return AccountBasicSalary, Debit
			}
			return AccountAllowances, Debit
		case payrun.SourceStatutory, payrun.SourceSmartPolicy, payrun.SourceManual,
			payrun.SourceAdjustment, payrun.SourceDebtRepayment:
			return AccountAllowances, Debit
		}
		return AccountAllowances, Debit
	}

	switch l.Source {
	case payrun.SourceStatutory:
		return AccountStatutoryPayable, Credit
	case payrun.SourceDebtRepayment:
		return AccountEmployeeReceivable, Credit
	case payrun.SourceStructure, payrun.SourceSmartPolicy, payrun.SourceManual, payrun.SourceAdjustment:
		switch {
		case category == payrun.CategoryStatutory:
			return AccountStatutoryPayable, Credit
		case category == payrun.CategoryLoan || l.ComponentCode == CodeLoanDed:
			return AccountLoanRecovery, Credit
		}
		return AccountOtherRecoveries, Credit
	}
	return AccountOtherRecoveries, Credit
}

type postingKey struct {
	account Account
	side    Side
}

// Build aggregates payslips into a balanced ledger. Ids derive from the run id so the
// same payslips always produce identical entries.
func Build(run payrun.Run, payslips []payrun.Payslip, components map[string]payrun.Component, now time.Time) Ledger {
	l := Ledger{
		ID:                        uid.Deterministic("ledger", run.ID),
		CompanyID:                 run.CompanyID,
		RunID:                     run.ID,
		PeriodID:                  run.PeriodID,
		TotalGross:                decimal.Zero,
		TotalDeduction:            decimal.Zero,
		TotalNet:                  decimal.Zero,
		TotalEmployerContribution: decimal.Zero,
		Status:                    StatusDraft,
		GeneratedAt:               now,
	}

	sums := make(map[postingKey]decimal.Decimal)
	post := func(a Account, s Side, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		k := postingKey{a, s}
		sums[k] = sums[k].Add(amount)
	}

	for _, p := range payslips {
		l.TotalGross = l.TotalGross.Add(p.Gross)
		l.TotalDeduction = l.TotalDeduction.Add(p.TotalDeductions)
		l.TotalNet = l.TotalNet.Add(p.Net)
		l.TotalEmployerContribution = l.TotalEmployerContribution.Add(p.EmployerContribution)

		for _, line := range p.Lines {
			var comp *payrun.Component
			if line.ComponentID != nil {
				if c, ok := components[*line.ComponentID]; ok {
					comp = &c
				}
			}
			a, s := AccountFor(line, comp)
			post(a, s, line.Amount)
		}
		post(AccountEmployerStatutory, Debit, p.EmployerContribution)
		post(AccountStatutoryPayable, Credit, p.EmployerContribution)
		post(AccountEmployeeReceivable, Debit, p.NegativeBalance)
		post(AccountNetPayable, Credit, p.Net)
	}

	keys := make([]postingKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account.Code() != keys[j].account.Code() {
			return keys[i].account.Code() < keys[j].account.Code()
		}
		return keys[i].side < keys[j].side
	})

	for _, k := range keys {
		e := Entry{
			ID:          uid.Deterministic(run.ID, k.account.Code(), string(k.side)),
			LedgerID:    l.ID,
			AccountCode: k.account.Code(),
			AccountName: k.account.Name(),
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		if k.side == Debit {
			e.Debit = sums[k]
		} else {
			e.Credit = sums[k]
		}
		l.Entries = append(l.Entries, e)
	}
	return l
}
