package debt

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/uid"
	"github.com/shopspring/decimal"
)

// Origin links a debt or transaction to the payroll run that produced it.
type Origin struct {
	RunID    *string
	PeriodID *string
}

// NewDebt opens a debt and its INITIAL_DEBT transaction (balanceBefore 0).
func NewDebt(companyID, employeeID string, amount decimal.Decimal, source SourceType, origin Origin, notes, createdBy string, now time.Time) (Debt, Transaction, error) {
	if !amount.IsPositive() {
		return Debt{}, Transaction{}, ErrInvalidAmount
	}
	if !source.Valid() {
		return Debt{}, Transaction{}, fmt.Errorf("unknown debt source %q", source)
	}
	d := Debt{
		ID:               uid.New(),
		CompanyID:        companyID,
		EmployeeID:       employeeID,
		OriginalAmount:   amount,
		RemainingBalance: amount,
		Status:           StatusActive,
		SourceType:       source,
		RunID:            origin.RunID,
		PeriodID:         origin.PeriodID,
		Notes:            notes,
		Version:          1,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx := Transaction{
		ID:            uid.New(),
		DebtID:        d.ID,
		CompanyID:     companyID,
		Sequence:      1,
		Type:          TxInitialDebt,
		Source:        TxSourceSystem,
		Amount:        amount,
		BalanceBefore: decimal.Zero,
		BalanceAfter:  amount,
		RunID:         origin.RunID,
		Notes:         notes,
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}
	if source != SourceNegativeBalance {
		tx.Source = TxSourceManual
	}
	return d, tx, nil
}

// Movement describes one payment-like change applied through Pay.
type Movement struct {
	Type      TransactionType
	Source    TransactionSource
	RunID     *string
	Notes     string
	CreatedBy string
	At        time.Time
}

// Pay reduces the balance by amount, truncated to what is still owed. It returns the
// appended transaction; amount must be positive.
func (d *Debt) Pay(amount decimal.Decimal, m Movement) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	if d.Status.IsClosed() {
		return Transaction{}, ErrDebtClosed
	}
	applied := money.Min(amount, d.RemainingBalance)
	before := d.RemainingBalance
	d.RemainingBalance = before.Sub(applied)
	switch {
	case d.RemainingBalance.IsZero():
		d.Status = StatusSettled
	case d.Status != StatusSuspended:
		d.Status = StatusPartiallyPaid
	}
	return d.appendTx(m, applied, before), nil
}

// WriteOff forgives the whole remaining balance. OriginalAmount is kept for reporting.
func (d *Debt) WriteOff(reason, by string, at time.Time) (Transaction, error) {
	if d.Status.IsClosed() {
		return Transaction{}, ErrDebtClosed
	}
	before := d.RemainingBalance
	d.RemainingBalance = decimal.Zero
	d.Status = StatusWrittenOff
	if reason != "" {
		if d.Notes != "" {
			d.Notes += "\n"
		}
		d.Notes += "Write-off: " + reason
	}
	return d.appendTx(Movement{Type: TxWriteOff, Source: TxSourceManual, Notes: reason, CreatedBy: by, At: at}, before, before), nil
}

// Suspend toggles SUSPENDED. Resuming restores PARTIALLY_PAID when anything was
// recovered, ACTIVE otherwise.
func (d *Debt) Suspend(suspend bool, at time.Time) error {
	if d.Status.IsClosed() {
		return ErrDebtClosed
	}
	if suspend {
		if d.Status == StatusSuspended {
			return ErrDebtAlreadySuspended
		}
		d.Status = StatusSuspended
	} else {
		if d.Status != StatusSuspended {
			return ErrDebtNotSuspended
		}
		d.Status = StatusActive
		if d.RemainingBalance.LessThan(d.OriginalAmount) {
			d.Status = StatusPartiallyPaid
		}
	}
	d.Version++
	d.UpdatedAt = at
	return nil
}

func (d *Debt) appendTx(m Movement, amount, before decimal.Decimal) Transaction {
	d.Version++
	d.UpdatedAt = m.At
	return Transaction{
		ID:            uid.New(),
		DebtID:        d.ID,
		CompanyID:     d.CompanyID,
		Sequence:      d.Version,
		Type:          m.Type,
		Source:        m.Source,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  d.RemainingBalance,
		RunID:         m.RunID,
		Notes:         m.Notes,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.At,
	}
}

// Settlement is one debt touched by a payroll deduction.
type Settlement struct {
	Debt            Debt
	ExpectedVersion int
	Transaction     Transaction
}

// DeductionPlan is the outcome of PlanDeduction.
type DeductionPlan struct {
	TotalDeducted decimal.Decimal
	Settlements   []Settlement
	// RemainingDebts are the collectible debts still open after the plan, oldest first.
	RemainingDebts []Debt
}

// PlanDeduction settles collectible debts oldest-first from available x maxPercent/100,
// truncated to the cent. maxPercent is clamped to [0, 100]; zero deducts nothing.
// A debt is never overdrawn and each touched debt gets exactly one PAYROLL_DEDUCTION
// transaction. The input slice is not modified.
func PlanDeduction(debts []Debt, available, maxPercent decimal.Decimal, m Movement) DeductionPlan {
	plan := DeductionPlan{TotalDeducted: decimal.Zero}
	maxPercent = money.Clamp(maxPercent, decimal.Zero, decimal.NewFromInt(100))
	budget := money.FloorMoney(money.Percent(money.Max(available, decimal.Zero), maxPercent))

	ordered := make([]Debt, 0, len(debts))
	for _, d := range debts {
		if d.Status.IsCollectible() && d.RemainingBalance.IsPositive() {
			ordered = append(ordered, d)
		}
	}
	SortOldestFirst(ordered)

	m.Type = TxPayrollDeduction
	if m.Source == "" {
		m.Source = TxSourcePayroll
	}
	for _, d := range ordered {
		if !budget.IsPositive() {
			plan.RemainingDebts = append(plan.RemainingDebts, d)
			continue
		}
		expected := d.Version
		take := money.Min(budget, d.RemainingBalance)
		tx, err := d.Pay(take, m)
		if err != nil {
			continue
		}
		budget = budget.Sub(take)
		plan.TotalDeducted = plan.TotalDeducted.Add(take)
		plan.Settlements = append(plan.Settlements, Settlement{Debt: d, ExpectedVersion: expected, Transaction: tx})
		if !d.Status.IsClosed() {
			plan.RemainingDebts = append(plan.RemainingDebts, d)
		}
	}
	return plan
}

// SortOldestFirst orders debts by creation time, ties broken by id.
func SortOldestFirst(debts []Debt) {
	sort.SliceStable(debts, func(i, j int) bool {
		if debts[i].CreatedAt.Equal(debts[j].CreatedAt) {
			return debts[i].ID < debts[j].ID
		}
		return debts[i].CreatedAt.Before(debts[j].CreatedAt)
	})
}

// TotalActive sums the remaining balance of ACTIVE and PARTIALLY_PAID debts.
func TotalActive(debts []Debt) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		if d.Status.IsCollectible() {
			total = total.Add(d.RemainingBalance)
		}
	}
	return total
}

// VerifyChain checks the conservation rules of a debt against its transactions:
// the walk balanceAfter = balanceBefore - amount links up, and original - remaining
// equals everything recovered after the initial entry.
func VerifyChain(d Debt, txs []Transaction) error {
	sorted := append([]Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	recovered := decimal.Zero
	balance := decimal.Zero
	for i, tx := range sorted {
		if i == 0 {
			if tx.Type != TxInitialDebt || !tx.BalanceBefore.IsZero() || !tx.BalanceAfter.Equal(d.OriginalAmount) {
				return fmt.Errorf("%w: first entry must be the initial debt", ErrBrokenChain)
			}
			balance = tx.BalanceAfter
			continue
		}
		if !tx.BalanceBefore.Equal(balance) {
			return fmt.Errorf("%w: entry %d starts at %s, previous ended at %s", ErrBrokenChain, tx.Sequence, tx.BalanceBefore, balance)
		}
		if !tx.BalanceAfter.Equal(tx.BalanceBefore.Sub(tx.Amount)) {
			return fmt.Errorf("%w: entry %d does not subtract its amount", ErrBrokenChain, tx.Sequence)
		}
		recovered = recovered.Add(tx.Amount)
		balance = tx.BalanceAfter
	}
	if !d.Paid().Equal(recovered) {
		return fmt.Errorf("%w: paid %s, transactions %s", ErrBrokenChain, d.Paid(), recovered)
	}
	if len(sorted) > 0 && !balance.Equal(d.RemainingBalance) {
		return fmt.Errorf("%w: balance %s, chain ends at %s", ErrBrokenChain, d.RemainingBalance, balance)
	}
	if d.RemainingBalance.IsNegative() || d.RemainingBalance.GreaterThan(d.OriginalAmount) {
		return fmt.Errorf("%w: remaining balance out of range", ErrBrokenChain)
	}
	return nil
}
