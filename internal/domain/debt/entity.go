package debt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum
type Status string

const (
	StatusActive        Status = "ACTIVE"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusSettled       Status = "SETTLED"
	StatusWrittenOff    Status = "WRITTEN_OFF"
	StatusSuspended     Status = "SUSPENDED"
)

// IsClosed reports whether no further money movement is allowed.
func (s Status) IsClosed() bool {
	return s == StatusSettled || s == StatusWrittenOff
}

// IsCollectible reports whether payroll deduction may touch the debt.
func (s Status) IsCollectible() bool {
	return s == StatusActive || s == StatusPartiallyPaid
}

// SourceType enum
type SourceType string

const (
	SourceNegativeBalance SourceType = "NEGATIVE_BALANCE"
	SourceLoan            SourceType = "LOAN"
	SourceAdvance         SourceType = "ADVANCE"
	SourceOther           SourceType = "OTHER"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceNegativeBalance, SourceLoan, SourceAdvance, SourceOther:
		return true
	}
	return false
}

// TransactionType enum
type TransactionType string

const (
	TxInitialDebt      TransactionType = "INITIAL_DEBT"
	TxPayrollDeduction TransactionType = "PAYROLL_DEDUCTION"
	TxManualPayment    TransactionType = "MANUAL_PAYMENT"
	TxWriteOff         TransactionType = "WRITE_OFF"
)

// TransactionSource records which process produced a transaction.
type TransactionSource string

const (
	TxSourcePayroll TransactionSource = "PAYROLL"
	TxSourceManual  TransactionSource = "MANUAL"
	TxSourceSystem  TransactionSource = "SYSTEM"
)

// Debt - one debt event owed back to the employer
type Debt struct {
	ID               string
	CompanyID        string
	EmployeeID       string
	OriginalAmount   decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           Status
	SourceType       SourceType
	RunID            *string
	PeriodID         *string
	Notes            string
	// Version increases with every transaction; writers update with WHERE version = previous.
	Version   int
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Paid is everything recovered or forgiven so far.
func (d Debt) Paid() decimal.Decimal {
	return d.OriginalAmount.Sub(d.RemainingBalance)
}

// Transaction - immutable movement under a debt. Sequence is the debt version it produced.
type Transaction struct {
	ID            string
	DebtID        string
	CompanyID     string
	Sequence      int
	Type          TransactionType
	Source        TransactionSource
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	RunID         *string
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
}

// Filter for paginated listing
type Filter struct {
	EmployeeID *string
	Status     *Status
	SourceType *SourceType
	Page       int
	Limit      int
}

// StatusTotal is the count and outstanding balance for one status.
type StatusTotal struct {
	Status    Status
	Count     int
	Original  decimal.Decimal
	Remaining decimal.Decimal
}
