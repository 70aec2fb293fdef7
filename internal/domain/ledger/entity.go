package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the fixed chart of accounts used for payroll posting.
type Account uint8

const (
	AccountBasicSalary Account = iota + 1
	AccountAllowances
	AccountEmployerStatutory
	AccountEmployeeReceivable
	AccountLoanRecovery
	AccountNetPayable
	AccountStatutoryPayable
	AccountOtherRecoveries
	accountCount
)

type accountInfo struct {
	code string
	name string
}

var accounts = [...]accountInfo{
	AccountBasicSalary:        {"5100", "Basic Salary Expense"},
	AccountAllowances:         {"5200", "Allowances and Other Earnings"},
	AccountEmployerStatutory:  {"5300", "Employer Statutory Contribution Expense"},
	AccountEmployeeReceivable: {"1300", "Employee Receivable"},
	AccountLoanRecovery:       {"1310", "Loans and Advances to Employees"},
	AccountNetPayable:         {"2100", "Net Salaries Payable"},
	AccountStatutoryPayable:   {"2200", "Statutory Contributions Payable"},
	AccountOtherRecoveries:    {"4900", "Other Payroll Recoveries"},
}

func (a Account) Valid() bool  { return a >= AccountBasicSalary && a < accountCount }
func (a Account) Code() string { return accounts[a].code }
func (a Account) Name() string { return accounts[a].name }

// Accounts lists the chart in declaration order.
func Accounts() []Account {
	out := make([]Account, 0, accountCount-1)
	for a := AccountBasicSalary; a < accountCount; a++ {
		out = append(out, a)
	}
	return out
}

// Side of a posting.
type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

// Status enum
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Entry is one account line. Exactly one of Debit and Credit is non-zero.
type Entry struct {
	ID          string
	LedgerID    string
	AccountCode string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Ledger - the accounting record of one payroll run
type Ledger struct {
	ID                        string
	CompanyID                 string
	RunID                     string
	PeriodID                  string
	TotalGross                decimal.Decimal
	TotalDeduction            decimal.Decimal
	TotalNet                  decimal.Decimal
	TotalEmployerContribution decimal.Decimal
	Status                    Status
	Entries                   []Entry
	GeneratedAt               time.Time
	PostedAt                  *time.Time
	PostedBy                  *string
}

// Balance returns the debit and credit totals.
func (l Ledger) Balance() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range l.Entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

func (l Ledger) IsBalanced() bool {
	d, c := l.Balance()
	return d.Equal(c)
}
