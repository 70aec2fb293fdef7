package ledger

import "errors"

var (
	ErrLedgerNotFound      = errors.New("payroll ledger not found")
	ErrLedgerAlreadyPosted = errors.New("payroll ledger already posted")
	ErrLedgerUnbalanced    = errors.New("payroll ledger debits do not equal credits")
)
