package ledger

import "context"

// LedgerService posts payroll runs to the general ledger.
type LedgerService interface {
	// Generate rebuilds the DRAFT ledger of a run from its payslips.
	Generate(ctx context.Context, runID string) (Ledger, error)
	Post(ctx context.Context, runID string) (Ledger, error)
	Get(ctx context.Context, runID string) (Ledger, error)
}
