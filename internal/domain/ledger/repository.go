package ledger

import "context"

type LedgerRepository interface {
	GetByRun(ctx context.Context, runID string, companyID string) (Ledger, error)
	// ReplaceDraft deletes any DRAFT ledger of the run with its entries and inserts l.
	ReplaceDraft(ctx context.Context, l Ledger) error
	MarkPosted(ctx context.Context, l Ledger) error
}
