package payrun

import "context"

// PayrunService orchestrates payroll runs. The tenant and actor come from the context.
type PayrunService interface {
	CreateRun(ctx context.Context, req CreateRunRequest) (RunDetail, error)
	PreviewRun(ctx context.Context, req CreateRunRequest) (Preview, error)
	ApproveRun(ctx context.Context, runID string, req ApproveRunRequest) (Run, error)
	PayRun(ctx context.Context, runID string) (Run, error)
	CancelRun(ctx context.Context, runID string, req CancelRunRequest) (Run, error)

	GetRun(ctx context.Context, runID string) (RunDetail, error)
	GetRunTotals(ctx context.Context, runID string) (Totals, error)
	ListRuns(ctx context.Context, filter RunFilter) (ListRunsResult, error)
}
