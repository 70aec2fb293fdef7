package payrun

import "context"

// RunRepository persists payroll runs. All methods are tenant scoped.
type RunRepository interface {
	Create(ctx context.Context, run Run) error
	GetByID(ctx context.Context, id string, companyID string) (Run, error)
	// FindLiveByPeriod returns the run that is neither CANCELLED nor ARCHIVED, or
	// ErrRunNotFound.
	FindLiveByPeriod(ctx context.Context, periodID string, companyID string) (Run, error)
	// ExistsPaidForPeriod reports whether a run other than excludeRunID is PAID for the period.
	ExistsPaidForPeriod(ctx context.Context, periodID string, companyID string, excludeRunID string) (bool, error)
	UpdateStatus(ctx context.Context, run Run) error
	List(ctx context.Context, companyID string, filter RunFilter) ([]Run, int64, error)
}

// PayslipRepository persists payslips together with their lines.
type PayslipRepository interface {
	Create(ctx context.Context, p Payslip) error
	GetByID(ctx context.Context, id string, companyID string) (Payslip, error)
	ListByRun(ctx context.Context, runID string, companyID string) ([]Payslip, error)
	UpdateStatusByRun(ctx context.Context, runID string, companyID string, status Status) error
}

type PeriodRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Period, error)
	MarkPaid(ctx context.Context, id string, companyID string) error
}

type AdjustmentRepository interface {
	// ListUnlinkedPosted returns POSTED adjustments of the period not yet linked to a run.
	ListUnlinkedPosted(ctx context.Context, periodID string, companyID string) ([]Adjustment, error)
	// LinkToRun stamps runID on the given adjustments that are still unlinked and returns
	// how many rows were stamped.
	LinkToRun(ctx context.Context, runID string, companyID string, ids []string) (int64, error)
}

type ComponentRepository interface {
	ListByCompany(ctx context.Context, companyID string) ([]Component, error)
}
