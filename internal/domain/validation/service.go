package validation

import "context"

// ValidationService is the read-only gate over persisted runs and payslips.
type ValidationService interface {
	ValidateRun(ctx context.Context, runID string, opts Options) (Result, error)
	// QuickValidate runs the full gate and keeps only ERROR issues.
	QuickValidate(ctx context.Context, runID string) (Result, error)
	ValidatePayslip(ctx context.Context, payslipID string) (Result, error)
	Report(ctx context.Context, runID string) (Report, error)
}
