package roster

import (
	"context"
	"time"
)

// Provider returns employees with an active salary assignment for a period window,
// together with cost center allocations and approved advances overlapping it.
type Provider interface {
	EligibleEmployees(ctx context.Context, companyID string, start, end time.Time) ([]Employee, error)
}
