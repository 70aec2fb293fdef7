package statutory

import (
	"context"
	"time"
)

// Provider supplies statutory configuration. Implementations: postgres table or YAML file.
type Provider interface {
	// ActiveConfig returns the active config effective at asOf. When none is effective
	// yet or all are expired, the latest active config is returned so the gate can
	// report why it is unusable. ErrConfigNotFound when the tenant has none.
	ActiveConfig(ctx context.Context, companyID string, asOf time.Time) (Config, error)
	LegalRates(ctx context.Context) (LegalRates, error)
	// CompaniesWithActiveConfig lists tenants for the expiry watch job.
	CompaniesWithActiveConfig(ctx context.Context) ([]string, error)
}
