package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
)

// StatutoryJobs watches tenant statutory configurations for expiry.
type StatutoryJobs struct {
	provider statutory.Provider
	gate     statutory.Gate
	sink     audit.Sink
	now      func() time.Time
}

func NewStatutoryJobs(provider statutory.Provider, gate statutory.Gate, sink audit.Sink) *StatutoryJobs {
	return &StatutoryJobs{provider: provider, gate: gate, sink: sink, now: time.Now}
}

func (j *StatutoryJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	scheduler.AddJob("statutory_expiry_watch", interval, j.WatchExpiry)
}

// WatchExpiry runs the gate for today for every tenant with an active configuration
// and emits an audit event for each configuration that expired or expires soon.
func (j *StatutoryJobs) WatchExpiry(ctx context.Context) error {
	companies, err := j.provider.CompaniesWithActiveConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	today := j.now().UTC().Truncate(24 * time.Hour)
	flagged := 0
	for _, companyID := range companies {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := j.gate.Validate(ctx, companyID, today, statutory.GateOptions{})
		if err != nil {
			slog.Error("Cron: statutory validation failed", "company_id", companyID, "error", err)
			continue
		}
		for _, is := range res.Issues {
			if is.Code != statutory.CodeExpiringSoon && is.Code != statutory.CodeConfigExpired {
				continue
			}
			entityID := ""
			if res.Config != nil {
				entityID = res.Config.ID
			}
			j.sink.Emit(ctx, audit.Event{
				Action:      audit.ActionStatutoryExpiring,
				CompanyID:   companyID,
				EntityType:  audit.EntityStatutoryConfig,
				EntityID:    entityID,
				NewValue:    map[string]any{"code": is.Code, "end_date": is.Actual},
				Description: is.Message,
			})
			flagged++
		}
	}

	slog.Info("Cron: statutory expiry watch completed", "companies", len(companies), "flagged", flagged)
	return nil
}
