package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	statutorysvc "github.com/cmlabs-hris/payroll-engine-go/internal/service/statutory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Emit(ctx context.Context, e audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func config(id, company string, end *time.Time) statutory.Config {
	return statutory.Config{
		ID:            id,
		CompanyID:     company,
		Version:       1,
		EmployeeRate:  decimal.NewFromInt(9),
		EmployerRate:  decimal.NewFromInt(9),
		SanedRate:     decimal.RequireFromString("0.75"),
		HazardRate:    decimal.NewFromInt(2),
		MaxCapAmount:  decimal.NewFromInt(45000),
		MinBaseSalary: decimal.NewFromInt(1500),
		NationalsOnly: true,
		EffectiveDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       end,
		IsActive:      true,
	}
}

func TestWatchExpiry(t *testing.T) {
	now := time.Now().UTC()
	soon := now.Add(10 * 24 * time.Hour)
	past := now.Add(-5 * 24 * time.Hour)

	store := memory.NewStore()
	store.AddStatutoryConfig(config("cfg-a", "co-a", &soon))
	store.AddStatutoryConfig(config("cfg-b", "co-b", &past))
	store.AddStatutoryConfig(config("cfg-c", "co-c", nil))

	sink := &recordingSink{}
	jobs := NewStatutoryJobs(store.Statutory(), statutorysvc.NewGateService(store.Statutory()), sink)
	jobs.now = func() time.Time { return now }

	require.NoError(t, jobs.WatchExpiry(context.Background()))

	byCompany := map[string]audit.Event{}
	for _, e := range sink.events {
		assert.Equal(t, audit.ActionStatutoryExpiring, e.Action)
		byCompany[e.CompanyID] = e
	}
	assert.Contains(t, byCompany, "co-a")
	assert.Contains(t, byCompany, "co-b")
	assert.NotContains(t, byCompany, "co-c")
	assert.Equal(t, "cfg-a", byCompany["co-a"].EntityID)
}

func TestScheduler_RunOnceRecoversPanics(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.AddJob("boom", time.Hour, func(ctx context.Context) error { panic("bad job") })
	s.AddJob("ok", time.Hour, func(ctx context.Context) error {
		ran++
		return nil
	})

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	assert.Equal(t, 1, ran)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	s.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
}
