package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Runs().Create(ctx, payrun.Run{ID: "r1", CompanyID: "c", PeriodID: "p", Status: payrun.StatusDraft}))
		// Nested calls join the outer transaction.
		return s.WithinTransaction(ctx, func(ctx context.Context) error {
			require.NoError(t, s.Payslips().Create(ctx, payrun.Payslip{ID: "ps1", CompanyID: "c", RunID: "r1", EmployeeID: "e"}))
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	runs, payslips, _ := s.Counts()
	assert.Zero(t, runs)
	assert.Zero(t, payslips)
}

func TestWithinTransaction_Commits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.Runs().Create(ctx, payrun.Run{ID: "r1", CompanyID: "c", PeriodID: "p", Status: payrun.StatusDraft})
	}))
	_, err := s.Runs().GetByID(ctx, "r1", "c")
	assert.NoError(t, err)
	_, err = s.Runs().GetByID(ctx, "r1", "other-tenant")
	assert.ErrorIs(t, err, payrun.ErrRunNotFound)
}

func TestWithinTransaction_CommitHooks(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var fired []string
	require.NoError(t, s.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.WithinTransaction(ctx, func(ctx context.Context) error {
			database.AfterCommit(ctx, func() { fired = append(fired, "inner") })
			assert.Empty(t, fired)
			return nil
		})
	}))
	assert.Equal(t, []string{"inner"}, fired)

	fired = nil
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		database.AfterCommit(ctx, func() { fired = append(fired, "rolled back") })
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, fired)
}

func TestRunCreate_LiveRunUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Runs().Create(ctx, payrun.Run{ID: "r1", CompanyID: "c", PeriodID: "p", Status: payrun.StatusDraft}))
	err := s.Runs().Create(ctx, payrun.Run{ID: "r2", CompanyID: "c", PeriodID: "p", Status: payrun.StatusDraft})
	assert.ErrorIs(t, err, payrun.ErrRunAlreadyExists)

	require.NoError(t, s.Runs().UpdateStatus(ctx, payrun.Run{ID: "r1", CompanyID: "c", PeriodID: "p", Status: payrun.StatusCancelled}))
	assert.NoError(t, s.Runs().Create(ctx, payrun.Run{ID: "r2", CompanyID: "c", PeriodID: "p", Status: payrun.StatusDraft}))
}

func TestDebtUpdate_OptimisticVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d, _, err := debt.NewDebt("c", "e", decimal.NewFromInt(100), debt.SourceLoan, debt.Origin{}, "", "u", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Debts().Create(ctx, d))

	first, second := d, d
	_, err = first.Pay(decimal.NewFromInt(10), debt.Movement{Type: debt.TxManualPayment, At: time.Now()})
	require.NoError(t, err)
	_, err = second.Pay(decimal.NewFromInt(20), debt.Movement{Type: debt.TxManualPayment, At: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.Debts().Update(ctx, first, d.Version))
	assert.ErrorIs(t, s.Debts().Update(ctx, second, d.Version), debt.ErrConcurrentModification)

	got, err := s.Debts().GetByID(ctx, d.ID, "c")
	require.NoError(t, err)
	assert.True(t, got.RemainingBalance.Equal(decimal.NewFromInt(90)))
}

func TestAdjustmentLinkIsOneShot(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.AddAdjustment(payrun.Adjustment{ID: "a1", CompanyID: "c", PeriodID: "p", Status: payrun.AdjustmentPosted})

	n, err := s.Adjustments().LinkToRun(ctx, "r1", "c", []string{"a1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Adjustments().LinkToRun(ctx, "r2", "c", []string{"a1"})
	require.NoError(t, err)
	assert.Zero(t, n)

	a, _ := s.Adjustment("a1")
	require.NotNil(t, a.RunID)
	assert.Equal(t, "r1", *a.RunID)

	left, err := s.Adjustments().ListUnlinkedPosted(ctx, "p", "c")
	require.NoError(t, err)
	assert.Empty(t, left)
}
