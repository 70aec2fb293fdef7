package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type LedgerServiceImpl struct {
	ledgerRepo    ledger.LedgerRepository
	runRepo       payrun.RunRepository
	payslipRepo   payrun.PayslipRepository
	componentRepo payrun.ComponentRepository
	transactor    database.Transactor
	sink          audit.Sink
	now           func() time.Time
}

func NewLedgerService(
	ledgerRepo ledger.LedgerRepository,
	runRepo payrun.RunRepository,
	payslipRepo payrun.PayslipRepository,
	componentRepo payrun.ComponentRepository,
	transactor database.Transactor,
	sink audit.Sink,
) ledger.LedgerService {
	return &LedgerServiceImpl{
		ledgerRepo:    ledgerRepo,
		runRepo:       runRepo,
		payslipRepo:   payslipRepo,
		componentRepo: componentRepo,
		transactor:    transactor,
		sink:          sink,
		now:           time.Now,
	}
}

// Generate discards any DRAFT ledger of the run and rebuilds it from the payslips.
func (s *LedgerServiceImpl) Generate(ctx context.Context, runID string) (ledger.Ledger, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return ledger.Ledger{}, err
	}

	parent := ctx
	var out ledger.Ledger
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.runRepo.GetByID(ctx, runID, a.CompanyID)
		if err != nil {
			return err
		}
		if run.Status == payrun.StatusCancelled {
			return fmt.Errorf("%w: cannot post a cancelled run", payrun.ErrInvalidTransition)
		}

		existing, err := s.ledgerRepo.GetByRun(ctx, runID, a.CompanyID)
		switch {
		case err == nil && existing.Status == ledger.StatusPosted:
			return ledger.ErrLedgerAlreadyPosted
		case err != nil && !errors.Is(err, ledger.ErrLedgerNotFound):
			return err
		}

		payslips, err := s.payslipRepo.ListByRun(ctx, runID, a.CompanyID)
		if err != nil {
			return err
		}
		comps, err := s.componentRepo.ListByCompany(ctx, a.CompanyID)
		if err != nil {
			return err
		}
		byID := make(map[string]payrun.Component, len(comps))
		for _, c := range comps {
			byID[c.ID] = c
		}

		out = ledger.Build(run, payslips, byID, s.now())
		if !out.IsBalanced() {
			dr, cr := out.Balance()
			slog.Error("Ledger does not balance", "run_id", runID, "debit", dr.String(), "credit", cr.String())
			return ledger.ErrLedgerUnbalanced
		}
		if err := s.ledgerRepo.ReplaceDraft(ctx, out); err != nil {
			return err
		}

		generated := out
		database.AfterCommit(ctx, func() {
			slog.Info("Ledger generated", "run_id", runID, "entries", len(generated.Entries), "total_net", generated.TotalNet.String())
			s.sink.Emit(parent, audit.Event{
				Action:      audit.ActionLedgerGenerated,
				CompanyID:   a.CompanyID,
				EntityType:  audit.EntityLedger,
				EntityID:    generated.ID,
				ActorID:     a.UserID,
				Description: fmt.Sprintf("Ledger for run %s with %d entries", runID, len(generated.Entries)),
			})
		})
		return nil
	})
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("failed to generate ledger: %w", err)
	}
	return out, nil
}

func (s *LedgerServiceImpl) Post(ctx context.Context, runID string) (ledger.Ledger, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return ledger.Ledger{}, err
	}

	parent := ctx
	var out ledger.Ledger
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		l, err := s.ledgerRepo.GetByRun(ctx, runID, a.CompanyID)
		if err != nil {
			return err
		}
		if l.Status == ledger.StatusPosted {
			return ledger.ErrLedgerAlreadyPosted
		}
		now := s.now()
		by := a.UserID
		l.Status = ledger.StatusPosted
		l.PostedAt = &now
		l.PostedBy = &by
		if err := s.ledgerRepo.MarkPosted(ctx, l); err != nil {
			return err
		}
		out = l

		database.AfterCommit(ctx, func() {
			slog.Info("Ledger posted", "run_id", runID, "ledger_id", l.ID)
			s.sink.Emit(parent, audit.Event{
				Action:     audit.ActionLedgerPosted,
				CompanyID:  a.CompanyID,
				EntityType: audit.EntityLedger,
				EntityID:   l.ID,
				ActorID:    a.UserID,
			})
		})
		return nil
	})
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("failed to post ledger: %w", err)
	}
	return out, nil
}

func (s *LedgerServiceImpl) Get(ctx context.Context, runID string) (ledger.Ledger, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return ledger.Ledger{}, err
	}
	return s.ledgerRepo.GetByRun(ctx, runID, a.CompanyID)
}
