package payrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/wage"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rules"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/uid"
	"golang.org/x/sync/errgroup"
)

// Config tunes run creation.
type Config struct {
	// Workers bounds concurrent wage computations within one run.
	Workers    int
	RunTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Workers: 8, RunTimeout: 60 * time.Second}
}

// Repositories groups the stores the orchestrator reads and writes.
type Repositories struct {
	Runs        payrun.RunRepository
	Payslips    payrun.PayslipRepository
	Periods     payrun.PeriodRepository
	Adjustments payrun.AdjustmentRepository
	Components  payrun.ComponentRepository
	Debts       debt.DebtRepository
	Roster      roster.Provider
}

type PayrunServiceImpl struct {
	runRepo        payrun.RunRepository
	payslipRepo    payrun.PayslipRepository
	periodRepo     payrun.PeriodRepository
	adjustmentRepo payrun.AdjustmentRepository
	componentRepo  payrun.ComponentRepository
	debtRepo       debt.DebtRepository
	roster         roster.Provider
	gate           statutory.Gate
	calculator     wage.Calculator
	validator      validation.ValidationService
	ledger         ledger.LedgerService
	rules          *rules.Engine
	transactor     database.Transactor
	sink           audit.Sink
	cfg            Config
	now            func() time.Time
}

func NewPayrunService(
	repos Repositories,
	gate statutory.Gate,
	calculator wage.Calculator,
	validator validation.ValidationService,
	ledgerService ledger.LedgerService,
	engine *rules.Engine,
	transactor database.Transactor,
	sink audit.Sink,
	cfg Config,
) payrun.PayrunService {
	def := DefaultConfig()
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = def.RunTimeout
	}
	return &PayrunServiceImpl{
		runRepo:        repos.Runs,
		payslipRepo:    repos.Payslips,
		periodRepo:     repos.Periods,
		adjustmentRepo: repos.Adjustments,
		componentRepo:  repos.Components,
		debtRepo:       repos.Debts,
		roster:         repos.Roster,
		gate:           gate,
		calculator:     calculator,
		validator:      validator,
		ledger:         ledgerService,
		rules:          engine,
		transactor:     transactor,
		sink:           sink,
		cfg:            cfg,
		now:            time.Now,
	}
}

// ========== CREATE / PREVIEW ==========

// computedRun is a fully calculated run waiting to be committed.
type computedRun struct {
	run      payrun.Run
	batch    payrun.Batch
	payslips []payrun.Payslip
	newDebts []debt.Debt
	warnings []string
}

func (s *PayrunServiceImpl) CreateRun(ctx context.Context, req payrun.CreateRunRequest) (payrun.RunDetail, error) {
	if err := req.Validate(); err != nil {
		return payrun.RunDetail{}, err
	}
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.RunDetail{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	cr, err := s.compute(ctx, req, a, true)
	if err != nil {
		return payrun.RunDetail{}, err
	}
	if err := s.commit(ctx, a.CompanyID, cr.batch); err != nil {
		slog.Error("Payroll run rolled back", "period_id", req.PeriodID, "error", err)
		return payrun.RunDetail{}, fmt.Errorf("failed to create payroll run: %w", err)
	}

	totals := payrun.ComputeTotals(cr.run.ID, cr.payslips)
	slog.Info("Payroll run created",
		"run_id", cr.run.ID,
		"period_id", cr.run.PeriodID,
		"payslips", totals.PayslipCount,
		"total_net", totals.TotalNet.String(),
		"new_debts", totals.NewDebtCount,
		"warnings", len(cr.warnings),
	)
	s.sink.Emit(ctx, audit.Event{
		Action:      audit.ActionRunCreated,
		CompanyID:   a.CompanyID,
		EntityType:  audit.EntityPayrollRun,
		EntityID:    cr.run.ID,
		ActorID:     a.UserID,
		NewValue:    map[string]any{"status": cr.run.Status, "payslips": totals.PayslipCount, "total_net": totals.TotalNet},
		Description: fmt.Sprintf("Payroll run created for period %s", cr.run.PeriodID),
	})
	return payrun.RunDetail{Run: cr.run, Payslips: cr.payslips, Totals: totals}, nil
}

// PreviewRun computes a run exactly like CreateRun without persisting anything.
func (s *PayrunServiceImpl) PreviewRun(ctx context.Context, req payrun.CreateRunRequest) (payrun.Preview, error) {
	if err := req.Validate(); err != nil {
		return payrun.Preview{}, err
	}
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.Preview{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	cr, err := s.compute(ctx, req, a, false)
	if err != nil {
		return payrun.Preview{}, err
	}
	return payrun.Preview{
		Run:      cr.run,
		Payslips: cr.payslips,
		Totals:   payrun.ComputeTotals(cr.run.ID, cr.payslips),
		NewDebts: cr.newDebts,
		Warnings: cr.warnings,
	}, nil
}

func (s *PayrunServiceImpl) compute(ctx context.Context, req payrun.CreateRunRequest, a actor.Actor, persist bool) (*computedRun, error) {
	period, err := s.periodRepo.GetByID(ctx, req.PeriodID, a.CompanyID)
	if err != nil {
		return nil, err
	}
	if period.Status == payrun.PeriodPaid {
		return nil, payrun.ErrPeriodAlreadyPaid
	}
	if persist {
		_, err := s.runRepo.FindLiveByPeriod(ctx, period.ID, a.CompanyID)
		if err == nil {
			return nil, payrun.ErrRunAlreadyExists
		}
		if !errors.Is(err, payrun.ErrRunNotFound) {
			return nil, fmt.Errorf("failed to check existing run: %w", err)
		}
	}

	gate, err := s.gate.Validate(ctx, a.CompanyID, period.EndDate, statutory.GateOptions{
		Strict:       req.StrictStatutory,
		AllowExpired: req.AllowExpiredStatutory,
	})
	if err != nil {
		return nil, err
	}
	if !gate.CanProceed || gate.Config == nil {
		return nil, &validation.BlockedError{Op: "create payroll run", Result: gate.Result}
	}
	snapshot := gate.Config.Snapshot()

	eligible, err := s.roster.EligibleEmployees(ctx, a.CompanyID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	selected, err := selectEmployees(s.rules, eligible, req.Filters, period.EndDate)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, payrun.ErrNoEligibleEmployees
	}

	comps, err := s.componentRepo.ListByCompany(ctx, a.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}
	components := make(map[string]payrun.Component, len(comps))
	for _, c := range comps {
		components[c.ID] = c
	}

	adjustments, err := s.adjustmentRepo.ListUnlinkedPosted(ctx, period.ID, a.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load adjustments: %w", err)
	}
	adjByEmployee := make(map[string][]payrun.Adjustment)
	for _, adj := range adjustments {
		adjByEmployee[adj.EmployeeID] = append(adjByEmployee[adj.EmployeeID], adj)
	}

	wages, err := s.computeWages(ctx, a.CompanyID, period, snapshot, selected)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cr := &computedRun{
		run: payrun.Run{
			ID:          uid.New(),
			CompanyID:   a.CompanyID,
			PeriodID:    period.ID,
			Status:      payrun.StatusDraft,
			ProcessedBy: a.UserID,
			Notes:       req.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	cr.batch.Add(payrun.CreateRunCmd{Run: cr.run})

	rc := runContext{
		run:        cr.run,
		period:     period,
		snapshot:   snapshot,
		components: components,
		actorID:    a.UserID,
		now:        now,
	}

	manual := req.ManualLinesByEmployee()
	var linked []string
	for i, emp := range selected {
		open, err := s.debtRepo.ListByEmployee(ctx, emp.ID, a.CompanyID, true)
		if err != nil {
			return nil, fmt.Errorf("failed to load debts of employee %s: %w", emp.ID, err)
		}
		outcome, err := rc.computePayslip(employeeInput{
			employee:    emp,
			wage:        wages[i],
			manual:      manual[emp.ID],
			adjustments: adjByEmployee[emp.ID],
			openDebts:   open,
		})
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", emp.Code, err)
		}
		delete(manual, emp.ID)

		cr.batch.Add(outcome.commands...)
		cr.payslips = append(cr.payslips, outcome.payslip)
		cr.warnings = append(cr.warnings, outcome.warnings...)
		linked = append(linked, outcome.adjustmentIDs...)
		if outcome.newDebt != nil {
			cr.newDebts = append(cr.newDebts, *outcome.newDebt)
		}
	}
	for empID := range manual {
		cr.warnings = append(cr.warnings, fmt.Sprintf("manual lines ignored: employee %s is not part of the run", empID))
	}
	cr.batch.Add(payrun.LinkAdjustmentsCmd{RunID: cr.run.ID, AdjustmentIDs: linked})
	return cr, nil
}

// computeWages calls the wage collaborator for every employee concurrently. Results
// keep the employee order; the first failure aborts the run.
func (s *PayrunServiceImpl) computeWages(ctx context.Context, companyID string, period payrun.Period, snapshot statutory.Snapshot, employees []roster.Employee) ([]wage.Result, error) {
	results := make([]wage.Result, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, emp := range employees {
		i, emp := i, emp
		g.Go(func() error {
			res, err := s.calculator.Compute(gctx, wage.Request{
				CompanyID:   companyID,
				PeriodID:    period.ID,
				PeriodStart: period.StartDate,
				PeriodEnd:   period.EndDate,
				Employee:    emp,
				Statutory:   snapshot,
			})
			if err != nil {
				slog.Error("Wage computation failed", "employee_id", emp.ID, "period_id", period.ID, "error", err)
				return fmt.Errorf("%w: employee %s: %w", payrun.ErrWageComputation, emp.Code, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ========== LIFECYCLE ==========

func (s *PayrunServiceImpl) ApproveRun(ctx context.Context, runID string, req payrun.ApproveRunRequest) (payrun.Run, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.Run{}, err
	}

	var run payrun.Run
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err = s.runRepo.GetByID(ctx, runID, a.CompanyID)
		if err != nil {
			return err
		}
		if run.Status != payrun.StatusDraft {
			return fmt.Errorf("%w: cannot approve a %s run", payrun.ErrInvalidTransition, run.Status)
		}

		res, err := s.validator.ValidateRun(ctx, runID, validation.Options{Strict: req.Strict})
		if err != nil {
			return err
		}
		if !res.CanProceed {
			return &validation.BlockedError{Op: "approve payroll run", Result: res}
		}
		if res.Summary.Warnings > 0 {
			slog.Warn("Payroll run approved with warnings", "run_id", runID, "warnings", res.Summary.Warnings, "codes", res.Codes())
		}

		now := s.now()
		by := a.UserID
		run.Status = payrun.StatusFinanceApproved
		run.ApprovedBy = &by
		run.ApprovedAt = &now
		run.UpdatedAt = now
		run.Notes = appendNote(run.Notes, req.Notes)
		if err := s.runRepo.UpdateStatus(ctx, run); err != nil {
			return err
		}
		if err := s.payslipRepo.UpdateStatusByRun(ctx, runID, a.CompanyID, payrun.StatusFinanceApproved); err != nil {
			return err
		}
		_, err = s.ledger.Generate(ctx, runID)
		return err
	})
	if err != nil {
		return payrun.Run{}, fmt.Errorf("failed to approve payroll run: %w", err)
	}

	slog.Info("Payroll run approved", "run_id", runID, "approved_by", a.UserID)
	s.emitTransition(ctx, a, run, audit.ActionRunApproved, payrun.StatusDraft)
	return run, nil
}

func (s *PayrunServiceImpl) PayRun(ctx context.Context, runID string) (payrun.Run, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.Run{}, err
	}

	var run payrun.Run
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err = s.runRepo.GetByID(ctx, runID, a.CompanyID)
		if err != nil {
			return err
		}
		if run.Status != payrun.StatusFinanceApproved {
			return fmt.Errorf("%w: cannot pay a %s run", payrun.ErrInvalidTransition, run.Status)
		}

		res, err := s.validator.QuickValidate(ctx, runID)
		if err != nil {
			return err
		}
		if !res.CanProceed {
			return &validation.BlockedError{Op: "pay payroll run", Result: res}
		}

		now := s.now()
		by := a.UserID
		run.Status = payrun.StatusPaid
		run.PaidBy = &by
		run.PaidAt = &now
		run.UpdatedAt = now
		if err := s.runRepo.UpdateStatus(ctx, run); err != nil {
			return err
		}
		if err := s.payslipRepo.UpdateStatusByRun(ctx, runID, a.CompanyID, payrun.StatusPaid); err != nil {
			return err
		}
		if err := s.periodRepo.MarkPaid(ctx, run.PeriodID, a.CompanyID); err != nil {
			return err
		}

		_, err = s.ledger.Post(ctx, runID)
		if errors.Is(err, ledger.ErrLedgerNotFound) {
			if _, err = s.ledger.Generate(ctx, runID); err != nil {
				return err
			}
			_, err = s.ledger.Post(ctx, runID)
		}
		return err
	})
	if err != nil {
		return payrun.Run{}, fmt.Errorf("failed to pay payroll run: %w", err)
	}

	slog.Info("Payroll run paid", "run_id", runID, "period_id", run.PeriodID, "paid_by", a.UserID)
	s.emitTransition(ctx, a, run, audit.ActionRunPaid, payrun.StatusFinanceApproved)
	return run, nil
}

// CancelRun moves a DRAFT run to CANCELLED. Payslips stay as history.
func (s *PayrunServiceImpl) CancelRun(ctx context.Context, runID string, req payrun.CancelRunRequest) (payrun.Run, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.Run{}, err
	}

	var run payrun.Run
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err = s.runRepo.GetByID(ctx, runID, a.CompanyID)
		if err != nil {
			return err
		}
		if run.Status != payrun.StatusDraft {
			return fmt.Errorf("%w: cannot cancel a %s run", payrun.ErrInvalidTransition, run.Status)
		}
		now := s.now()
		by := a.UserID
		run.Status = payrun.StatusCancelled
		run.CancelledBy = &by
		run.CancelledAt = &now
		run.UpdatedAt = now
		if req.Reason != "" {
			run.Notes = appendNote(run.Notes, "Cancelled: "+req.Reason)
		}
		return s.runRepo.UpdateStatus(ctx, run)
	})
	if err != nil {
		return payrun.Run{}, fmt.Errorf("failed to cancel payroll run: %w", err)
	}

	slog.Info("Payroll run cancelled", "run_id", runID, "cancelled_by", a.UserID)
	s.emitTransition(ctx, a, run, audit.ActionRunCancelled, payrun.StatusDraft)
	return run, nil
}

// ========== QUERIES ==========

func (s *PayrunServiceImpl) GetRun(ctx context.Context, runID string) (payrun.RunDetail, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.RunDetail{}, err
	}
	run, err := s.runRepo.GetByID(ctx, runID, a.CompanyID)
	if err != nil {
		return payrun.RunDetail{}, err
	}
	payslips, err := s.payslipRepo.ListByRun(ctx, runID, a.CompanyID)
	if err != nil {
		return payrun.RunDetail{}, fmt.Errorf("failed to load payslips: %w", err)
	}
	return payrun.RunDetail{Run: run, Payslips: payslips, Totals: payrun.ComputeTotals(runID, payslips)}, nil
}

func (s *PayrunServiceImpl) GetRunTotals(ctx context.Context, runID string) (payrun.Totals, error) {
	detail, err := s.GetRun(ctx, runID)
	if err != nil {
		return payrun.Totals{}, err
	}
	return detail.Totals, nil
}

func (s *PayrunServiceImpl) ListRuns(ctx context.Context, filter payrun.RunFilter) (payrun.ListRunsResult, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return payrun.ListRunsResult{}, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	runs, total, err := s.runRepo.List(ctx, a.CompanyID, filter)
	if err != nil {
		return payrun.ListRunsResult{}, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	return payrun.ListRunsResult{Runs: runs, TotalItems: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *PayrunServiceImpl) emitTransition(ctx context.Context, a actor.Actor, run payrun.Run, action audit.Action, from payrun.Status) {
	s.sink.Emit(ctx, audit.Event{
		Action:     action,
		CompanyID:  a.CompanyID,
		EntityType: audit.EntityPayrollRun,
		EntityID:   run.ID,
		ActorID:    a.UserID,
		OldValue:   map[string]any{"status": from},
		NewValue:   map[string]any{"status": run.Status},
	})
}

func appendNote(notes, note string) string {
	switch {
	case note == "":
		return notes
	case notes == "":
		return note
	}
	return notes + "\n" + note
}
