package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
)

type ValidationServiceImpl struct {
	runRepo     payrun.RunRepository
	payslipRepo payrun.PayslipRepository
	now         func() time.Time
}

func NewValidationService(runRepo payrun.RunRepository, payslipRepo payrun.PayslipRepository) validation.ValidationService {
	return &ValidationServiceImpl{
		runRepo:     runRepo,
		payslipRepo: payslipRepo,
		now:         time.Now,
	}
}

func (s *ValidationServiceImpl) ValidateRun(ctx context.Context, runID string, opts validation.Options) (validation.Result, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return validation.Result{}, err
	}

	run, err := s.runRepo.GetByID(ctx, runID, a.CompanyID)
	if errors.Is(err, payrun.ErrRunNotFound) {
		issues := []validation.Issue{{
			Code:     validation.CodeRunNotFound,
			Severity: validation.SeverityError,
			Message:  "Payroll run not found",
		}}
		return validation.NewResult(issues, opts.Strict, s.now()), nil
	}
	if err != nil {
		return validation.Result{}, fmt.Errorf("failed to load run: %w", err)
	}

	payslips, err := s.payslipRepo.ListByRun(ctx, run.ID, a.CompanyID)
	if err != nil {
		return validation.Result{}, fmt.Errorf("failed to load payslips: %w", err)
	}
	paid, err := s.runRepo.ExistsPaidForPeriod(ctx, run.PeriodID, a.CompanyID, run.ID)
	if err != nil {
		return validation.Result{}, fmt.Errorf("failed to check paid runs: %w", err)
	}

	opts = optionsFromPayslips(opts, payslips).WithDefaults()
	issues, bc := EvaluateRun(payslips, paid, opts)
	if opts.ErrorsOnly {
		issues = onlyErrors(issues)
	}

	res := validation.NewResult(issues, opts.Strict, s.now())
	res.BalanceCheck = &bc
	res.PayslipCount = len(payslips)
	logResult(run.ID, res)
	return res, nil
}

func (s *ValidationServiceImpl) QuickValidate(ctx context.Context, runID string) (validation.Result, error) {
	return s.ValidateRun(ctx, runID, validation.Options{ErrorsOnly: true})
}

func (s *ValidationServiceImpl) ValidatePayslip(ctx context.Context, payslipID string) (validation.Result, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return validation.Result{}, err
	}
	p, err := s.payslipRepo.GetByID(ctx, payslipID, a.CompanyID)
	if err != nil {
		if errors.Is(err, payrun.ErrPayslipNotFound) {
			return validation.Result{}, validation.ErrPayslipNotFound
		}
		return validation.Result{}, fmt.Errorf("failed to load payslip: %w", err)
	}

	opts := validation.DefaultOptions()
	res := validation.NewResult(CheckBalance(p, opts.TolerancePercent), false, s.now())
	res.PayslipCount = 1
	return res, nil
}

func (s *ValidationServiceImpl) Report(ctx context.Context, runID string) (validation.Report, error) {
	res, err := s.ValidateRun(ctx, runID, validation.Options{})
	if err != nil {
		return validation.Report{}, err
	}
	a, _ := actor.FromContext(ctx)

	var payslips []payrun.Payslip
	if !res.HasCode(validation.CodeRunNotFound) {
		payslips, err = s.payslipRepo.ListByRun(ctx, runID, a.CompanyID)
		if err != nil {
			return validation.Report{}, fmt.Errorf("failed to load payslips: %w", err)
		}
	}

	return validation.Report{
		Validation:      res,
		Statistics:      Stats(payslips),
		Recommendations: Recommend(res),
	}, nil
}

// optionsFromPayslips fills thresholds that are unset from the statutory snapshot the
// run was computed with.
func optionsFromPayslips(opts validation.Options, payslips []payrun.Payslip) validation.Options {
	if len(payslips) == 0 {
		return opts
	}
	snap := payslips[0].Trace.Statutory
	if opts.MinimumWage.IsZero() && len(opts.MinimumWageCategories) == 0 {
		opts.MinimumWage = snap.MinimumWage
		opts.MinimumWageCategories = snap.MinimumWageCategories
	}
	if opts.DeductionCapPercent.IsZero() {
		opts.DeductionCapPercent = snap.DeductionCapPercent
	}
	return opts
}

func onlyErrors(issues []validation.Issue) []validation.Issue {
	out := make([]validation.Issue, 0, len(issues))
	for _, is := range issues {
		if is.Severity == validation.SeverityError {
			out = append(out, is)
		}
	}
	return out
}

func logResult(runID string, res validation.Result) {
	if res.IsValid {
		slog.Info("Run validation passed", "run_id", runID, "warnings", res.Summary.Warnings, "info", res.Summary.Info)
		return
	}
	codes := make([]string, 0, res.Summary.Errors)
	for _, is := range res.Errors() {
		codes = append(codes, is.Code)
	}
	slog.Error("Run validation failed", "run_id", runID, "errors", res.Summary.Errors, "warnings", res.Summary.Warnings, "codes", codes)
}
