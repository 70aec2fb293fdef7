package debt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/lock"
	"github.com/shopspring/decimal"
)

type DebtServiceImpl struct {
	repo       debt.DebtRepository
	transactor database.Transactor
	locker     lock.Locker
	sink       audit.Sink
	now        func() time.Time
}

func NewDebtService(repo debt.DebtRepository, transactor database.Transactor, locker lock.Locker, sink audit.Sink) debt.DebtService {
	return &DebtServiceImpl{
		repo:       repo,
		transactor: transactor,
		locker:     locker,
		sink:       sink,
		now:        time.Now,
	}
}

// mutate holds the employee's debt lock and runs fn in a transaction.
func (s *DebtServiceImpl) mutate(ctx context.Context, companyID, employeeID string, fn func(ctx context.Context) error) error {
	return s.locker.WithLock(ctx, lock.DebtKey(companyID, employeeID), func(ctx context.Context) error {
		return s.transactor.WithinTransaction(ctx, fn)
	})
}

func (s *DebtServiceImpl) CreateDebt(ctx context.Context, req debt.CreateDebtRequest) (debt.Debt, error) {
	if err := req.Validate(); err != nil {
		return debt.Debt{}, err
	}
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.Debt{}, err
	}

	d, tx, err := debt.NewDebt(a.CompanyID, req.EmployeeID, req.Amount, debt.SourceType(req.SourceType), debt.Origin{}, req.Notes, a.UserID, s.now())
	if err != nil {
		return debt.Debt{}, err
	}

	err = s.mutate(ctx, a.CompanyID, req.EmployeeID, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		return s.repo.AddTransaction(ctx, tx)
	})
	if err != nil {
		return debt.Debt{}, fmt.Errorf("failed to create debt: %w", err)
	}

	slog.Info("Debt created", "debt_id", d.ID, "employee_id", d.EmployeeID, "amount", d.OriginalAmount.String())
	s.sink.Emit(ctx, audit.Event{
		Action:      audit.ActionDebtCreated,
		CompanyID:   a.CompanyID,
		EntityType:  audit.EntityDebt,
		EntityID:    d.ID,
		ActorID:     a.UserID,
		NewValue:    debt.ToDebtResponse(d),
		Description: fmt.Sprintf("Debt of %s opened for employee %s", d.OriginalAmount.StringFixed(2), d.EmployeeID),
	})
	return d, nil
}

// DeductFromSalary settles open debts oldest-first outside a payroll run.
func (s *DebtServiceImpl) DeductFromSalary(ctx context.Context, req debt.DeductRequest) (debt.DeductionResult, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.DeductionResult{}, err
	}
	if req.Available.IsNegative() {
		return debt.DeductionResult{}, debt.ErrInvalidAmount
	}

	maxPercent := decimal.NewFromInt(100)
	if req.MaxPercent != nil {
		maxPercent = *req.MaxPercent
	}

	var res debt.DeductionResult
	err = s.mutate(ctx, a.CompanyID, req.EmployeeID, func(ctx context.Context) error {
		open, err := s.repo.ListByEmployee(ctx, req.EmployeeID, a.CompanyID, true)
		if err != nil {
			return err
		}
		plan := debt.PlanDeduction(open, req.Available, maxPercent, debt.Movement{
			Source:    req.Source,
			RunID:     req.RunID,
			CreatedBy: a.UserID,
			At:        s.now(),
		})
		for _, st := range plan.Settlements {
			if err := s.repo.Update(ctx, st.Debt, st.ExpectedVersion); err != nil {
				return err
			}
			if err := s.repo.AddTransaction(ctx, st.Transaction); err != nil {
				return err
			}
			res.Transactions = append(res.Transactions, st.Transaction)
		}
		res.TotalDeducted = plan.TotalDeducted
		res.RemainingDebts = plan.RemainingDebts
		return nil
	})
	if err != nil {
		return debt.DeductionResult{}, fmt.Errorf("failed to deduct debts: %w", err)
	}

	for _, tx := range res.Transactions {
		s.emitPayment(ctx, a, tx)
	}
	return res, nil
}

func (s *DebtServiceImpl) MakeManualPayment(ctx context.Context, debtID string, req debt.ManualPaymentRequest) (debt.PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return debt.PaymentResult{}, err
	}
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.PaymentResult{}, err
	}

	var res debt.PaymentResult
	err = s.withDebt(ctx, a, debtID, func(ctx context.Context, d *debt.Debt) error {
		tx, err := d.Pay(req.Amount, debt.Movement{
			Type:      debt.TxManualPayment,
			Source:    debt.TxSourceManual,
			Notes:     req.Notes,
			CreatedBy: a.UserID,
			At:        s.now(),
		})
		if err != nil {
			return err
		}
		res = debt.PaymentResult{
			Debt:        *d,
			Transaction: tx,
			NewBalance:  d.RemainingBalance,
			IsSettled:   d.Status == debt.StatusSettled,
		}
		return s.repo.AddTransaction(ctx, tx)
	})
	if err != nil {
		return debt.PaymentResult{}, err
	}

	s.emitPayment(ctx, a, res.Transaction)
	return res, nil
}

func (s *DebtServiceImpl) WriteOff(ctx context.Context, debtID string, req debt.WriteOffRequest) (debt.Debt, error) {
	if err := req.Validate(); err != nil {
		return debt.Debt{}, err
	}
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.Debt{}, err
	}

	var out debt.Debt
	var written decimal.Decimal
	err = s.withDebt(ctx, a, debtID, func(ctx context.Context, d *debt.Debt) error {
		tx, err := d.WriteOff(req.Reason, a.UserID, s.now())
		if err != nil {
			return err
		}
		out, written = *d, tx.Amount
		return s.repo.AddTransaction(ctx, tx)
	})
	if err != nil {
		return debt.Debt{}, err
	}

	slog.Info("Debt written off", "debt_id", out.ID, "amount", written.String())
	s.sink.Emit(ctx, audit.Event{
		Action:      audit.ActionDebtWrittenOff,
		CompanyID:   a.CompanyID,
		EntityType:  audit.EntityDebt,
		EntityID:    out.ID,
		ActorID:     a.UserID,
		NewValue:    debt.ToDebtResponse(out),
		Description: "Write-off: " + req.Reason,
	})
	return out, nil
}

func (s *DebtServiceImpl) Suspend(ctx context.Context, debtID string, suspend bool) (debt.Debt, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.Debt{}, err
	}

	var out debt.Debt
	err = s.withDebt(ctx, a, debtID, func(ctx context.Context, d *debt.Debt) error {
		if err := d.Suspend(suspend, s.now()); err != nil {
			return err
		}
		out = *d
		return nil
	})
	if err != nil {
		return debt.Debt{}, err
	}

	action := audit.ActionDebtResumed
	if suspend {
		action = audit.ActionDebtSuspended
	}
	s.sink.Emit(ctx, audit.Event{
		Action:     action,
		CompanyID:  a.CompanyID,
		EntityType: audit.EntityDebt,
		EntityID:   out.ID,
		ActorID:    a.UserID,
		NewValue:   debt.ToDebtResponse(out),
	})
	return out, nil
}

// withDebt loads a debt, then reloads it under the employee lock and inside a
// transaction, applies fn and writes it back guarded by its version.
func (s *DebtServiceImpl) withDebt(ctx context.Context, a actor.Actor, debtID string, fn func(ctx context.Context, d *debt.Debt) error) error {
	current, err := s.repo.GetByID(ctx, debtID, a.CompanyID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, a.CompanyID, current.EmployeeID, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, debtID, a.CompanyID)
		if err != nil {
			return err
		}
		expected := d.Version
		if err := fn(ctx, &d); err != nil {
			return err
		}
		return s.repo.Update(ctx, d, expected)
	})
}

func (s *DebtServiceImpl) emitPayment(ctx context.Context, a actor.Actor, tx debt.Transaction) {
	s.sink.Emit(ctx, audit.Event{
		Action:      audit.ActionDebtPayment,
		CompanyID:   a.CompanyID,
		EntityType:  audit.EntityDebt,
		EntityID:    tx.DebtID,
		ActorID:     a.UserID,
		NewValue:    debt.ToTransactionResponse(tx),
		Description: fmt.Sprintf("%s of %s", tx.Type, tx.Amount.StringFixed(2)),
	})
}

func (s *DebtServiceImpl) TotalActiveDebt(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	open, err := s.repo.ListByEmployee(ctx, employeeID, a.CompanyID, true)
	if err != nil {
		return decimal.Zero, err
	}
	return debt.TotalActive(open), nil
}

func (s *DebtServiceImpl) EmployeeSummary(ctx context.Context, employeeID string) (debt.EmployeeSummary, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.EmployeeSummary{}, err
	}
	all, err := s.repo.ListByEmployee(ctx, employeeID, a.CompanyID, false)
	if err != nil {
		return debt.EmployeeSummary{}, err
	}

	sum := debt.EmployeeSummary{
		EmployeeID:  employeeID,
		TotalActive: debt.TotalActive(all),
		Debts:       all,
	}
	for _, d := range all {
		if d.Status.IsCollectible() {
			sum.OpenCount++
		}
	}
	return sum, nil
}

func (s *DebtServiceImpl) CompanySummary(ctx context.Context) (debt.CompanySummary, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.CompanySummary{}, err
	}
	totals, err := s.repo.TotalsByStatus(ctx, a.CompanyID)
	if err != nil {
		return debt.CompanySummary{}, err
	}
	employees, err := s.repo.CountEmployeesWithOpenDebt(ctx, a.CompanyID)
	if err != nil {
		return debt.CompanySummary{}, err
	}

	sum := debt.CompanySummary{
		ByStatus:              totals,
		TotalOutstanding:      decimal.Zero,
		EmployeesWithOpenDebt: employees,
	}
	for _, t := range totals {
		if t.Status.IsCollectible() {
			sum.TotalOutstanding = sum.TotalOutstanding.Add(t.Remaining)
		}
	}
	return sum, nil
}

func (s *DebtServiceImpl) List(ctx context.Context, filter debt.Filter) (debt.ListResult, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return debt.ListResult{}, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	debts, total, err := s.repo.List(ctx, a.CompanyID, filter)
	if err != nil {
		return debt.ListResult{}, err
	}
	return debt.ListResult{Debts: debts, TotalItems: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *DebtServiceImpl) Transactions(ctx context.Context, debtID string) ([]debt.Transaction, error) {
	a, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, debtID, a.CompanyID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, debtID, a.CompanyID)
}
