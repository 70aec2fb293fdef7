package payrun

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
)

// commit applies every command of the batch inside one transaction. Any failure rolls
// the whole run back.
func (s *PayrunServiceImpl) commit(ctx context.Context, companyID string, batch payrun.Batch) error {
	return s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, cmd := range batch.Commands {
			if err := s.apply(ctx, companyID, cmd); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PayrunServiceImpl) apply(ctx context.Context, companyID string, cmd payrun.Command) error {
	switch c := cmd.(type) {
	case payrun.CreateRunCmd:
		if err := s.runRepo.Create(ctx, c.Run); err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
	case payrun.CreatePayslipCmd:
		if err := s.payslipRepo.Create(ctx, c.Payslip); err != nil {
			return fmt.Errorf("failed to create payslip for employee %s: %w", c.Payslip.EmployeeID, err)
		}
	case payrun.CreateDebtCmd:
		if err := s.debtRepo.Create(ctx, c.Debt); err != nil {
			return fmt.Errorf("failed to create debt for employee %s: %w", c.Debt.EmployeeID, err)
		}
		if err := s.debtRepo.AddTransaction(ctx, c.Transaction); err != nil {
			return fmt.Errorf("failed to record initial debt transaction: %w", err)
		}
	case payrun.ApplyDebtTransactionCmd:
		if err := s.debtRepo.Update(ctx, c.Debt, c.ExpectedVersion); err != nil {
			return fmt.Errorf("failed to settle debt %s: %w", c.Debt.ID, err)
		}
		if err := s.debtRepo.AddTransaction(ctx, c.Transaction); err != nil {
			return fmt.Errorf("failed to record debt deduction: %w", err)
		}
	case payrun.LinkAdjustmentsCmd:
		if len(c.AdjustmentIDs) == 0 {
			return nil
		}
		n, err := s.adjustmentRepo.LinkToRun(ctx, c.RunID, companyID, c.AdjustmentIDs)
		if err != nil {
			return fmt.Errorf("failed to link adjustments: %w", err)
		}
		if int(n) != len(c.AdjustmentIDs) {
			return fmt.Errorf("%w: linked %d of %d", payrun.ErrAdjustmentLinked, n, len(c.AdjustmentIDs))
		}
	default:
		return fmt.Errorf("unknown payroll command %T", cmd)
	}
	return nil
}
