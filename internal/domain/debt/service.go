package debt

import (
	"context"

	"github.com/shopspring/decimal"
)

// DebtService is the employee debt ledger. The tenant and actor come from the context.
type DebtService interface {
	CreateDebt(ctx context.Context, req CreateDebtRequest) (Debt, error)
	DeductFromSalary(ctx context.Context, req DeductRequest) (DeductionResult, error)
	MakeManualPayment(ctx context.Context, debtID string, req ManualPaymentRequest) (PaymentResult, error)
	WriteOff(ctx context.Context, debtID string, req WriteOffRequest) (Debt, error)
	Suspend(ctx context.Context, debtID string, suspend bool) (Debt, error)

	TotalActiveDebt(ctx context.Context, employeeID string) (decimal.Decimal, error)
	EmployeeSummary(ctx context.Context, employeeID string) (EmployeeSummary, error)
	CompanySummary(ctx context.Context) (CompanySummary, error)
	List(ctx context.Context, filter Filter) (ListResult, error)
	Transactions(ctx context.Context, debtID string) ([]Transaction, error)
}
