package debt

import "context"

// DebtRepository persists debts and their transactions. All methods are tenant scoped.
type DebtRepository interface {
	Create(ctx context.Context, d Debt) error
	GetByID(ctx context.Context, id string, companyID string) (Debt, error)
	// ListByEmployee returns debts oldest first; openOnly keeps ACTIVE and PARTIALLY_PAID.
	ListByEmployee(ctx context.Context, employeeID string, companyID string, openOnly bool) ([]Debt, error)
	List(ctx context.Context, companyID string, filter Filter) ([]Debt, int64, error)
	// Update writes d when the stored version still equals expectedVersion, otherwise
	// ErrConcurrentModification.
	Update(ctx context.Context, d Debt, expectedVersion int) error

	AddTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, debtID string, companyID string) ([]Transaction, error)

	TotalsByStatus(ctx context.Context, companyID string) ([]StatusTotal, error)
	CountEmployeesWithOpenDebt(ctx context.Context, companyID string) (int, error)
}
