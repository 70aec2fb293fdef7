package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/shopspring/decimal"
)

type debtRepo struct{ s *Store }

func (r debtRepo) Create(ctx context.Context, d debt.Debt) error {
	if err := r.s.fault("debt.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.debts[d.ID] = d
	return nil
}

func (r debtRepo) GetByID(ctx context.Context, id string, companyID string) (debt.Debt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.d.debts[id]
	if !ok || d.CompanyID != companyID {
		return debt.Debt{}, debt.ErrDebtNotFound
	}
	return d, nil
}

func (r debtRepo) ListByEmployee(ctx context.Context, employeeID string, companyID string, openOnly bool) ([]debt.Debt, error) {
	r.s.mu.RLock()
	var out []debt.Debt
	for _, d := range r.s.d.debts {
		if d.CompanyID != companyID || d.EmployeeID != employeeID {
			continue
		}
		if openOnly && !d.Status.IsCollectible() {
			continue
		}
		out = append(out, d)
	}
	r.s.mu.RUnlock()
	debt.SortOldestFirst(out)
	return out, nil
}

func (r debtRepo) List(ctx context.Context, companyID string, filter debt.Filter) ([]debt.Debt, int64, error) {
	r.s.mu.RLock()
	var out []debt.Debt
	for _, d := range r.s.d.debts {
		if d.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != nil && d.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.SourceType != nil && d.SourceType != *filter.SourceType {
			continue
		}
		out = append(out, d)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r debtRepo) Update(ctx context.Context, d debt.Debt, expectedVersion int) error {
	if err := r.s.fault("debt.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.d.debts[d.ID]
	if !ok || existing.CompanyID != d.CompanyID || existing.Version != expectedVersion {
		return debt.ErrConcurrentModification
	}
	r.s.d.debts[d.ID] = d
	return nil
}

func (r debtRepo) AddTransaction(ctx context.Context, tx debt.Transaction) error {
	if err := r.s.fault("debt.transaction"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.debtTxs[tx.DebtID] = append(r.s.d.debtTxs[tx.DebtID], tx)
	return nil
}

func (r debtRepo) ListTransactions(ctx context.Context, debtID string, companyID string) ([]debt.Transaction, error) {
	r.s.mu.RLock()
	var out []debt.Transaction
	for _, tx := range r.s.d.debtTxs[debtID] {
		if tx.CompanyID == companyID {
			out = append(out, tx)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r debtRepo) TotalsByStatus(ctx context.Context, companyID string) ([]debt.StatusTotal, error) {
	r.s.mu.RLock()
	byStatus := make(map[debt.Status]*debt.StatusTotal)
	for _, d := range r.s.d.debts {
		if d.CompanyID != companyID {
			continue
		}
		st, ok := byStatus[d.Status]
		if !ok {
			st = &debt.StatusTotal{Status: d.Status, Original: decimal.Zero, Remaining: decimal.Zero}
			byStatus[d.Status] = st
		}
		st.Count++
		st.Original = st.Original.Add(d.OriginalAmount)
		st.Remaining = st.Remaining.Add(d.RemainingBalance)
	}
	r.s.mu.RUnlock()

	out := make([]debt.StatusTotal, 0, len(byStatus))
	for _, st := range byStatus {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (r debtRepo) CountEmployeesWithOpenDebt(ctx context.Context, companyID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, d := range r.s.d.debts {
		if d.CompanyID == companyID && d.Status.IsCollectible() {
			seen[d.EmployeeID] = struct{}{}
		}
	}
	return len(seen), nil
}
