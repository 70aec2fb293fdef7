package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
)

type runRepo struct{ s *Store }

func (r runRepo) Create(ctx context.Context, run payrun.Run) error {
	if err := r.s.fault("run.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if run.Status.IsLive() {
		for _, existing := range r.s.d.runs {
			if existing.CompanyID == run.CompanyID && existing.PeriodID == run.PeriodID && existing.Status.IsLive() {
				return payrun.ErrRunAlreadyExists
			}
		}
	}
	r.s.d.runs[run.ID] = run
	return nil
}

func (r runRepo) GetByID(ctx context.Context, id string, companyID string) (payrun.Run, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	run, ok := r.s.d.runs[id]
	if !ok || run.CompanyID != companyID {
		return payrun.Run{}, payrun.ErrRunNotFound
	}
	return run, nil
}

func (r runRepo) FindLiveByPeriod(ctx context.Context, periodID string, companyID string) (payrun.Run, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, run := range r.s.d.runs {
		if run.CompanyID == companyID && run.PeriodID == periodID && run.Status.IsLive() {
			return run, nil
		}
	}
	return payrun.Run{}, payrun.ErrRunNotFound
}

func (r runRepo) ExistsPaidForPeriod(ctx context.Context, periodID string, companyID string, excludeRunID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, run := range r.s.d.runs {
		if run.CompanyID == companyID && run.PeriodID == periodID && run.Status == payrun.StatusPaid && run.ID != excludeRunID {
			return true, nil
		}
	}
	return false, nil
}

func (r runRepo) UpdateStatus(ctx context.Context, run payrun.Run) error {
	if err := r.s.fault("run.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.d.runs[run.ID]
	if !ok || existing.CompanyID != run.CompanyID {
		return payrun.ErrRunNotFound
	}
	r.s.d.runs[run.ID] = run
	return nil
}

func (r runRepo) List(ctx context.Context, companyID string, filter payrun.RunFilter) ([]payrun.Run, int64, error) {
	r.s.mu.RLock()
	var all []payrun.Run
	for _, run := range r.s.d.runs {
		if run.CompanyID != companyID {
			continue
		}
		if filter.PeriodID != nil && run.PeriodID != *filter.PeriodID {
			continue
		}
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		all = append(all, run)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, filter.Page, filter.Limit), int64(len(all)), nil
}

type payslipRepo struct{ s *Store }

func (r payslipRepo) Create(ctx context.Context, p payrun.Payslip) error {
	if err := r.s.fault("payslip.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.d.payslips {
		if existing.RunID == p.RunID && existing.EmployeeID == p.EmployeeID {
			return errDuplicatePayslip
		}
	}
	p.Lines = append([]payrun.Line(nil), p.Lines...)
	r.s.d.payslips[p.ID] = p
	return nil
}

func (r payslipRepo) GetByID(ctx context.Context, id string, companyID string) (payrun.Payslip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.d.payslips[id]
	if !ok || p.CompanyID != companyID {
		return payrun.Payslip{}, payrun.ErrPayslipNotFound
	}
	p.Lines = append([]payrun.Line(nil), p.Lines...)
	return p, nil
}

func (r payslipRepo) ListByRun(ctx context.Context, runID string, companyID string) ([]payrun.Payslip, error) {
	r.s.mu.RLock()
	var out []payrun.Payslip
	for _, p := range r.s.d.payslips {
		if p.RunID == runID && p.CompanyID == companyID {
			p.Lines = append([]payrun.Line(nil), p.Lines...)
			out = append(out, p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeCode == out[j].EmployeeCode {
			return out[i].ID < out[j].ID
		}
		return out[i].EmployeeCode < out[j].EmployeeCode
	})
	return out, nil
}

func (r payslipRepo) UpdateStatusByRun(ctx context.Context, runID string, companyID string, status payrun.Status) error {
	if err := r.s.fault("payslip.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.d.payslips {
		if p.RunID == runID && p.CompanyID == companyID {
			p.Status = status
			r.s.d.payslips[id] = p
		}
	}
	return nil
}

type periodRepo struct{ s *Store }

func (r periodRepo) GetByID(ctx context.Context, id string, companyID string) (payrun.Period, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.d.periods[id]
	if !ok || p.CompanyID != companyID {
		return payrun.Period{}, payrun.ErrPeriodNotFound
	}
	return p, nil
}

func (r periodRepo) MarkPaid(ctx context.Context, id string, companyID string) error {
	if err := r.s.fault("period.mark_paid"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.d.periods[id]
	if !ok || p.CompanyID != companyID {
		return payrun.ErrPeriodNotFound
	}
	p.Status = payrun.PeriodPaid
	r.s.d.periods[id] = p
	return nil
}

type adjustmentRepo struct{ s *Store }

func (r adjustmentRepo) ListUnlinkedPosted(ctx context.Context, periodID string, companyID string) ([]payrun.Adjustment, error) {
	r.s.mu.RLock()
	var out []payrun.Adjustment
	for _, a := range r.s.d.adjustments {
		if a.CompanyID == companyID && a.PeriodID == periodID && a.Status == payrun.AdjustmentPosted && a.RunID == nil {
			out = append(out, a)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r adjustmentRepo) LinkToRun(ctx context.Context, runID string, companyID string, ids []string) (int64, error) {
	if err := r.s.fault("adjustment.link"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		a, ok := r.s.d.adjustments[id]
		if !ok || a.CompanyID != companyID || a.RunID != nil || a.Status != payrun.AdjustmentPosted {
			continue
		}
		rid := runID
		a.RunID = &rid
		r.s.d.adjustments[id] = a
		n++
	}
	return n, nil
}

type componentRepo struct{ s *Store }

func (r componentRepo) ListByCompany(ctx context.Context, companyID string) ([]payrun.Component, error) {
	r.s.mu.RLock()
	var out []payrun.Component
	for _, c := range r.s.d.components {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
