package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
)

type statutoryRepo struct{ s *Store }

func (r statutoryRepo) ActiveConfig(ctx context.Context, companyID string, asOf time.Time) (statutory.Config, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *statutory.Config
	var effective *statutory.Config
	for i := range r.s.d.statutory[companyID] {
		c := r.s.d.statutory[companyID][i]
		if !c.IsActive {
			continue
		}
		if latest == nil || c.Version > latest.Version {
			latest = &c
		}
		inWindow := !c.EffectiveDate.After(asOf) && (c.EndDate == nil || !c.EndDate.Before(asOf))
		if inWindow && (effective == nil || c.Version > effective.Version) {
			effective = &c
		}
	}
	switch {
	case effective != nil:
		return *effective, nil
	case latest != nil:
		return *latest, nil
	}
	return statutory.Config{}, statutory.ErrConfigNotFound
}

func (r statutoryRepo) LegalRates(ctx context.Context) (statutory.LegalRates, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.d.legal != nil {
		return *r.s.d.legal, nil
	}
	return statutory.DefaultLegalRates(), nil
}

func (r statutoryRepo) CompaniesWithActiveConfig(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []string
	for companyID, configs := range r.s.d.statutory {
		for _, c := range configs {
			if c.IsActive {
				out = append(out, companyID)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

type rosterRepo struct{ s *Store }

func (r rosterRepo) EligibleEmployees(ctx context.Context, companyID string, start, end time.Time) ([]roster.Employee, error) {
	if err := r.s.fault("roster.list"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	var out []roster.Employee
	for _, e := range r.s.d.employees {
		if e.CompanyID != companyID || e.IsTerminated || e.HireDate.After(end) {
			continue
		}
		if !e.Salary.BaseSalary.IsPositive() {
			continue
		}
		var advances []roster.Advance
		for _, a := range e.Advances {
			if a.Overlaps(start, end) {
				advances = append(advances, a)
			}
		}
		e.Advances = advances
		out = append(out, e)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Seeding helpers for tests and local mode.

func (s *Store) AddPeriod(p payrun.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.periods[p.ID] = p
}

func (s *Store) AddComponent(c payrun.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.components[c.ID] = c
}

func (s *Store) AddAdjustment(a payrun.Adjustment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.adjustments[a.ID] = a
}

func (s *Store) Adjustment(id string) (payrun.Adjustment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.d.adjustments[id]
	return a, ok
}

func (s *Store) AddEmployee(e roster.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.employees[e.ID] = e
}

func (s *Store) AddStatutoryConfig(c statutory.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.statutory[c.CompanyID] = append(append([]statutory.Config(nil), s.d.statutory[c.CompanyID]...), c)
}

func (s *Store) SetLegalRates(l statutory.LegalRates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.legal = &l
}

// Counts returns row counts used by rollback assertions.
func (s *Store) Counts() (runs, payslips, debts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.d.runs), len(s.d.payslips), len(s.d.debts)
}
