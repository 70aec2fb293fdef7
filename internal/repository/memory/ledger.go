package memory

import (
	"context"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
)

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) GetByRun(ctx context.Context, runID string, companyID string) (ledger.Ledger, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.d.ledgers[runID]
	if !ok || l.CompanyID != companyID {
		return ledger.Ledger{}, ledger.ErrLedgerNotFound
	}
	l.Entries = append([]ledger.Entry(nil), l.Entries...)
	return l, nil
}

func (r ledgerRepo) ReplaceDraft(ctx context.Context, l ledger.Ledger) error {
	if err := r.s.fault("ledger.replace"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.d.ledgers[l.RunID]; ok && existing.Status == ledger.StatusPosted {
		return ledger.ErrLedgerAlreadyPosted
	}
	l.Entries = append([]ledger.Entry(nil), l.Entries...)
	r.s.d.ledgers[l.RunID] = l
	return nil
}

func (r ledgerRepo) MarkPosted(ctx context.Context, l ledger.Ledger) error {
	if err := r.s.fault("ledger.post"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.d.ledgers[l.RunID]
	if !ok || existing.CompanyID != l.CompanyID {
		return ledger.ErrLedgerNotFound
	}
	if existing.Status == ledger.StatusPosted {
		return ledger.ErrLedgerAlreadyPosted
	}
	existing.Status = ledger.StatusPosted
	existing.PostedAt = l.PostedAt
	existing.PostedBy = l.PostedBy
	r.s.d.ledgers[l.RunID] = existing
	return nil
}
