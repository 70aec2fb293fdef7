// Package memory is an in-process implementation of every engine repository. It backs
// tests and the STORE=memory mode. Transactions are serialized and rolled back by
// restoring a snapshot of the maps.
package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/roster"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type data struct {
	periods     map[string]payrun.Period
	components  map[string]payrun.Component
	runs        map[string]payrun.Run
	payslips    map[string]payrun.Payslip
	adjustments map[string]payrun.Adjustment
	debts       map[string]debt.Debt
	debtTxs     map[string][]debt.Transaction
	ledgers     map[string]ledger.Ledger // by run id
	statutory   map[string][]statutory.Config
	employees   map[string]roster.Employee
	legal       *statutory.LegalRates
}

func newData() data {
	return data{
		periods:     make(map[string]payrun.Period),
		components:  make(map[string]payrun.Component),
		runs:        make(map[string]payrun.Run),
		payslips:    make(map[string]payrun.Payslip),
		adjustments: make(map[string]payrun.Adjustment),
		debts:       make(map[string]debt.Debt),
		debtTxs:     make(map[string][]debt.Transaction),
		ledgers:     make(map[string]ledger.Ledger),
		statutory:   make(map[string][]statutory.Config),
		employees:   make(map[string]roster.Employee),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d data) clone() data {
	c := data{
		periods:     cloneMap(d.periods),
		components:  cloneMap(d.components),
		runs:        cloneMap(d.runs),
		payslips:    cloneMap(d.payslips),
		adjustments: cloneMap(d.adjustments),
		debts:       cloneMap(d.debts),
		debtTxs:     make(map[string][]debt.Transaction, len(d.debtTxs)),
		ledgers:     cloneMap(d.ledgers),
		statutory:   cloneMap(d.statutory),
		employees:   cloneMap(d.employees),
		legal:       d.legal,
	}
	for k, v := range d.debtTxs {
		c.debtTxs[k] = append([]debt.Transaction(nil), v...)
	}
	return c
}

// Store holds all tables.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	d    data

	faultMu sync.Mutex
	faults  map[string]error
}

func NewStore() *Store {
	return &Store{d: newData(), faults: make(map[string]error)}
}

type txMarker struct{}

// WithinTransaction implements database.Transactor. Commit hooks run after the store
// lock is released.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	hookCtx, runHooks := database.WithCommitHooks(ctx)
	if err := s.serialize(context.WithValue(hookCtx, txMarker{}, true), fn); err != nil {
		return err
	}
	runHooks()
	return nil
}

// serialize runs fn under the transaction lock and restores the snapshot when fn fails.
func (s *Store) serialize(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.d.clone()
	s.mu.RUnlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.d = snapshot
			s.mu.Unlock()
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// InjectFault makes the named operation (for example "payslip.create") fail with err
// until cleared with a nil err.
func (s *Store) InjectFault(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

// Repository views over the store.

func (s *Store) Runs() payrun.RunRepository               { return runRepo{s} }
func (s *Store) Payslips() payrun.PayslipRepository       { return payslipRepo{s} }
func (s *Store) Periods() payrun.PeriodRepository         { return periodRepo{s} }
func (s *Store) Adjustments() payrun.AdjustmentRepository { return adjustmentRepo{s} }
func (s *Store) Components() payrun.ComponentRepository   { return componentRepo{s} }
func (s *Store) Debts() debt.DebtRepository               { return debtRepo{s} }
func (s *Store) Ledgers() ledger.LedgerRepository         { return ledgerRepo{s} }
func (s *Store) Statutory() statutory.Provider            { return statutoryRepo{s} }
func (s *Store) Roster() roster.Provider                  { return rosterRepo{s} }
