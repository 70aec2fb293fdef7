package audit

import (
	"context"
	"time"
)

// Action enum
type Action string

const (
	ActionRunCreated        Action = "PAYROLL_RUN_CREATED"
	ActionRunApproved       Action = "PAYROLL_RUN_APPROVED"
	ActionRunPaid           Action = "PAYROLL_RUN_PAID"
	ActionRunCancelled      Action = "PAYROLL_RUN_CANCELLED"
	ActionLedgerGenerated   Action = "LEDGER_GENERATED"
	ActionLedgerPosted      Action = "LEDGER_POSTED"
	ActionDebtCreated       Action = "DEBT_CREATED"
	ActionDebtPayment       Action = "DEBT_PAYMENT"
	ActionDebtWrittenOff    Action = "DEBT_WRITTEN_OFF"
	ActionDebtSuspended     Action = "DEBT_SUSPENDED"
	ActionDebtResumed       Action = "DEBT_RESUMED"
	ActionStatutoryExpiring Action = "STATUTORY_CONFIG_EXPIRING"
)

// Entity types
const (
	EntityPayrollRun      = "payroll_run"
	EntityLedger          = "payroll_ledger"
	EntityDebt            = "employee_debt"
	EntityStatutoryConfig = "statutory_config"
)

// Event is the audit record handed to the sink. Old and New values are JSON-encodable.
type Event struct {
	Action      Action    `json:"action"`
	CompanyID   string    `json:"company_id"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	OldValue    any       `json:"old_value,omitempty"`
	NewValue    any       `json:"new_value,omitempty"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Sink accepts events fire-and-forget; Emit never blocks on storage.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Writer persists or forwards a batch of events.
type Writer interface {
	Write(ctx context.Context, events []Event) error
	Close() error
}
