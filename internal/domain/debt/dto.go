package debt

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== REQUESTS ==========

type CreateDebtRequest struct {
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	SourceType string          `json:"source_type"`
	Notes      string          `json:"notes,omitempty"`
}

func (r *CreateDebtRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "is required")
	}
	if !validator.IsPositiveAmount(r.Amount) {
		errs.Add("amount", "must be greater than zero")
	}
	if !SourceType(r.SourceType).Valid() {
		errs.Add("source_type", "must be one of NEGATIVE_BALANCE, LOAN, ADVANCE, OTHER")
	}
	return errs.Err()
}

type ManualPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes,omitempty"`
}

func (r *ManualPaymentRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsPositiveAmount(r.Amount) {
		errs.Add("amount", "must be greater than zero")
	}
	return errs.Err()
}

type WriteOffRequest struct {
	Reason string `json:"reason"`
}

func (r *WriteOffRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.Reason) {
		errs.Add("reason", "is required")
	}
	return errs.Err()
}

// DeductRequest settles open debts from an available amount outside a payroll run.
type DeductRequest struct {
	EmployeeID string
	Available  decimal.Decimal
	// MaxPercent of Available may be deducted; nil means 100.
	MaxPercent *decimal.Decimal
	RunID      *string
	Source     TransactionSource
}

// ========== RESULTS ==========

type DeductionResult struct {
	TotalDeducted  decimal.Decimal
	RemainingDebts []Debt
	Transactions   []Transaction
}

type PaymentResult struct {
	Debt        Debt
	Transaction Transaction
	NewBalance  decimal.Decimal
	IsSettled   bool
}

type EmployeeSummary struct {
	EmployeeID  string
	TotalActive decimal.Decimal
	OpenCount   int
	Debts       []Debt
}

type CompanySummary struct {
	ByStatus              []StatusTotal
	TotalOutstanding      decimal.Decimal
	EmployeesWithOpenDebt int
}

type ListResult struct {
	Debts      []Debt
	TotalItems int64
	Page       int
	Limit      int
}

// ========== RESPONSES ==========

type DebtResponse struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employee_id"`
	OriginalAmount   float64    `json:"original_amount"`
	RemainingBalance float64    `json:"remaining_balance"`
	Status           Status     `json:"status"`
	SourceType       SourceType `json:"source_type"`
	RunID            *string    `json:"run_id,omitempty"`
	PeriodID         *string    `json:"period_id,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type TransactionResponse struct {
	ID            string            `json:"id"`
	Sequence      int               `json:"sequence"`
	Type          TransactionType   `json:"type"`
	Source        TransactionSource `json:"source"`
	Amount        float64           `json:"amount"`
	BalanceBefore float64           `json:"balance_before"`
	BalanceAfter  float64           `json:"balance_after"`
	RunID         *string           `json:"run_id,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type PaymentResponse struct {
	Debt        DebtResponse        `json:"debt"`
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  float64             `json:"new_balance"`
	IsSettled   bool                `json:"is_settled"`
}

type EmployeeSummaryResponse struct {
	EmployeeID  string         `json:"employee_id"`
	TotalActive float64        `json:"total_active"`
	OpenCount   int            `json:"open_count"`
	Debts       []DebtResponse `json:"debts"`
}

type StatusTotalResponse struct {
	Status    Status  `json:"status"`
	Count     int     `json:"count"`
	Original  float64 `json:"original"`
	Remaining float64 `json:"remaining"`
}

type CompanySummaryResponse struct {
	ByStatus              []StatusTotalResponse `json:"by_status"`
	TotalOutstanding      float64               `json:"total_outstanding"`
	EmployeesWithOpenDebt int                   `json:"employees_with_open_debt"`
}

func ToDebtResponse(d Debt) DebtResponse {
	return DebtResponse{
		ID:               d.ID,
		EmployeeID:       d.EmployeeID,
		OriginalAmount:   money.Display(d.OriginalAmount),
		RemainingBalance: money.Display(d.RemainingBalance),
		Status:           d.Status,
		SourceType:       d.SourceType,
		RunID:            d.RunID,
		PeriodID:         d.PeriodID,
		Notes:            d.Notes,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func ToDebtResponses(debts []Debt) []DebtResponse {
	out := make([]DebtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, ToDebtResponse(d))
	}
	return out
}

func ToTransactionResponse(t Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		Sequence:      t.Sequence,
		Type:          t.Type,
		Source:        t.Source,
		Amount:        money.Display(t.Amount),
		BalanceBefore: money.Display(t.BalanceBefore),
		BalanceAfter:  money.Display(t.BalanceAfter),
		RunID:         t.RunID,
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt,
	}
}

func ToTransactionResponses(txs []Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, ToTransactionResponse(t))
	}
	return out
}

func ToPaymentResponse(p PaymentResult) PaymentResponse {
	return PaymentResponse{
		Debt:        ToDebtResponse(p.Debt),
		Transaction: ToTransactionResponse(p.Transaction),
		NewBalance:  money.Display(p.NewBalance),
		IsSettled:   p.IsSettled,
	}
}

func ToEmployeeSummaryResponse(s EmployeeSummary) EmployeeSummaryResponse {
	return EmployeeSummaryResponse{
		EmployeeID:  s.EmployeeID,
		TotalActive: money.Display(s.TotalActive),
		OpenCount:   s.OpenCount,
		Debts:       ToDebtResponses(s.Debts),
	}
}

func ToCompanySummaryResponse(s CompanySummary) CompanySummaryResponse {
	resp := CompanySummaryResponse{
		ByStatus:              make([]StatusTotalResponse, 0, len(s.ByStatus)),
		TotalOutstanding:      money.Display(s.TotalOutstanding),
		EmployeesWithOpenDebt: s.EmployeesWithOpenDebt,
	}
	for _, st := range s.ByStatus {
		resp.ByStatus = append(resp.ByStatus, StatusTotalResponse{
			Status:    st.Status,
			Count:     st.Count,
			Original:  money.Display(st.Original),
			Remaining: money.Display(st.Remaining),
		})
	}
	return resp
}
