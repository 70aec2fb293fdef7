package ledger

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
)

type EntryResponse struct {
	AccountCode string  `json:"account_code"`
	AccountName string  `json:"account_name"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
}

type LedgerResponse struct {
	ID                        string          `json:"id"`
	RunID                     string          `json:"run_id"`
	PeriodID                  string          `json:"period_id"`
	Status                    Status          `json:"status"`
	TotalGross                float64         `json:"total_gross"`
	TotalDeduction            float64         `json:"total_deduction"`
	TotalNet                  float64         `json:"total_net"`
	TotalEmployerContribution float64         `json:"total_employer_contribution"`
	TotalDebit                float64         `json:"total_debit"`
	TotalCredit               float64         `json:"total_credit"`
	Entries                   []EntryResponse `json:"entries"`
	GeneratedAt               time.Time       `json:"generated_at"`
	PostedAt                  *time.Time      `json:"posted_at,omitempty"`
}

func ToLedgerResponse(l Ledger) LedgerResponse {
	debit, credit := l.Balance()
	resp := LedgerResponse{
		ID:                        l.ID,
		RunID:                     l.RunID,
		PeriodID:                  l.PeriodID,
		Status:                    l.Status,
		TotalGross:                money.Display(l.TotalGross),
		TotalDeduction:            money.Display(l.TotalDeduction),
		TotalNet:                  money.Display(l.TotalNet),
		TotalEmployerContribution: money.Display(l.TotalEmployerContribution),
		TotalDebit:                money.Display(debit),
		TotalCredit:               money.Display(credit),
		Entries:                   make([]EntryResponse, 0, len(l.Entries)),
		GeneratedAt:               l.GeneratedAt,
		PostedAt:                  l.PostedAt,
	}
	for _, e := range l.Entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			AccountCode: e.AccountCode,
			AccountName: e.AccountName,
			Debit:       money.Display(e.Debit),
			Credit:      money.Display(e.Credit),
		})
	}
	return resp
}
