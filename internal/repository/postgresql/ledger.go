package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type ledgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) ledger.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetByRun(ctx context.Context, runID string, companyID string) (ledger.Ledger, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, run_id, period_id, total_gross, total_deduction, total_net,
			   total_employer_contribution, status, generated_at, posted_at, posted_by
		FROM payroll_ledgers
		WHERE run_id = $1 AND company_id = $2
	`
	var l ledger.Ledger
	err := q.QueryRow(ctx, query, runID, companyID).Scan(
		&l.ID, &l.CompanyID, &l.RunID, &l.PeriodID, &l.TotalGross, &l.TotalDeduction, &l.TotalNet,
		&l.TotalEmployerContribution, &l.Status, &l.GeneratedAt, &l.PostedAt, &l.PostedBy,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ledger.Ledger{}, ledger.ErrLedgerNotFound
		}
		return ledger.Ledger{}, fmt.Errorf("failed to get ledger: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, ledger_id, account_code, account_name, debit, credit, description
		FROM payroll_ledger_entries
		WHERE ledger_id = $1
		ORDER BY account_code, credit, id
	`, l.ID)
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.LedgerID, &e.AccountCode, &e.AccountName, &e.Debit, &e.Credit, &e.Description); err != nil {
			return ledger.Ledger{}, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		l.Entries = append(l.Entries, e)
	}
	return l, rows.Err()
}

func (r *ledgerRepository) ReplaceDraft(ctx context.Context, l ledger.Ledger) error {
	q := GetQuerier(ctx, r.db)

	// Entries cascade with the ledger row.
	_, err := q.Exec(ctx, `DELETE FROM payroll_ledgers WHERE run_id = $1 AND company_id = $2 AND status = 'DRAFT'`, l.RunID, l.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to delete draft ledger: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO payroll_ledgers (
			id, company_id, run_id, period_id, total_gross, total_deduction, total_net,
			total_employer_contribution, status, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, l.ID, l.CompanyID, l.RunID, l.PeriodID, l.TotalGross, l.TotalDeduction, l.TotalNet,
		l.TotalEmployerContribution, l.Status, l.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	for _, e := range l.Entries {
		_, err := q.Exec(ctx, `
			INSERT INTO payroll_ledger_entries (id, ledger_id, account_code, account_name, debit, credit, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, l.ID, e.AccountCode, e.AccountName, e.Debit, e.Credit, e.Description)
		if err != nil {
			return fmt.Errorf("failed to create ledger entry %s: %w", e.AccountCode, err)
		}
	}
	return nil
}

func (r *ledgerRepository) MarkPosted(ctx context.Context, l ledger.Ledger) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_ledgers SET status = 'POSTED', posted_at = $3, posted_by = $4
		WHERE id = $1 AND company_id = $2 AND status = 'DRAFT'
	`, l.ID, l.CompanyID, l.PostedAt, l.PostedBy)
	if err != nil {
		return fmt.Errorf("failed to post ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrLedgerAlreadyPosted
	}
	return nil
}
