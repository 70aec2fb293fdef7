package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type componentRepository struct {
	db *database.DB
}

func NewComponentRepository(db *database.DB) payrun.ComponentRepository {
	return &componentRepository{db: db}
}

func (r *componentRepository) ListByCompany(ctx context.Context, companyID string) ([]payrun.Component, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, code, name, sign, category, is_active
		FROM payroll_components
		WHERE company_id = $1
		ORDER BY code
	`
	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll components: %w", err)
	}
	defer rows.Close()

	var out []payrun.Component
	for rows.Next() {
		var c payrun.Component
		var sign string
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &sign, &c.Category, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan payroll component: %w", err)
		}
		if c.Sign, err = payrun.ParseSign(sign); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
