package file

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
legal_rates:
  max_cap_amount: 50000
companies:
  co-1:
    - version: 1
      employee_rate: 9
      employer_rate: 9
      saned_rate: "0.75"
      hazard_rate: 2
      max_cap_amount: 45000
      min_base_salary: 1500
      nationality_code: SA
      effective_date: "2025-01-01"
      end_date: "2025-12-31"
    - version: 2
      employee_rate: 9
      employer_rate: 9
      saned_rate: 0.75
      hazard_rate: 2
      max_cap_amount: 45000
      min_base_salary: 1500
      minimum_wage: 4000
      minimum_wage_categories: [NATIONAL]
      nationality_code: SA
      effective_date: "2026-01-01"
  co-2:
    - version: 1
      employee_rate: 9
      employer_rate: 9
      effective_date: "2026-01-01"
      active: false
`

func TestParseStatutory(t *testing.T) {
	p, err := ParseStatutory([]byte(sample))
	require.NoError(t, err)
	ctx := context.Background()

	legal, err := p.LegalRates(ctx)
	require.NoError(t, err)
	assert.True(t, legal.MaxCapAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, legal.EmployeePension.Equal(decimal.NewFromInt(9)), "unset fields keep defaults")

	c, err := p.ActiveConfig(ctx, "co-1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Version)
	assert.True(t, c.SanedRate.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, c.NationalsOnly)

	c, err = p.ActiveConfig(ctx, "co-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Version)
	assert.Equal(t, []string{"NATIONAL"}, c.MinimumWageCategories)

	_, err = p.ActiveConfig(ctx, "co-2", time.Now())
	assert.ErrorIs(t, err, statutory.ErrConfigNotFound)

	companies, err := p.CompaniesWithActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"co-1"}, companies)
}

func TestParseStatutory_Invalid(t *testing.T) {
	_, err := ParseStatutory([]byte("companies:\n  c:\n    - version: 1\n      employee_rate: nine\n      effective_date: \"2026-01-01\"\n"))
	assert.ErrorIs(t, err, statutory.ErrInvalidConfig)

	_, err = ParseStatutory([]byte("companies:\n  c:\n    - version: 1\n      effective_date: yesterday\n"))
	assert.ErrorIs(t, err, statutory.ErrInvalidConfig)
}
