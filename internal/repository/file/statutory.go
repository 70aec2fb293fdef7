// Package file loads statutory configuration from a YAML document.
package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type legalRatesDoc struct {
	EmployeePension string `yaml:"employee_pension"`
	EmployeeSaned   string `yaml:"employee_saned"`
	EmployerPension string `yaml:"employer_pension"`
	EmployerSaned   string `yaml:"employer_saned"`
	EmployerHazard  string `yaml:"employer_hazard"`
	MaxCapAmount    string `yaml:"max_cap_amount"`
	MinBaseSalary   string `yaml:"min_base_salary"`
	Tolerance       string `yaml:"tolerance"`
}

type configDoc struct {
	ID                    string   `yaml:"id"`
	Version               int      `yaml:"version"`
	EmployeeRate          string   `yaml:"employee_rate"`
	EmployerRate          string   `yaml:"employer_rate"`
	SanedRate             string   `yaml:"saned_rate"`
	HazardRate            string   `yaml:"hazard_rate"`
	MaxCapAmount          string   `yaml:"max_cap_amount"`
	MinBaseSalary         string   `yaml:"min_base_salary"`
	MinimumWage           string   `yaml:"minimum_wage"`
	MinimumWageCategories []string `yaml:"minimum_wage_categories"`
	DeductionCapPercent   string   `yaml:"deduction_cap_percent"`
	DebtSettlementPercent string   `yaml:"debt_settlement_percent"`
	NationalsOnly         *bool    `yaml:"nationals_only"`
	NationalityCode       string   `yaml:"nationality_code"`
	EffectiveDate         string   `yaml:"effective_date"`
	EndDate               string   `yaml:"end_date"`
	Active                *bool    `yaml:"active"`
}

type document struct {
	LegalRates *legalRatesDoc          `yaml:"legal_rates"`
	Companies  map[string][]configDoc `yaml:"companies"`
}

// StatutoryProvider serves configs parsed once from YAML.
type StatutoryProvider struct {
	legal   statutory.LegalRates
	configs map[string][]statutory.Config
}

// LoadStatutoryFile reads and parses path.
func LoadStatutoryFile(path string) (*StatutoryProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read statutory file: %w", err)
	}
	return ParseStatutory(raw)
}

// ParseStatutory parses a YAML statutory document. Missing legal rates fall back to
// statutory.DefaultLegalRates.
func ParseStatutory(raw []byte) (*StatutoryProvider, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", statutory.ErrInvalidConfig, err)
	}

	p := &StatutoryProvider{
		legal:   statutory.DefaultLegalRates(),
		configs: make(map[string][]statutory.Config),
	}
	if doc.LegalRates != nil {
		l, err := doc.LegalRates.toDomain(p.legal)
		if err != nil {
			return nil, err
		}
		p.legal = l
	}

	for companyID, docs := range doc.Companies {
		for i, cd := range docs {
			c, err := cd.toDomain(companyID)
			if err != nil {
				return nil, fmt.Errorf("company %s config %d: %w", companyID, i, err)
			}
			p.configs[companyID] = append(p.configs[companyID], c)
		}
		sort.Slice(p.configs[companyID], func(i, j int) bool {
			return p.configs[companyID][i].Version < p.configs[companyID][j].Version
		})
	}
	return p, nil
}

type decimalParser struct {
	err error
}

func (dp *decimalParser) parse(field, v string, def decimal.Decimal) decimal.Decimal {
	if v == "" || dp.err != nil {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		dp.err = fmt.Errorf("%w: %s: %v", statutory.ErrInvalidConfig, field, err)
		return def
	}
	return d
}

func (l legalRatesDoc) toDomain(def statutory.LegalRates) (statutory.LegalRates, error) {
	var dp decimalParser
	out := statutory.LegalRates{
		EmployeePension: dp.parse("employee_pension", l.EmployeePension, def.EmployeePension),
		EmployeeSaned:   dp.parse("employee_saned", l.EmployeeSaned, def.EmployeeSaned),
		EmployerPension: dp.parse("employer_pension", l.EmployerPension, def.EmployerPension),
		EmployerSaned:   dp.parse("employer_saned", l.EmployerSaned, def.EmployerSaned),
		EmployerHazard:  dp.parse("employer_hazard", l.EmployerHazard, def.EmployerHazard),
		MaxCapAmount:    dp.parse("max_cap_amount", l.MaxCapAmount, def.MaxCapAmount),
		MinBaseSalary:   dp.parse("min_base_salary", l.MinBaseSalary, def.MinBaseSalary),
		Tolerance:       dp.parse("tolerance", l.Tolerance, def.Tolerance),
	}
	return out, dp.err
}

func (c configDoc) toDomain(companyID string) (statutory.Config, error) {
	var dp decimalParser
	zero := decimal.Zero
	out := statutory.Config{
		ID:                    c.ID,
		CompanyID:             companyID,
		Version:               c.Version,
		EmployeeRate:          dp.parse("employee_rate", c.EmployeeRate, zero),
		EmployerRate:          dp.parse("employer_rate", c.EmployerRate, zero),
		SanedRate:             dp.parse("saned_rate", c.SanedRate, zero),
		HazardRate:            dp.parse("hazard_rate", c.HazardRate, zero),
		MaxCapAmount:          dp.parse("max_cap_amount", c.MaxCapAmount, zero),
		MinBaseSalary:         dp.parse("min_base_salary", c.MinBaseSalary, zero),
		MinimumWage:           dp.parse("minimum_wage", c.MinimumWage, zero),
		MinimumWageCategories: c.MinimumWageCategories,
		DeductionCapPercent:   dp.parse("deduction_cap_percent", c.DeductionCapPercent, zero),
		DebtSettlementPercent: dp.parse("debt_settlement_percent", c.DebtSettlementPercent, zero),
		NationalsOnly:         c.NationalsOnly == nil || *c.NationalsOnly,
		NationalityCode:       c.NationalityCode,
		IsActive:              c.Active == nil || *c.Active,
	}
	if dp.err != nil {
		return statutory.Config{}, dp.err
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("%s-v%d", companyID, c.Version)
	}

	eff, err := time.Parse(dateLayout, c.EffectiveDate)
	if err != nil {
		return statutory.Config{}, fmt.Errorf("%w: effective_date: %v", statutory.ErrInvalidConfig, err)
	}
	out.EffectiveDate = eff
	if c.EndDate != "" {
		end, err := time.Parse(dateLayout, c.EndDate)
		if err != nil {
			return statutory.Config{}, fmt.Errorf("%w: end_date: %v", statutory.ErrInvalidConfig, err)
		}
		out.EndDate = &end
	}
	return out, nil
}

func (p *StatutoryProvider) ActiveConfig(ctx context.Context, companyID string, asOf time.Time) (statutory.Config, error) {
	var latest, effective *statutory.Config
	for i := range p.configs[companyID] {
		c := &p.configs[companyID][i]
		if !c.IsActive {
			continue
		}
		latest = c
		if !c.EffectiveDate.After(asOf) && (c.EndDate == nil || !c.EndDate.Before(asOf)) {
			effective = c
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

func (p *StatutoryProvider) LegalRates(ctx context.Context) (statutory.LegalRates, error) {
	return p.legal, nil
}

func (p *StatutoryProvider) CompaniesWithActiveConfig(ctx context.Context) ([]string, error) {
	var out []string
	for companyID, configs := range p.configs {
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
