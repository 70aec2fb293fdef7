package statutory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/shopspring/decimal"
)

const expiringSoonDays = 30

var hundred = decimal.NewFromInt(100)

type GateServiceImpl struct {
	provider statutory.Provider
	now      func() time.Time
}

func NewGateService(provider statutory.Provider) statutory.Gate {
	return &GateServiceImpl{provider: provider, now: time.Now}
}

// Validate checks the tenant's active configuration against the legal rates for asOf.
func (s *GateServiceImpl) Validate(ctx context.Context, companyID string, asOf time.Time, opts statutory.GateOptions) (statutory.GateResult, error) {
	now := s.now()

	cfg, err := s.provider.ActiveConfig(ctx, companyID, asOf)
	if errors.Is(err, statutory.ErrConfigNotFound) {
		issues := []validation.Issue{{
			Code:       statutory.CodeNoConfig,
			Severity:   validation.SeverityError,
			Message:    "No active statutory configuration found for company",
			Suggestion: "Create a statutory configuration before running payroll",
		}}
		res := statutory.GateResult{Result: validation.NewResult(issues, opts.Strict, now)}
		logGate(companyID, res)
		return res, nil
	}
	if err != nil {
		return statutory.GateResult{}, fmt.Errorf("failed to load statutory config: %w", err)
	}

	legal, err := s.provider.LegalRates(ctx)
	if err != nil {
		return statutory.GateResult{}, fmt.Errorf("failed to load legal rates: %w", err)
	}

	c := checker{cfg: cfg, legal: legal}
	c.effectiveDates(asOf, now, opts.AllowExpired)
	c.rate(cfg.EmployeeRate, legal.EmployeePension, "employee_rate", "Employee pension", statutory.CodeEmployeeRateInvalid, statutory.CodeEmployeeRateMismatch)
	c.rate(cfg.EmployerRate, legal.EmployerPension, "employer_rate", "Employer pension", statutory.CodeEmployerRateInvalid, statutory.CodeEmployerRateMismatch)
	c.rate(cfg.SanedRate, legal.EmployeeSaned, "saned_rate", "SANED", statutory.CodeSanedRateInvalid, statutory.CodeSanedRateMismatch)
	c.rate(cfg.HazardRate, legal.EmployerHazard, "hazard_rate", "Hazard", statutory.CodeHazardRateInvalid, statutory.CodeHazardRateMismatch)
	c.maxCap()
	c.minBase()
	c.totals()
	c.nationalsOnly()
	c.deductionCap()

	res := statutory.GateResult{
		Result: validation.NewResult(c.issues, opts.Strict, now),
		Config: &cfg,
	}
	logGate(companyID, res)
	return res, nil
}

type checker struct {
	cfg    statutory.Config
	legal  statutory.LegalRates
	issues []validation.Issue
}

func (c *checker) add(is validation.Issue) {
	c.issues = append(c.issues, is)
}

func (c *checker) differs(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(c.legal.Tolerance)
}

func (c *checker) effectiveDates(asOf, now time.Time, allowExpired bool) {
	if c.cfg.EffectiveDate.After(asOf) {
		c.add(validation.Issue{
			Code:     statutory.CodeNotYetEffective,
			Severity: validation.SeverityError,
			Message:  "Statutory configuration is not yet effective for the payroll period",
			Field:    "effective_date",
			Expected: "<= " + asOf.Format(time.DateOnly),
			Actual:   c.cfg.EffectiveDate.Format(time.DateOnly),
		})
	}
	if c.cfg.EndDate == nil {
		return
	}

	end := *c.cfg.EndDate
	if end.Before(asOf) {
		sev := validation.SeverityError
		if allowExpired {
			sev = validation.SeverityWarning
		}
		c.add(validation.Issue{
			Code:       statutory.CodeConfigExpired,
			Severity:   sev,
			Message:    "Statutory configuration has expired",
			Field:      "end_date",
			Expected:   ">= " + asOf.Format(time.DateOnly),
			Actual:     end.Format(time.DateOnly),
			Suggestion: "Create a new statutory configuration with updated dates",
		})
	}

	days := int(math.Ceil(end.Sub(now).Hours() / 24))
	if days > 0 && days <= expiringSoonDays {
		c.add(validation.Issue{
			Code:       statutory.CodeExpiringSoon,
			Severity:   validation.SeverityWarning,
			Message:    fmt.Sprintf("Statutory configuration will expire in %d days", days),
			Field:      "end_date",
			Actual:     end.Format(time.DateOnly),
			Suggestion: "Prepare a new statutory configuration before expiry",
		})
	}
}

func (c *checker) rate(rate, legal decimal.Decimal, field, label, invalidCode, mismatchCode string) {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		c.add(validation.Issue{
			Code:     invalidCode,
			Severity: validation.SeverityError,
			Message:  label + " rate is out of valid range (0-100)",
			Field:    field,
			Actual:   rate.String(),
		})
		return
	}
	if c.differs(rate, legal) {
		c.add(validation.Issue{
			Code:       mismatchCode,
			Severity:   validation.SeverityWarning,
			Message:    label + " rate differs from legal rate",
			Field:      field,
			Expected:   legal.String(),
			Actual:     rate.String(),
			Suggestion: fmt.Sprintf("Set %s to %s%%", field, legal.String()),
		})
	}
}

func (c *checker) maxCap() {
	limit := c.cfg.MaxCapAmount
	if !limit.IsPositive() {
		c.add(validation.Issue{
			Code:     statutory.CodeMaxCapInvalid,
			Severity: validation.SeverityError,
			Message:  "Maximum cap amount must be positive",
			Field:    "max_cap_amount",
			Actual:   limit.String(),
		})
		return
	}
	if limit.Equal(c.legal.MaxCapAmount) {
		return
	}
	is := validation.Issue{
		Code:       statutory.CodeMaxCapDiffers,
		Severity:   validation.SeverityInfo,
		Message:    "Maximum cap differs from the legal cap",
		Field:      "max_cap_amount",
		Expected:   c.legal.MaxCapAmount.String(),
		Actual:     limit.String(),
		Suggestion: "Consider increasing to the legal maximum",
	}
	if limit.GreaterThan(c.legal.MaxCapAmount) {
		is.Severity = validation.SeverityWarning
		is.Suggestion = "Verify this cap is intentional"
	}
	c.add(is)
}

func (c *checker) minBase() {
	base := c.cfg.MinBaseSalary
	if base.IsNegative() {
		c.add(validation.Issue{
			Code:     statutory.CodeMinBaseInvalid,
			Severity: validation.SeverityError,
			Message:  "Minimum base salary cannot be negative",
			Field:    "min_base_salary",
			Actual:   base.String(),
		})
		return
	}
	if base.IsPositive() && base.LessThan(c.legal.MinBaseSalary) {
		c.add(validation.Issue{
			Code:     statutory.CodeMinBaseLow,
			Severity: validation.SeverityInfo,
			Message:  "Minimum base salary is below the legal minimum",
			Field:    "min_base_salary",
			Expected: c.legal.MinBaseSalary.String(),
			Actual:   base.String(),
		})
	}
}

func (c *checker) totals() {
	employee := c.cfg.EmployeeRate.Add(c.cfg.SanedRate)
	if c.differs(employee, c.legal.EmployeeTotal()) {
		c.add(validation.Issue{
			Code:     statutory.CodeEmployeeTotalMismatch,
			Severity: validation.SeverityWarning,
			Message:  "Total employee contribution differs from legal requirement",
			Expected: c.legal.EmployeeTotal().String(),
			Actual:   employee.String(),
		})
	}
	employer := c.cfg.EmployerRate.Add(c.cfg.SanedRate).Add(c.cfg.HazardRate)
	if c.differs(employer, c.legal.EmployerTotal()) {
		c.add(validation.Issue{
			Code:     statutory.CodeEmployerTotalMismatch,
			Severity: validation.SeverityWarning,
			Message:  "Total employer contribution differs from legal requirement",
			Expected: c.legal.EmployerTotal().String(),
			Actual:   employer.String(),
		})
	}
}

func (c *checker) nationalsOnly() {
	if c.cfg.NationalsOnly {
		return
	}
	c.add(validation.Issue{
		Code:       statutory.CodeNotNationalsOnly,
		Severity:   validation.SeverityInfo,
		Message:    "Statutory insurance applies to non-national employees as well",
		Field:      "nationals_only",
		Actual:     "false",
		Suggestion: "Verify this setting is intentional",
	})
}

func (c *checker) deductionCap() {
	p := c.cfg.DeductionCapPercent
	if p.IsNegative() || p.GreaterThan(hundred) {
		c.add(validation.Issue{
			Code:     statutory.CodeDeductionCapInvalid,
			Severity: validation.SeverityError,
			Message:  "Deduction cap percent is out of valid range (0-100)",
			Field:    "deduction_cap_percent",
			Actual:   p.String(),
		})
	}
}

func logGate(companyID string, res statutory.GateResult) {
	attrs := []any{
		"company_id", companyID,
		"errors", res.Summary.Errors,
		"warnings", res.Summary.Warnings,
		"info", res.Summary.Info,
	}
	if res.IsValid {
		slog.Info("Statutory validation passed", attrs...)
		return
	}
	codes := make([]string, 0, res.Summary.Errors)
	for _, is := range res.Errors() {
		codes = append(codes, is.Code)
	}
	slog.Error("Statutory validation failed", append(attrs, "codes", codes)...)
}
