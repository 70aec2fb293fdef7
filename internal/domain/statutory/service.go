package statutory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
)

// Issue codes raised by the statutory configuration gate.
const (
	CodeNoConfig              = "STATUTORY_NO_CONFIG"
	CodeNotYetEffective       = "STATUTORY_NOT_YET_EFFECTIVE"
	CodeConfigExpired         = "STATUTORY_CONFIG_EXPIRED"
	CodeExpiringSoon          = "STATUTORY_EXPIRING_SOON"
	CodeEmployeeRateInvalid   = "STATUTORY_EMPLOYEE_RATE_INVALID"
	CodeEmployeeRateMismatch  = "STATUTORY_EMPLOYEE_RATE_MISMATCH"
	CodeEmployerRateInvalid   = "STATUTORY_EMPLOYER_RATE_INVALID"
	CodeEmployerRateMismatch  = "STATUTORY_EMPLOYER_RATE_MISMATCH"
	CodeSanedRateInvalid      = "STATUTORY_SANED_RATE_INVALID"
	CodeSanedRateMismatch     = "STATUTORY_SANED_RATE_MISMATCH"
	CodeHazardRateInvalid     = "STATUTORY_HAZARD_RATE_INVALID"
	CodeHazardRateMismatch    = "STATUTORY_HAZARD_RATE_MISMATCH"
	CodeMaxCapInvalid         = "STATUTORY_MAX_CAP_INVALID"
	CodeMaxCapDiffers         = "STATUTORY_MAX_CAP_DIFFERS"
	CodeMinBaseInvalid        = "STATUTORY_MIN_BASE_INVALID"
	CodeMinBaseLow            = "STATUTORY_MIN_BASE_LOW"
	CodeEmployeeTotalMismatch = "STATUTORY_EMPLOYEE_TOTAL_MISMATCH"
	CodeEmployerTotalMismatch = "STATUTORY_EMPLOYER_TOTAL_MISMATCH"
	CodeNotNationalsOnly      = "STATUTORY_NOT_NATIONALS_ONLY"
	CodeDeductionCapInvalid   = "STATUTORY_DEDUCTION_CAP_INVALID"
)

type GateOptions struct {
	Strict       bool
	AllowExpired bool
}

// GateResult is the gate verdict plus the config it inspected (nil when none exists).
type GateResult struct {
	validation.Result
	Config *Config
}

// Gate checks that a tenant's configuration is usable for a target date.
type Gate interface {
	Validate(ctx context.Context, companyID string, asOf time.Time, opts GateOptions) (GateResult, error)
}
