package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/wageclient"
)

// errorMapping turns a sentinel into a response. An empty message echoes err.Error().
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// First match wins. A failed wage call can carry both ErrUnavailable and
// ErrWageComputation in its chain.
var errorMappings = []errorMapping{
	{actor.ErrNoActor, http.StatusUnauthorized, CodeUnauthorized, "Missing tenant"},

	// Payroll runs
	{payrun.ErrRunNotFound, http.StatusNotFound, CodeNotFound, "Payroll run not found"},
	{payrun.ErrPeriodNotFound, http.StatusNotFound, CodeNotFound, "Payroll period not found"},
	{payrun.ErrPayslipNotFound, http.StatusNotFound, CodeNotFound, "Payslip not found"},
	{validation.ErrPayslipNotFound, http.StatusNotFound, CodeNotFound, "Payslip not found"},
	{payrun.ErrRunAlreadyExists, http.StatusConflict, CodeConflict, "An active payroll run already exists for this period"},
	{payrun.ErrPeriodAlreadyPaid, http.StatusConflict, CodeConflict, "Payroll period already paid"},
	{payrun.ErrInvalidTransition, http.StatusConflict, CodeConflict, "Invalid payroll run status transition"},
	{payrun.ErrAdjustmentLinked, http.StatusConflict, CodeConflict, "An adjustment was linked to another run; retry"},
	{payrun.ErrNoEligibleEmployees, http.StatusUnprocessableEntity, CodeUnprocessable, "No eligible employees for this period"},
	{payrun.ErrInvalidFilter, http.StatusBadRequest, CodeBadRequest, ""},
	{payrun.ErrInvalidLine, http.StatusUnprocessableEntity, CodeUnprocessable, ""},
	{wageclient.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable, "Wage service unavailable"},
	{payrun.ErrWageComputation, http.StatusUnprocessableEntity, CodeUnprocessable, ""},

	// Ledgers
	{ledger.ErrLedgerNotFound, http.StatusNotFound, CodeNotFound, "Payroll ledger not found"},
	{ledger.ErrLedgerAlreadyPosted, http.StatusConflict, CodeConflict, "Payroll ledger already posted"},

	// Debts
	{debt.ErrDebtNotFound, http.StatusNotFound, CodeNotFound, "Debt not found"},
	{debt.ErrInvalidAmount, http.StatusBadRequest, CodeBadRequest, ""},
	{debt.ErrDebtClosed, http.StatusConflict, CodeConflict, ""},
	{debt.ErrDebtNotSuspended, http.StatusConflict, CodeConflict, ""},
	{debt.ErrDebtAlreadySuspended, http.StatusConflict, CodeConflict, ""},
	{debt.ErrConcurrentModification, http.StatusConflict, CodeConflict, "Debt was modified concurrently; retry"},

	// Statutory configuration
	{statutory.ErrConfigNotFound, http.StatusNotFound, CodeNotFound, "Statutory configuration not found"},
	{statutory.ErrInvalidConfig, http.StatusUnprocessableEntity, CodeUnprocessable, ""},

	{context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout, "Request timed out"},
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var blocked *validation.BlockedError
	if errors.As(err, &blocked) {
		Blocked(w, blocked.Error(), validation.ToResultResponse(blocked.Result))
		return
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		Fail(w, m.status, m.code, msg, nil, nil)
		return
	}

	slog.Error("Unhandled error", "error", err)
	InternalServerError(w, "An unexpected error occurred")
}
