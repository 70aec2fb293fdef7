package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/wageclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	var fieldErrs validator.ValidationErrors
	fieldErrs.Add("period_id", "is required")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"field validation", fieldErrs, http.StatusBadRequest, CodeValidation},
		{"blocked transition", &validation.BlockedError{Op: "approve"}, http.StatusUnprocessableEntity, CodeBlocked},
		{"wrapped not found", fmt.Errorf("failed to load run: %w", payrun.ErrRunNotFound), http.StatusNotFound, CodeNotFound},
		{"duplicate run", payrun.ErrRunAlreadyExists, http.StatusConflict, CodeConflict},
		{"wage service down", fmt.Errorf("%w: employee E1: %w", payrun.ErrWageComputation, wageclient.ErrUnavailable), http.StatusServiceUnavailable, CodeUnavailable},
		{"wage rejected", fmt.Errorf("%w: employee E1: bad line", payrun.ErrWageComputation), http.StatusUnprocessableEntity, CodeUnprocessable},
		{"debt version", debt.ErrConcurrentModification, http.StatusConflict, CodeConflict},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestHandleError_EchoesDomainMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, debt.ErrDebtClosed)

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, debt.ErrDebtClosed.Error(), body.Error.Message)
}
