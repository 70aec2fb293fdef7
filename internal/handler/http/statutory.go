package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

type StatutoryHandler interface {
	Validate(w http.ResponseWriter, r *http.Request)
}

type statutoryHandlerImpl struct {
	gate statutory.Gate
	now  func() time.Time
}

func NewStatutoryHandler(gate statutory.Gate) StatutoryHandler {
	return &statutoryHandlerImpl{gate: gate, now: time.Now}
}

// Validate checks the caller's statutory configuration for ?date= (default today).
func (h *statutoryHandlerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	a, err := actor.Require(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	now := h.now().UTC()
	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, ok := validator.IsValidDate(dateStr)
		if !ok {
			response.BadRequest(w, "Invalid date", map[string]string{"date": "must be YYYY-MM-DD"})
			return
		}
		asOf = date
	}

	opts := statutory.GateOptions{
		Strict:       queryBool(r, "strict"),
		AllowExpired: queryBool(r, "allow_expired"),
	}
	result, err := h.gate.Validate(r.Context(), a.CompanyID, asOf, opts)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, statutory.ToGateResponse(result, asOf))
}
