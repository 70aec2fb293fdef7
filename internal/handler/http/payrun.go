package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payrun"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/validation"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrunHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	PreviewRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	GetRunTotals(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	ApproveRun(w http.ResponseWriter, r *http.Request)
	PayRun(w http.ResponseWriter, r *http.Request)
	CancelRun(w http.ResponseWriter, r *http.Request)

	// Validation and posting
	ValidateRun(w http.ResponseWriter, r *http.Request)
	RunReport(w http.ResponseWriter, r *http.Request)
	GetLedger(w http.ResponseWriter, r *http.Request)
	ValidatePayslip(w http.ResponseWriter, r *http.Request)
}

type payrunHandlerImpl struct {
	payrunService     payrun.PayrunService
	validationService validation.ValidationService
	ledgerService     ledger.LedgerService
}

func NewPayrunHandler(payrunService payrun.PayrunService, validationService validation.ValidationService, ledgerService ledger.LedgerService) PayrunHandler {
	return &payrunHandlerImpl{
		payrunService:     payrunService,
		validationService: validationService,
		ledgerService:     ledgerService,
	}
}

// ========== RUNS ==========

func (h *payrunHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payrun.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrunService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", payrun.ToRunDetailResponse(result, false))
}

func (h *payrunHandlerImpl) PreviewRun(w http.ResponseWriter, r *http.Request) {
	var req payrun.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrunService.PreviewRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payrun.ToPreviewResponse(result))
}

func (h *payrunHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := payrun.RunFilter{Page: 1, Limit: 20}

	if pageStr := q.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if periodID := q.Get("period_id"); periodID != "" {
		filter.PeriodID = &periodID
	}
	if status := q.Get("status"); status != "" {
		st := payrun.Status(status)
		filter.Status = &st
	}

	result, err := h.payrunService.ListRuns(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, payrun.ToRunResponses(result.Runs), pageMeta(result.Page, result.Limit, result.TotalItems))
}

func (h *payrunHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrunService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payrun.ToRunDetailResponse(result, queryBool(r, "trace")))
}

func (h *payrunHandlerImpl) GetRunTotals(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrunService.GetRunTotals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payrun.ToTotalsResponse(result))
}

// ========== LIFECYCLE ==========

func (h *payrunHandlerImpl) ApproveRun(w http.ResponseWriter, r *http.Request) {
	var req payrun.ApproveRunRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	result, err := h.payrunService.ApproveRun(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run approved", payrun.ToRunResponse(result))
}

func (h *payrunHandlerImpl) PayRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrunService.PayRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run paid", payrun.ToRunResponse(result))
}

func (h *payrunHandlerImpl) CancelRun(w http.ResponseWriter, r *http.Request) {
	var req payrun.CancelRunRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	result, err := h.payrunService.CancelRun(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run cancelled", payrun.ToRunResponse(result))
}

// ========== VALIDATION AND POSTING ==========

func (h *payrunHandlerImpl) ValidateRun(w http.ResponseWriter, r *http.Request) {
	opts := validation.Options{Strict: queryBool(r, "strict")}

	result, err := h.validationService.ValidateRun(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, validation.ToResultResponse(result))
}

func (h *payrunHandlerImpl) RunReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.validationService.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, validation.ToReportResponse(result))
}

func (h *payrunHandlerImpl) GetLedger(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, ledger.ToLedgerResponse(result))
}

func (h *payrunHandlerImpl) ValidatePayslip(w http.ResponseWriter, r *http.Request) {
	result, err := h.validationService.ValidatePayslip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, validation.ToResultResponse(result))
}
