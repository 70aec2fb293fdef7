package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type DebtHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	CompanySummary(w http.ResponseWriter, r *http.Request)
	EmployeeSummary(w http.ResponseWriter, r *http.Request)
	Transactions(w http.ResponseWriter, r *http.Request)

	MakePayment(w http.ResponseWriter, r *http.Request)
	WriteOff(w http.ResponseWriter, r *http.Request)
	Suspend(w http.ResponseWriter, r *http.Request)
	Resume(w http.ResponseWriter, r *http.Request)
}

type debtHandlerImpl struct {
	debtService debt.DebtService
}

func NewDebtHandler(debtService debt.DebtService) DebtHandler {
	return &debtHandlerImpl{debtService: debtService}
}

func (h *debtHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := debt.Filter{Page: 1, Limit: 20}

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
	if employeeID := q.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if status := q.Get("status"); status != "" {
		st := debt.Status(status)
		filter.Status = &st
	}
	if source := q.Get("source_type"); source != "" {
		src := debt.SourceType(source)
		filter.SourceType = &src
	}

	result, err := h.debtService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, debt.ToDebtResponses(result.Debts), pageMeta(result.Page, result.Limit, result.TotalItems))
}

func (h *debtHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req debt.CreateDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.debtService.CreateDebt(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Debt created", debt.ToDebtResponse(result))
}

func (h *debtHandlerImpl) CompanySummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.debtService.CompanySummary(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, debt.ToCompanySummaryResponse(result))
}

func (h *debtHandlerImpl) EmployeeSummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.debtService.EmployeeSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, debt.ToEmployeeSummaryResponse(result))
}

func (h *debtHandlerImpl) Transactions(w http.ResponseWriter, r *http.Request) {
	result, err := h.debtService.Transactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, debt.ToTransactionResponses(result))
}

func (h *debtHandlerImpl) MakePayment(w http.ResponseWriter, r *http.Request) {
	var req debt.ManualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.debtService.MakeManualPayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payment recorded", debt.ToPaymentResponse(result))
}

func (h *debtHandlerImpl) WriteOff(w http.ResponseWriter, r *http.Request) {
	var req debt.WriteOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.debtService.WriteOff(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Debt written off", debt.ToDebtResponse(result))
}

func (h *debtHandlerImpl) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true, "Debt suspended")
}

func (h *debtHandlerImpl) Resume(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false, "Debt resumed")
}

func (h *debtHandlerImpl) setSuspended(w http.ResponseWriter, r *http.Request, suspend bool, message string) {
	result, err := h.debtService.Suspend(r.Context(), chi.URLParam(r, "id"), suspend)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, debt.ToDebtResponse(result))
}
