package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Generic error codes. Domain failures carry their own codes, see HandleError.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeBlocked         = "VALIDATION_BLOCKED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeUnprocessable   = "UNPROCESSABLE_ENTITY"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
	codeEncodingFailure = "ENCODING_ERROR"
)

// Response is the envelope of every JSON body the API writes.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Meta    *Meta        `json:"meta,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Page       int   `json:"page,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	TotalItems int64 `json:"total_items,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload Response) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(Response{Error: &ErrorDetail{Code: codeEncodingFailure, Message: "Failed to encode response"}})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func Success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func SuccessWithMeta(w http.ResponseWriter, data any, meta *Meta) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

func Created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Fail writes an error envelope. data is optional context such as validation issues.
func Fail(w http.ResponseWriter, status int, code, message string, details map[string]string, data any) {
	writeJSON(w, status, Response{
		Data:  data,
		Error: &ErrorDetail{Code: code, Message: message, Details: details},
	})
}

func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	Fail(w, http.StatusBadRequest, CodeBadRequest, message, details, nil)
}

func ValidationError(w http.ResponseWriter, details map[string]string) {
	Fail(w, http.StatusBadRequest, CodeValidation, "Validation failed", details, nil)
}

// Blocked reports a state transition refused by validation; data carries every issue.
func Blocked(w http.ResponseWriter, message string, data any) {
	Fail(w, http.StatusUnprocessableEntity, CodeBlocked, message, nil, data)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Fail(w, http.StatusUnauthorized, CodeUnauthorized, message, nil, nil)
}

func Forbidden(w http.ResponseWriter, message string) {
	Fail(w, http.StatusForbidden, CodeForbidden, message, nil, nil)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Fail(w, http.StatusInternalServerError, CodeInternal, message, nil, nil)
}
