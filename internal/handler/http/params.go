package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
)

// queryBool reads a boolean query flag; anything unparsable is false.
func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// decodeOptional decodes a JSON body that may be absent. It writes the error response
// and returns false on malformed input.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	response.BadRequest(w, "Invalid request body", nil)
	return false
}

func pageMeta(page, limit int, total int64) *response.Meta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &response.Meta{Page: page, Limit: limit, TotalItems: total, TotalPages: pages}
}
