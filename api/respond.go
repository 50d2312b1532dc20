package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const codeRateLimited = "RATE_LIMITED"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error code to its HTTP status.
func statusOf(code string) int {
	switch code {
	case types.ErrValidation, types.ErrResolution:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrInvalidState, types.ErrUnavailable:
		return http.StatusConflict
	case types.ErrExpired:
		return http.StatusGone
	case types.ErrBalanceRead, types.ErrChain:
		return http.StatusBadGateway
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *types.Error
	if !errors.As(err, &e) {
		h.log.Error("unhandled error", map[string]any{"path": r.URL.Path, "error": err})
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: types.ErrStore})
		return
	}

	status := statusOf(e.Code)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", map[string]any{"path": r.URL.Path, "code": e.Code, "error": err})
	}
	msg := e.Message
	if status < http.StatusInternalServerError && e.Err != nil && e.Code != types.ErrNotFound {
		msg = e.Error()
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: e.Code})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return utils.DecodeJSON(r.Body, v)
}

// pageQuery reads page and limit, leaving zero when absent.
func pageQuery(r *http.Request) (types.PageQuery, error) {
	var q types.PageQuery
	var err error
	if q.Page, err = intParam(r, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(r, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, types.NewError(types.ErrValidation, fmt.Sprintf("%s must be a positive integer", name), nil)
	}
	return v, nil
}
