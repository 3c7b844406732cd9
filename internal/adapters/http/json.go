package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/eventloop"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.Error{Kind: domain.ErrBadRequest, Message: "Invalid request payload", Err: err}
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return &domain.Error{Kind: domain.ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, eventloop.ErrStopped) {
		domain.NewErrorResponse(domain.ErrInternal, "Service is shutting down", "").WriteJSON(w, http.StatusServiceUnavailable)
		return
	}
	resp, status := domain.ErrorResponseFrom(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	} else {
		h.logger.Info(r.Context(), "Request rejected", "method", r.Method, "path", r.URL.Path, "code", string(resp.Code), "error", err.Error())
	}
	resp.WriteJSON(w, status)
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		h.logger.Error(r.Context(), "Failed to encode response", "path", r.URL.Path, "error", err.Error())
	}
}
