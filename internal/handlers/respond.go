// Package handlers implements the HTTP handlers of the catalog service:
// the JSON catalog API, admin mutations, submission polling, and the HTML
// catalog and overhead pages.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"techbar/internal/catalog"
	"techbar/internal/service"
)

// errorResponse is the JSON body of every failed API request.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.S().Warnw("encode response failed", "error", err)
	}
}

// writeError maps err to a status code and writes it as JSON. Server-side
// failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	writeStatusLog(r, status, err)
	writeJSON(w, status, errorResponse{Error: publicMessage(status, err)})
}

// publicMessage is the error text shown to clients. Server-side failures
// only expose the status text, except a cyclic hierarchy, which names the
// category data that needs fixing.
func publicMessage(status int, err error) string {
	if status < http.StatusInternalServerError || errors.Is(err, catalog.ErrCyclicHierarchy) {
		return err.Error()
	}
	return http.StatusText(status)
}

func writeStatusLog(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	zap.S().Errorw("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
}

// statusFor maps service and catalog errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrCyclicHierarchy):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case service.IsSourceError(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// visibility reads the optional ?hidden= query parameter: "true" includes
// hidden categories, "false" excludes them, absent uses the default.
func visibility(r *http.Request) catalog.Visibility {
	switch r.URL.Query().Get("hidden") {
	case "true", "1":
		return catalog.IncludeHidden
	case "false", "0":
		return catalog.VisibleOnly
	}
	return catalog.Default
}
