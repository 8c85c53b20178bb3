package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"techbar/internal/models"
	"techbar/internal/service"
)

// Default and upper bound for how long an await request may block.
const (
	defaultAwaitTimeout = 2 * time.Minute
	maxAwaitTimeout     = 10 * time.Minute
)

// Submissions serves the submission await endpoint used by confirmation
// pages waiting for a request to be processed.
type Submissions struct {
	svc *service.Catalog
}

// NewSubmissions creates the submissions handler group.
func NewSubmissions(svc *service.Catalog) *Submissions {
	return &Submissions{svc: svc}
}

// Await blocks until the submission reaches ?state= (default Submitted),
// the ?timeout= elapses, or the client goes away.
func (s *Submissions) Await(w http.ResponseWriter, r *http.Request) {
	timeout := defaultAwaitTimeout
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "timeout must be a positive duration"})
			return
		}
		timeout = min(d, maxAwaitTimeout)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	state := models.CoreState(r.URL.Query().Get("state"))
	sub, err := s.svc.AwaitSubmission(ctx, chi.URLParam(r, "id"), state)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
