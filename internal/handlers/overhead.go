package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"techbar/internal/overhead"
	"techbar/internal/render"
	"techbar/internal/service"
)

// Overhead serves the Tech Bar overhead display as JSON and HTML.
type Overhead struct {
	board    *overhead.Board
	renderer *render.Renderer
	refresh  int
}

// NewOverhead creates the overhead handler group. refreshSeconds sets the
// page's meta refresh.
func NewOverhead(board *overhead.Board, renderer *render.Renderer, refreshSeconds int) *Overhead {
	return &Overhead{board: board, renderer: renderer, refresh: refreshSeconds}
}

func (o *Overhead) display(w http.ResponseWriter, r *http.Request) (*overhead.Display, bool) {
	id := chi.URLParam(r, "id")
	d, ok := o.board.Display(id)
	if !ok {
		writeError(w, r, fmt.Errorf("tech bar %q: %w", id, service.ErrNotFound))
		return nil, false
	}
	return d, true
}

// JSON returns the latest snapshot.
func (o *Overhead) JSON(w http.ResponseWriter, r *http.Request) {
	d, ok := o.display(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

// Page renders the overhead screen.
func (o *Overhead) Page(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := o.board.Display(id)
	if !ok {
		o.renderer.Page(w, r, http.StatusNotFound, "error", &render.PageData{
			Title: "Unknown Tech Bar",
			Data:  map[string]any{"Message": fmt.Sprintf("No overhead display is configured for %q.", id)},
		})
		return
	}
	o.renderer.Page(w, r, http.StatusOK, "overhead", &render.PageData{
		Title:   "Tech Bar " + id,
		Refresh: o.refresh,
		Data:    map[string]any{"Snapshot": d.Snapshot()},
	})
}
