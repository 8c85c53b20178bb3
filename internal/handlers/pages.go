package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"techbar/internal/catalog"
	"techbar/internal/render"
	"techbar/internal/service"
)

// Pages renders the HTML catalog browser.
type Pages struct {
	svc      *service.Catalog
	renderer *render.Renderer
}

// NewPages creates the catalog page handler group.
func NewPages(svc *service.Catalog, renderer *render.Renderer) *Pages {
	return &Pages{svc: svc, renderer: renderer}
}

// Kapp renders the category tree of a kapp.
func (p *Pages) Kapp(w http.ResponseWriter, r *http.Request) {
	kapp := chi.URLParam(r, "kapp")
	h, err := p.svc.Helper(r.Context(), kapp)
	if err != nil {
		p.fail(w, r, kapp, err)
		return
	}
	tree, err := h.Tree(catalog.Default)
	if err != nil {
		p.fail(w, r, kapp, err)
		return
	}
	p.renderer.Page(w, r, http.StatusOK, "catalog", &render.PageData{
		Title: "Service catalog",
		Kapp:  kapp,
		Data:  map[string]any{"Rows": catalog.Flatten(tree)},
	})
}

// Category renders one category with its breadcrumb trail, children and
// forms.
func (p *Pages) Category(w http.ResponseWriter, r *http.Request) {
	kapp := chi.URLParam(r, "kapp")
	slug := chi.URLParam(r, "slug")

	h, err := p.svc.Helper(r.Context(), kapp)
	if err != nil {
		p.fail(w, r, kapp, err)
		return
	}
	cat, ok := h.Category(slug)
	if !ok {
		p.fail(w, r, kapp, fmt.Errorf("category %q: %w", slug, service.ErrNotFound))
		return
	}

	trail, err := h.Trail(slug)
	if err != nil {
		p.fail(w, r, kapp, err)
		return
	}
	children, err := h.Children(slug, catalog.Default)
	if err != nil {
		p.fail(w, r, kapp, err)
		return
	}
	total, err := h.TotalFormCount(slug)
	if err != nil {
		p.fail(w, r, kapp, err)
		return
	}

	p.renderer.Page(w, r, http.StatusOK, "category", &render.PageData{
		Title: cat.Name,
		Kapp:  kapp,
		Data: map[string]any{
			"Category":   cat,
			"Trail":      trail,
			"Children":   children,
			"TotalForms": total,
			"Empty":      total == 0,
		},
	})
}

func (p *Pages) fail(w http.ResponseWriter, r *http.Request, kapp string, err error) {
	status := statusFor(err)
	title := "Catalog unavailable"
	if status == http.StatusNotFound {
		title = "Not found"
	}
	writeStatusLog(r, status, err)
	p.renderer.Page(w, r, status, "error", &render.PageData{
		Title: title,
		Kapp:  kapp,
		Data:  map[string]any{"Message": publicMessage(status, err)},
	})
}
