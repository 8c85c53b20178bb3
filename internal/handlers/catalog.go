package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"techbar/internal/catalog"
	"techbar/internal/models"
	"techbar/internal/service"
)

// Catalog serves the JSON category API of every kapp.
type Catalog struct {
	svc *service.Catalog
}

// NewCatalog creates the catalog API handler group.
func NewCatalog(svc *service.Catalog) *Catalog {
	return &Catalog{svc: svc}
}

type categoryList struct {
	Kapp       string             `json:"kapp"`
	Categories []catalog.Category `json:"categories"`
}

type categoryDetail struct {
	Category       catalog.Category   `json:"category"`
	Parent         *catalog.Category  `json:"parent,omitempty"`
	Trail          []catalog.Category `json:"trail"`
	FullSortOrder  string             `json:"full_sort_order"`
	TotalFormCount int                `json:"total_form_count"`
	Empty          bool               `json:"empty"`
	HasChildren    bool               `json:"has_children"`
}

type treeResponse struct {
	Kapp string         `json:"kapp"`
	Tree []catalog.Node `json:"tree"`
}

type refreshResponse struct {
	Kapp        string    `json:"kapp"`
	Categories  int       `json:"categories"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// helper loads the kapp's helper, writing the error response on failure.
func (c *Catalog) helper(w http.ResponseWriter, r *http.Request) (*catalog.Helper, string, bool) {
	kapp := chi.URLParam(r, "kapp")
	h, err := c.svc.Helper(r.Context(), kapp)
	if err != nil {
		writeError(w, r, err)
		return nil, kapp, false
	}
	return h, kapp, true
}

// category resolves the {slug} parameter, answering 404 when unknown.
func (c *Catalog) category(w http.ResponseWriter, r *http.Request) (*catalog.Helper, catalog.Category, bool) {
	h, _, ok := c.helper(w, r)
	if !ok {
		return nil, catalog.Category{}, false
	}
	slug := chi.URLParam(r, "slug")
	cat, found := h.Category(slug)
	if !found {
		writeError(w, r, fmt.Errorf("category %q: %w", slug, service.ErrNotFound))
		return nil, catalog.Category{}, false
	}
	return h, cat, true
}

// List returns every category of the kapp in full sort order.
func (c *Catalog) List(w http.ResponseWriter, r *http.Request) {
	h, kapp, ok := c.helper(w, r)
	if !ok {
		return
	}
	cats, err := h.Categories(visibility(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryList{Kapp: kapp, Categories: cats})
}

// Roots returns the top-level categories.
func (c *Catalog) Roots(w http.ResponseWriter, r *http.Request) {
	h, kapp, ok := c.helper(w, r)
	if !ok {
		return
	}
	cats, err := h.RootCategories(visibility(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryList{Kapp: kapp, Categories: cats})
}

// Tree returns the nested hierarchy.
func (c *Catalog) Tree(w http.ResponseWriter, r *http.Request) {
	h, kapp, ok := c.helper(w, r)
	if !ok {
		return
	}
	tree, err := h.Tree(visibility(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, treeResponse{Kapp: kapp, Tree: tree})
}

// Show returns one category with its derived values.
func (c *Catalog) Show(w http.ResponseWriter, r *http.Request) {
	h, cat, ok := c.category(w, r)
	if !ok {
		return
	}

	detail := categoryDetail{
		Category:    cat,
		HasChildren: h.HasChildren(cat.Slug, visibility(r)),
	}
	if p, ok := h.Parent(cat.Slug); ok {
		detail.Parent = &p
	}

	var err error
	if detail.Trail, err = h.Trail(cat.Slug); err != nil {
		writeError(w, r, err)
		return
	}
	if detail.FullSortOrder, err = h.FullSortOrder(cat.Slug); err != nil {
		writeError(w, r, err)
		return
	}
	if detail.TotalFormCount, err = h.TotalFormCount(cat.Slug); err != nil {
		writeError(w, r, err)
		return
	}
	detail.Empty = detail.TotalFormCount == 0

	writeJSON(w, http.StatusOK, detail)
}

// Children returns the direct children of a category.
func (c *Catalog) Children(w http.ResponseWriter, r *http.Request) {
	c.related(w, r, (*catalog.Helper).Children)
}

// Descendants returns every category below a category, depth first.
func (c *Catalog) Descendants(w http.ResponseWriter, r *http.Request) {
	c.related(w, r, (*catalog.Helper).Descendants)
}

func (c *Catalog) related(w http.ResponseWriter, r *http.Request, fn func(*catalog.Helper, string, catalog.Visibility) ([]catalog.Category, error)) {
	h, cat, ok := c.category(w, r)
	if !ok {
		return
	}
	cats, err := fn(h, cat.Slug, visibility(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryList{Kapp: chi.URLParam(r, "kapp"), Categories: cats})
}

// Trail returns the path from the root down to a category.
func (c *Catalog) Trail(w http.ResponseWriter, r *http.Request) {
	h, cat, ok := c.category(w, r)
	if !ok {
		return
	}
	trail, err := h.Trail(cat.Slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryList{Kapp: chi.URLParam(r, "kapp"), Categories: trail})
}

// Create adds a category and answers with the rebuilt record.
func (c *Catalog) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategory(w, r, true)
	if !ok {
		return
	}
	cat, err := c.svc.CreateCategory(r.Context(), chi.URLParam(r, "kapp"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// Update replaces a category.
func (c *Catalog) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategory(w, r, false)
	if !ok {
		return
	}
	cat, err := c.svc.UpdateCategory(r.Context(), chi.URLParam(r, "kapp"), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// Delete removes a category.
func (c *Catalog) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.DeleteCategory(r.Context(), chi.URLParam(r, "kapp"), chi.URLParam(r, "slug")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh rebuilds the kapp's hierarchy from the source.
func (c *Catalog) Refresh(w http.ResponseWriter, r *http.Request) {
	kapp := chi.URLParam(r, "kapp")
	h, err := c.svc.Refresh(r.Context(), kapp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Kapp: kapp, Categories: h.Len(), RefreshedAt: time.Now().UTC()})
}

type refreshAllResponse struct {
	Kapps       []string  `json:"kapps"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// RefreshAll drops the shared cache and rebuilds every loaded kapp.
func (c *Catalog) RefreshAll(w http.ResponseWriter, r *http.Request) {
	kapps, err := c.svc.RefreshAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshAllResponse{Kapps: kapps, RefreshedAt: time.Now().UTC()})
}

type exportResponse struct {
	Kapp string `json:"kapp"`
	URL  string `json:"url"`
}

// Export publishes the kapp's snapshot to object storage.
func (c *Catalog) Export(w http.ResponseWriter, r *http.Request) {
	kapp := chi.URLParam(r, "kapp")
	url, err := c.svc.Export(r.Context(), kapp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Kapp: kapp, URL: url})
}

type formList struct {
	Kapp  string        `json:"kapp"`
	Forms []models.Form `json:"forms"`
}

// Forms lists the kapp's forms as the source reports them.
func (c *Catalog) Forms(w http.ResponseWriter, r *http.Request) {
	kapp := chi.URLParam(r, "kapp")
	forms, err := c.svc.Forms(r.Context(), kapp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if forms == nil {
		forms = []models.Form{}
	}
	writeJSON(w, http.StatusOK, formList{Kapp: kapp, Forms: forms})
}

func decodeCategory(w http.ResponseWriter, r *http.Request, create bool) (models.CategoryInput, bool) {
	var in models.CategoryInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return in, false
	}
	if msg := validateCategory(&in, create); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return in, false
	}
	return in, true
}
