// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests drive the full HTTP surface against in-memory
// category and appointment sources.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techbar/internal/handlers"
	"techbar/internal/metrics"
	"techbar/internal/middleware"
	"techbar/internal/models"
	"techbar/internal/overhead"
	"techbar/internal/render"
	"techbar/internal/service"
)

type stubSource struct {
	mu   sync.Mutex
	raw  []models.RawCategory
	fail error
}

func (s *stubSource) Categories(context.Context, string) ([]models.RawCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return append([]models.RawCategory(nil), s.raw...), nil
}

func (s *stubSource) CreateCategory(_ context.Context, _ string, raw models.RawCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, raw)
	return nil
}

func (s *stubSource) UpdateCategory(_ context.Context, _, slug string, raw models.RawCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.raw {
		if s.raw[i].Slug == slug {
			s.raw[i] = raw
			return nil
		}
	}
	return errors.New("missing")
}

func (s *stubSource) DeleteCategory(_ context.Context, _, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.raw {
		if s.raw[i].Slug == slug {
			s.raw = append(s.raw[:i], s.raw[i+1:]...)
			return nil
		}
	}
	return errors.New("missing")
}

func (s *stubSource) Forms(context.Context, string) ([]models.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var forms []models.Form
	for _, raw := range s.raw {
		for _, c := range raw.Categorizations {
			forms = append(forms, c.Form)
		}
	}
	return forms, nil
}

type stubAppointments struct{}

func (stubAppointments) SearchSubmissions(context.Context, string, string, string) ([]models.Submission, error) {
	return []models.Submission{{ID: "a1", Values: map[string]any{
		models.FieldTechBarID:   "tb-1",
		models.FieldEventDate:   "2026-10-18",
		models.FieldEventTime:   "09:00",
		models.FieldStatus:      models.AppointmentScheduled,
		models.FieldDisplayName: "Ada",
	}}}, nil
}

func category(slug, name, parent, sortOrder string, hidden bool, forms ...string) models.RawCategory {
	attrs := map[string][]string{"Sort Order": {sortOrder}}
	if parent != "" {
		attrs["Parent"] = []string{parent}
	}
	if hidden {
		attrs["Hidden"] = []string{"true"}
	}
	raw := models.RawCategory{Name: name, Slug: slug, Attributes: attrs}
	for _, f := range forms {
		raw.Categorizations = append(raw.Categorizations, models.Categorization{
			Form: models.Form{Slug: f, Name: f, Type: "Service", Status: "Active"},
		})
	}
	return raw
}

type testServer struct {
	*httptest.Server
	source *stubSource
}

func newTestServer(t *testing.T, mutationLimit int) *testServer {
	t.Helper()

	src := &stubSource{raw: []models.RawCategory{
		category("hardware", "Hardware", "", "1", false),
		category("laptops", "Laptops", "hardware", "1", false, "laptop-repair", "laptop-request"),
		category("mobile", "Mobile", "hardware", "2", false, "phone-request"),
		category("internal", "Internal", "", "9", true, "secret-form"),
	}}
	m := metrics.New()
	svc := service.New(src, service.WithMetrics(m))

	renderer, err := render.New()
	require.NoError(t, err)

	board := overhead.NewBoard([]string{"tb-1", "tb-2"}, stubAppointments{}, overhead.Config{
		Now: func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) },
	}, m)
	d, _ := board.Display("tb-1")
	require.NoError(t, d.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := middleware.NewRateLimiter(ctx, mutationLimit, time.Minute)

	r := New(Handlers{
		Catalog:     handlers.NewCatalog(svc),
		Submissions: handlers.NewSubmissions(svc),
		Overhead:    handlers.NewOverhead(board, renderer, 30),
		Pages:       handlers.NewPages(svc, renderer),
	}, m, limiter)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, source: src}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

type listBody struct {
	Kapp       string `json:"kapp"`
	Categories []struct {
		Slug string `json:"slug"`
	} `json:"categories"`
}

func slugsOf(t *testing.T, body []byte) []string {
	t.Helper()
	var lb listBody
	require.NoError(t, json.Unmarshal(body, &lb))
	out := []string{}
	for _, c := range lb.Categories {
		out = append(out, c.Slug)
	}
	return out
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	healthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCategoryReads(t *testing.T) {
	srv := newTestServer(t, 10)

	tests := []struct {
		name  string
		path  string
		slugs []string
	}{
		{"all visible", "/api/kapps/services/categories", []string{"hardware", "laptops", "mobile"}},
		{"all with hidden", "/api/kapps/services/categories?hidden=true", []string{"hardware", "laptops", "mobile", "internal"}},
		{"roots", "/api/kapps/services/categories/roots", []string{"hardware"}},
		{"children", "/api/kapps/services/categories/hardware/children", []string{"laptops", "mobile"}},
		{"descendants", "/api/kapps/services/categories/hardware/descendants", []string{"laptops", "mobile"}},
		{"trail", "/api/kapps/services/categories/mobile/trail", []string{"hardware", "mobile"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.do(t, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
			assert.Equal(t, tt.slugs, slugsOf(t, body))
		})
	}
}

func TestCategoryShow(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, body := srv.do(t, http.MethodGet, "/api/kapps/services/categories/hardware", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail struct {
		FullSortOrder  string `json:"full_sort_order"`
		TotalFormCount int    `json:"total_form_count"`
		Empty          bool   `json:"empty"`
		HasChildren    bool   `json:"has_children"`
		Parent         *struct{ Slug string }
	}
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "0001", detail.FullSortOrder)
	assert.Equal(t, 3, detail.TotalFormCount)
	assert.False(t, detail.Empty)
	assert.True(t, detail.HasChildren)
	assert.Nil(t, detail.Parent)

	resp, body = srv.do(t, http.MethodGet, "/api/kapps/services/categories/laptops", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "0001.0001", detail.FullSortOrder)
	require.NotNil(t, detail.Parent)
	assert.Equal(t, "hardware", detail.Parent.Slug)

	resp, _ = srv.do(t, http.MethodGet, "/api/kapps/services/categories/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCyclicHierarchyIs500(t *testing.T) {
	srv := newTestServer(t, 10)
	srv.source.raw = []models.RawCategory{
		category("a", "A", "b", "1", false),
		category("b", "B", "a", "1", false),
	}

	resp, body := srv.do(t, http.MethodGet, "/api/kapps/loop/categories/a/trail", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "cyclic")
}

func TestSourceFailureIs502(t *testing.T) {
	srv := newTestServer(t, 10)
	srv.source.fail = errors.New("dial tcp 10.0.0.7:5432: connection refused")

	resp, body := srv.do(t, http.MethodGet, "/api/kapps/other/categories", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Bad Gateway"}`, string(body))

	resp, body = srv.do(t, http.MethodGet, "/kapps/other", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotContains(t, string(body), "10.0.0.7")
}

func TestMutations(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, body := srv.do(t, http.MethodPost, "/api/kapps/services/categories",
		`{"name":"Docking Stations","parent_slug":"hardware","sort_order":3}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"slug":"docking-stations"`)

	resp, body = srv.do(t, http.MethodGet, "/api/kapps/services/categories/hardware/children", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"laptops", "mobile", "docking-stations"}, slugsOf(t, body))

	resp, body = srv.do(t, http.MethodPut, "/api/kapps/services/categories/docking-stations",
		`{"name":"Docks","parent_slug":"hardware","sort_order":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"name":"Docks"`)

	resp, _ = srv.do(t, http.MethodPost, "/api/kapps/services/categories", `{"name":"Laptops","slug":"laptops"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/kapps/services/categories", `{"slug":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/kapps/services/categories", `{"name":"X","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")

	resp, _ = srv.do(t, http.MethodDelete, "/api/kapps/services/categories/docking-stations", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/kapps/services/categories/docking-stations", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = srv.do(t, http.MethodPost, "/api/kapps/services/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"categories":4`)
}

func TestFormsRoute(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, body := srv.do(t, http.MethodGet, "/api/kapps/services/forms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list struct {
		Kapp  string `json:"kapp"`
		Forms []struct {
			Slug string `json:"slug"`
		} `json:"forms"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "services", list.Kapp)
	require.Len(t, list.Forms, 4)
	assert.Equal(t, "laptop-repair", list.Forms[0].Slug)

	srv.source.raw = nil
	resp, body = srv.do(t, http.MethodGet, "/api/kapps/services/forms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"forms":[]`)
}

func TestRefreshAllRoute(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, body := srv.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"kapps":[]`)

	srv.do(t, http.MethodGet, "/api/kapps/services/categories", "")
	srv.do(t, http.MethodGet, "/api/kapps/tech-bar/categories", "")

	resp, body = srv.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"kapps":["services","tech-bar"]`)

	srv.source.fail = errors.New("dial tcp 10.0.0.7:5432: connection refused")
	resp, body = srv.do(t, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotContains(t, string(body), "10.0.0.7")
}

func TestExportWithoutStorage(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, _ := srv.do(t, http.MethodPost, "/api/kapps/services/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/kapps/services/export", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, 1)

	resp, _ := srv.do(t, http.MethodDelete, "/api/kapps/services/categories/mobile", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/kapps/services/categories/laptops", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/kapps/services/categories", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
}

func TestAwaitWithoutSubmissionSource(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, _ := srv.do(t, http.MethodGet, "/api/submissions/abc/await", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/submissions/abc/await?timeout=soon", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOverhead(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, body := srv.do(t, http.MethodGet, "/api/techbars/tb-1/overhead", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap overhead.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Len(t, snap.Appointments, 1)
	assert.Equal(t, "Ada", snap.Appointments[0].DisplayName)

	resp, body = srv.do(t, http.MethodGet, "/techbars/tb-1/overhead", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `<meta http-equiv="refresh" content="30">`)
	assert.Contains(t, string(body), "Ada")

	resp, body = srv.do(t, http.MethodGet, "/api/techbars/tb-2/overhead", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"appointments":[]`)

	resp, _ = srv.do(t, http.MethodGet, "/api/techbars/tb-9/overhead", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = srv.do(t, http.MethodGet, "/techbars/tb-9/overhead", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTMLPages(t *testing.T) {
	srv := newTestServer(t, 10)

	resp, body := srv.do(t, http.MethodGet, "/kapps/services", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `href="/kapps/services/categories/laptops"`)
	assert.NotContains(t, string(body), "Internal", "hidden categories stay off the page")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = srv.do(t, http.MethodGet, "/kapps/services/categories/laptops", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `<a href="/kapps/services/categories/hardware">Hardware</a>`)
	assert.Contains(t, string(body), "laptop-repair")

	resp, _ = srv.do(t, http.MethodGet, "/kapps/services/categories/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, 10)
	srv.do(t, http.MethodGet, "/api/kapps/services/categories", "")

	resp, body := srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `techbar_catalog_categories{kapp="services"} 4`)
	assert.Contains(t, string(body), `route="/api/kapps/{kapp}/categories`)
}
