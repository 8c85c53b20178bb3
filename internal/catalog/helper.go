// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"techbar/internal/models"
)

// ErrCyclicHierarchy is returned by traversals that reach a category twice
// while walking parent links.
var ErrCyclicHierarchy = errors.New("cyclic category hierarchy")

// Visibility selects whether hidden categories appear in list results.
type Visibility int

const (
	// Default uses the flag the Helper was built with.
	Default Visibility = iota
	// VisibleOnly drops hidden categories.
	VisibleOnly
	// IncludeHidden keeps hidden categories.
	IncludeHidden
)

// Helper owns a kapp's categories indexed by slug. It is built once from a
// flat list and never mutated; a changed category list means a new Helper.
// All methods are safe for concurrent use.
type Helper struct {
	categories    map[string]Category
	slugs         []string // input order, first occurrence of each slug
	includeHidden bool
}

type helperConfig struct {
	includeHidden bool
	options       Options
}

// Option configures New.
type Option func(*helperConfig)

// WithIncludeHidden sets the visibility used by queries passed Default.
func WithIncludeHidden(include bool) Option {
	return func(c *helperConfig) { c.includeHidden = include }
}

// WithOptions overrides the attribute names and form allow-lists.
func WithOptions(o Options) Option {
	return func(c *helperConfig) { c.options = o }
}

// New builds a Helper from raw platform categories. Malformed attributes
// fall back to defaults; a repeated slug keeps the last record.
func New(raw []models.RawCategory, opts ...Option) *Helper {
	cfg := helperConfig{options: DefaultOptions()}
	for _, o := range opts {
		o(&cfg)
	}

	h := &Helper{
		categories:    make(map[string]Category, len(raw)),
		slugs:         make([]string, 0, len(raw)),
		includeHidden: cfg.includeHidden,
	}
	for _, r := range raw {
		c := NewCategory(r, cfg.options)
		if _, dup := h.categories[c.Slug]; !dup {
			h.slugs = append(h.slugs, c.Slug)
		}
		h.categories[c.Slug] = c
	}
	return h
}

// Len returns the number of categories, hidden ones included.
func (h *Helper) Len() int {
	return len(h.slugs)
}

// IncludesHidden returns the construction-time visibility flag.
func (h *Helper) IncludesHidden() bool {
	return h.includeHidden
}

// HasCategory reports whether slug names a category.
func (h *Helper) HasCategory(slug string) bool {
	_, ok := h.categories[slug]
	return ok
}

// Category looks up a category by slug regardless of visibility.
func (h *Helper) Category(slug string) (Category, bool) {
	c, ok := h.categories[slug]
	return c, ok
}

// Categories returns every category passing v, in full sort order.
func (h *Helper) Categories(v Visibility) ([]Category, error) {
	return h.collect(v, func(Category) bool { return true })
}

// RootCategories returns categories without a resolvable parent. A category
// whose parent slug names a missing category is a root.
func (h *Helper) RootCategories(v Visibility) ([]Category, error) {
	return h.collect(v, func(c Category) bool { return !h.hasParent(c) })
}

// HasParent reports whether the category's parent slug resolves.
func (h *Helper) HasParent(slug string) bool {
	c, ok := h.categories[slug]
	return ok && h.hasParent(c)
}

// Parent returns the resolved parent of slug.
func (h *Helper) Parent(slug string) (Category, bool) {
	c, ok := h.categories[slug]
	if !ok {
		return Category{}, false
	}
	return h.parent(c)
}

// HasChildren reports whether any category passing v names slug as parent.
func (h *Helper) HasChildren(slug string, v Visibility) bool {
	if !h.HasCategory(slug) {
		return false
	}
	for _, s := range h.slugs {
		c := h.categories[s]
		if c.ParentSlug == slug && h.visible(c, v) {
			return true
		}
	}
	return false
}

// Children returns the direct children of slug passing v, sorted.
func (h *Helper) Children(slug string, v Visibility) ([]Category, error) {
	if !h.HasCategory(slug) {
		return nil, nil
	}
	return h.collect(v, func(c Category) bool { return c.ParentSlug == slug })
}

// Descendants returns every category below slug, depth first. The
// visibility filter is applied at each level, so the subtree under a
// filtered category is not visited.
func (h *Helper) Descendants(slug string, v Visibility) ([]Category, error) {
	if !h.HasCategory(slug) {
		return nil, nil
	}
	return h.descendants(slug, v, make(map[string]bool))
}

func (h *Helper) descendants(slug string, v Visibility, path map[string]bool) ([]Category, error) {
	if path[slug] {
		return nil, fmt.Errorf("%w: %s", ErrCyclicHierarchy, slug)
	}
	path[slug] = true
	defer delete(path, slug)

	children, err := h.Children(slug, v)
	if err != nil {
		return nil, err
	}

	var out []Category
	for _, child := range children {
		out = append(out, child)
		sub, err := h.descendants(child.Slug, v, path)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// TotalFormCount returns the category's own form count plus that of every
// descendant visible under the Helper's default visibility.
func (h *Helper) TotalFormCount(slug string) (int, error) {
	c, ok := h.categories[slug]
	if !ok {
		return 0, nil
	}
	desc, err := h.Descendants(slug, Default)
	if err != nil {
		return 0, err
	}
	total := c.FormCount
	for _, d := range desc {
		total += d.FormCount
	}
	return total, nil
}

// IsEmpty reports whether neither the category nor any descendant has forms.
func (h *Helper) IsEmpty(slug string) (bool, error) {
	total, err := h.TotalFormCount(slug)
	if err != nil {
		return false, err
	}
	return total == 0, nil
}

// Trail returns the ancestor chain from the root down to and including
// slug. Unknown slugs return nil.
func (h *Helper) Trail(slug string) ([]Category, error) {
	c, ok := h.categories[slug]
	if !ok {
		return nil, nil
	}

	seen := make(map[string]bool)
	var chain []Category
	for {
		if seen[c.Slug] {
			return nil, fmt.Errorf("%w: %s", ErrCyclicHierarchy, c.Slug)
		}
		seen[c.Slug] = true
		chain = append(chain, c)

		parent, ok := h.parent(c)
		if !ok {
			break
		}
		c = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// FullSortOrder returns the trail's sort orders, each padded to four
// digits, joined with dots. Comparing these strings orders the whole tree
// depth first with siblings by sort order.
func (h *Helper) FullSortOrder(slug string) (string, error) {
	trail, err := h.Trail(slug)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(trail))
	for i, c := range trail {
		parts[i] = fmt.Sprintf("%04d", c.SortOrder)
	}
	return strings.Join(parts, "."), nil
}

func (h *Helper) hasParent(c Category) bool {
	_, ok := h.parent(c)
	return ok
}

func (h *Helper) parent(c Category) (Category, bool) {
	if c.ParentSlug == "" {
		return Category{}, false
	}
	p, ok := h.categories[c.ParentSlug]
	return p, ok
}

func (h *Helper) visible(c Category, v Visibility) bool {
	switch v {
	case IncludeHidden:
		return true
	case VisibleOnly:
		return !c.Hidden
	default:
		return h.includeHidden || !c.Hidden
	}
}

// collect filters the categories by v and keep, then sorts them by full
// sort order. Input order breaks ties.
func (h *Helper) collect(v Visibility, keep func(Category) bool) ([]Category, error) {
	var out []Category
	keys := make(map[string]string)
	for _, s := range h.slugs {
		c := h.categories[s]
		if !h.visible(c, v) || !keep(c) {
			continue
		}
		key, err := h.FullSortOrder(c.Slug)
		if err != nil {
			return nil, err
		}
		keys[c.Slug] = key
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return keys[out[i].Slug] < keys[out[j].Slug]
	})
	return out, nil
}
