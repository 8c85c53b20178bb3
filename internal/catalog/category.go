// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog models a kapp's category hierarchy. Categories are plain
// values indexed by slug inside a Helper; every relationship (parent,
// children, descendants, trail) is resolved by slug lookup at query time.
package catalog

import (
	"sort"
	"strconv"
	"strings"

	"techbar/internal/models"
)

const (
	// DefaultSortOrder is used when the sort order attribute is missing or
	// not a base-10 integer.
	DefaultSortOrder = 1000

	// DefaultIcon is used when the icon attribute is missing.
	DefaultIcon = "fa-folder-o"
)

// Options names the category attributes the factory reads and the form
// types and statuses counted as catalog forms.
type Options struct {
	SortOrderAttribute string
	IconAttribute      string
	HiddenAttribute    string
	ParentAttribute    string
	DefaultIcon        string

	// FormTypes and FormStatuses are allow-lists. An empty list allows
	// every value.
	FormTypes    []string
	FormStatuses []string
}

// DefaultOptions returns the attribute names used by the Tech Bar kapp.
func DefaultOptions() Options {
	return Options{
		SortOrderAttribute: "Sort Order",
		IconAttribute:      "Icon",
		HiddenAttribute:    "Hidden",
		ParentAttribute:    "Parent",
		DefaultIcon:        DefaultIcon,
		FormTypes:          []string{"Service"},
		FormStatuses:       []string{"Active", "New"},
	}
}

// withDefaults fills any empty attribute name from DefaultOptions. The
// allow-lists are left alone since empty means "allow all".
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SortOrderAttribute == "" {
		o.SortOrderAttribute = d.SortOrderAttribute
	}
	if o.IconAttribute == "" {
		o.IconAttribute = d.IconAttribute
	}
	if o.HiddenAttribute == "" {
		o.HiddenAttribute = d.HiddenAttribute
	}
	if o.ParentAttribute == "" {
		o.ParentAttribute = d.ParentAttribute
	}
	if o.DefaultIcon == "" {
		o.DefaultIcon = d.DefaultIcon
	}
	return o
}

// Category is an immutable category record. Derived values such as the
// trail or total form count are answered by the owning Helper.
type Category struct {
	Name       string        `json:"name"`
	Slug       string        `json:"slug"`
	SortOrder  int           `json:"sort_order"`
	Icon       string        `json:"icon"`
	Hidden     bool          `json:"hidden"`
	ParentSlug string        `json:"parent_slug,omitempty"`
	Forms      []models.Form `json:"forms"`
	AllForms   []models.Form `json:"all_forms"`
	FormCount  int           `json:"form_count"`
}

// NewCategory builds a Category from a raw platform record. It never fails:
// every attribute falls back to a default.
func NewCategory(raw models.RawCategory, opts Options) Category {
	opts = opts.withDefaults()

	c := Category{
		Name:       raw.Name,
		Slug:       raw.Slug,
		SortOrder:  parseSortOrder(raw.Attribute(opts.SortOrderAttribute)),
		Icon:       raw.Attribute(opts.IconAttribute),
		Hidden:     strings.EqualFold(raw.Attribute(opts.HiddenAttribute), "true"),
		ParentSlug: raw.Attribute(opts.ParentAttribute),
	}
	if c.Icon == "" {
		c.Icon = opts.DefaultIcon
	}
	if c.ParentSlug == "" {
		c.ParentSlug = raw.ParentSlug
	}

	c.AllForms = make([]models.Form, 0, len(raw.Categorizations))
	for _, cz := range raw.Categorizations {
		c.AllForms = append(c.AllForms, cz.Form)
	}
	sort.SliceStable(c.AllForms, func(i, j int) bool {
		return c.AllForms[i].Slug < c.AllForms[j].Slug
	})

	c.Forms = make([]models.Form, 0, len(c.AllForms))
	for _, f := range c.AllForms {
		if allowed(opts.FormTypes, f.Type) && allowed(opts.FormStatuses, f.Status) {
			c.Forms = append(c.Forms, f)
		}
	}
	c.FormCount = len(c.Forms)

	return c
}

func parseSortOrder(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return DefaultSortOrder
	}
	return n
}

func allowed(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// EncodeInput turns an admin mutation into the raw attribute form stored by
// the category source, using the same attribute names NewCategory reads.
func EncodeInput(in models.CategoryInput, opts Options) models.RawCategory {
	opts = opts.withDefaults()

	attrs := map[string][]string{}
	if in.SortOrder != nil {
		attrs[opts.SortOrderAttribute] = []string{strconv.Itoa(*in.SortOrder)}
	}
	if in.Icon != "" {
		attrs[opts.IconAttribute] = []string{in.Icon}
	}
	if in.IsHidden() {
		attrs[opts.HiddenAttribute] = []string{"true"}
	}
	if parent := in.Parent(); parent != "" {
		attrs[opts.ParentAttribute] = []string{parent}
	}

	return models.RawCategory{
		Name:       in.Name,
		Slug:       in.Slug,
		ParentSlug: in.Parent(),
		Attributes: attrs,
	}
}
