// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// RawCategory is a category record as returned by the platform API, before
// attribute parsing. Attribute values are lists because the platform allows
// multi-valued attributes.
type RawCategory struct {
	Name            string              `json:"name"`
	Slug            string              `json:"slug"`
	ParentSlug      string              `json:"parentSlug,omitempty"`
	Attributes      map[string][]string `json:"attributesMap"`
	Categorizations []Categorization    `json:"categorizations"`
}

// Categorization joins a category to a form.
type Categorization struct {
	Form Form `json:"form"`
}

// Attribute returns the first value of the named attribute, or "" when the
// attribute is absent or empty.
func (c *RawCategory) Attribute(name string) string {
	if values := c.Attributes[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// CategoryInput is the payload for creating or updating a category.
// ParentSlug, SortOrder and Hidden are pointers so an update can tell an
// absent field from an explicit value: "parent_slug": "" makes the
// category a root and "hidden": false shows it again.
type CategoryInput struct {
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	ParentSlug *string `json:"parent_slug,omitempty"`
	SortOrder  *int    `json:"sort_order,omitempty"`
	Icon       string  `json:"icon"`
	Hidden     *bool   `json:"hidden,omitempty"`
}

// Parent returns the requested parent slug, empty when unset.
func (in CategoryInput) Parent() string {
	if in.ParentSlug == nil {
		return ""
	}
	return *in.ParentSlug
}

// IsHidden reports whether the input asks for a hidden category.
func (in CategoryInput) IsHidden() bool {
	return in.Hidden != nil && *in.Hidden
}
