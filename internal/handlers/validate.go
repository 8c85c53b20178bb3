package handlers

import (
	"strings"
	"unicode/utf8"

	"techbar/internal/models"
)

// Validation limits for category mutations.
const (
	maxNameLen      = 255
	maxSlugLen      = 255
	maxIconLen      = 64
	maxRequestBytes = 64 << 10
)

// validateCategory checks a category payload and returns the first error
// found. Name is only required on create; updates keep the current name
// when it is empty.
func validateCategory(in *models.CategoryInput, create bool) string {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.ParentSlug != nil {
		parent := strings.TrimSpace(*in.ParentSlug)
		in.ParentSlug = &parent
	}
	in.Icon = strings.TrimSpace(in.Icon)

	if create && in.Name == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(in.Name) > maxNameLen {
		return "Name is too long (max 255 characters)."
	}
	if utf8.RuneCountInString(in.Slug) > maxSlugLen {
		return "Slug is too long (max 255 characters)."
	}
	if utf8.RuneCountInString(in.Icon) > maxIconLen {
		return "Icon is too long (max 64 characters)."
	}
	if in.SortOrder != nil && (*in.SortOrder < 0 || *in.SortOrder > 9999) {
		return "Sort order must be between 0 and 9999."
	}
	return ""
}
