// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// CoreState is the lifecycle state of a platform submission.
type CoreState string

const (
	CoreStateDraft     CoreState = "Draft"
	CoreStateSubmitted CoreState = "Submitted"
	CoreStateClosed    CoreState = "Closed"
)

// Submission is a filled-in instance of a platform form.
type Submission struct {
	ID          string         `json:"id"`
	Handle      string         `json:"handle"`
	FormSlug    string         `json:"formSlug"`
	CoreState   CoreState      `json:"coreState"`
	Values      map[string]any `json:"values,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
	ClosedAt    *time.Time     `json:"closedAt,omitempty"`
}

// Reached reports whether the submission has progressed at least as far as
// the given state. Draft < Submitted < Closed.
func (s *Submission) Reached(state CoreState) bool {
	return stateRank(s.CoreState) >= stateRank(state) && stateRank(state) > 0
}

func stateRank(s CoreState) int {
	switch s {
	case CoreStateDraft:
		return 1
	case CoreStateSubmitted:
		return 2
	case CoreStateClosed:
		return 3
	}
	return 0
}

// Value returns a submission field as a string. Checkbox and multi-value
// fields come back as lists; the first entry is used.
func (s *Submission) Value(field string) string {
	switch v := s.Values[field].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(string); ok {
				return first
			}
		}
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
