// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Appointment fields as named on the Tech Bar appointment form.
const (
	FieldTechBarID   = "Scheduler Id"
	FieldEventDate   = "Event Date"
	FieldEventTime   = "Event Time"
	FieldDuration    = "Duration"
	FieldStatus      = "Status"
	FieldDisplayName = "Requested For Display Name"
	FieldSummary     = "Summary"
)

// Appointment statuses shown on the overhead display.
const (
	AppointmentScheduled  = "Scheduled"
	AppointmentCheckedIn  = "Checked In"
	AppointmentInProgress = "In Progress"
	AppointmentCompleted  = "Completed"
	AppointmentCancelled  = "Cancelled"
)

// Appointment is a Tech Bar appointment projected from a submission.
type Appointment struct {
	ID          string `json:"id"`
	TechBarID   string `json:"techbar_id"`
	DisplayName string `json:"display_name"`
	EventDate   string `json:"event_date"`
	EventTime   string `json:"event_time"`
	Duration    string `json:"duration"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
}

// AppointmentFromSubmission reads the appointment fields out of a submission.
func AppointmentFromSubmission(s Submission) Appointment {
	return Appointment{
		ID:          s.ID,
		TechBarID:   s.Value(FieldTechBarID),
		DisplayName: s.Value(FieldDisplayName),
		EventDate:   s.Value(FieldEventDate),
		EventTime:   s.Value(FieldEventTime),
		Duration:    s.Value(FieldDuration),
		Status:      s.Value(FieldStatus),
		Summary:     s.Value(FieldSummary),
	}
}

// IsActive reports whether the appointment belongs on the overhead display.
func (a Appointment) IsActive() bool {
	switch a.Status {
	case AppointmentScheduled, AppointmentCheckedIn, AppointmentInProgress:
		return true
	}
	return false
}
