// internal/models/appointment.go
package models

import "time"

// AppointmentStatusPending is the initial status of an engine-created
// appointment; the booking UI owns every later transition.
const AppointmentStatusPending = "pending_confirmation"

// PendingAppointment is the minimal record the engine creates when a
// conversation reaches booking_ready.
type PendingAppointment struct {
	ID              string    `json:"id"`
	ProspectID      string    `json:"prospect_id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
}
