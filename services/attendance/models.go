// Package attendance implements the Attendance service: events,
// per-user availability and admin check-in, and the attendance matrix
// dashboard.
package attendance

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTournament  EventType = "tournament"
	EventWeeklyMatch EventType = "weekly_match"
	EventMeeting     EventType = "meeting"
	EventOther       EventType = "other"
)

// Event mirrors the events table.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	EventType   EventType `json:"event_type"`
	EventDate   time.Time `json:"event_date"`
	Location    *string   `json:"location,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	IsLocked    bool      `json:"is_locked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AttendanceRecord mirrors the attendance_records table.
type AttendanceRecord struct {
	ID                uuid.UUID  `json:"id"`
	EventID           uuid.UUID  `json:"event_id"`
	UserID            uuid.UUID  `json:"user_id"`
	IsAvailable       bool       `json:"is_available"`
	IsCheckedIn       bool       `json:"is_checked_in"`
	CheckedInBy       *uuid.UUID `json:"checked_in_by,omitempty"`
	CheckedInAt       *time.Time `json:"checked_in_at,omitempty"`
	AvailabilitySetAt time.Time  `json:"availability_set_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateEventRequest validates the event-creation payload.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=255"`
	Description *string   `json:"description,omitempty"`
	EventType   EventType `json:"event_type" validate:"required,oneof=tournament weekly_match meeting other"`
	EventDate   time.Time `json:"event_date" validate:"required"`
	Location    *string   `json:"location,omitempty"`
}

// UpdateEventRequest validates the event-edit payload; all fields optional.
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty"`
	EventType   *EventType `json:"event_type,omitempty" validate:"omitempty,oneof=tournament weekly_match meeting other"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	Location    *string    `json:"location,omitempty"`
}

// SetAvailabilityRequest validates the user availability payload.
type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// CheckInRequest validates the admin check-in payload.
type CheckInRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	IsCheckedIn bool      `json:"is_checked_in"`
}

// RevokeRequest validates the admin revoke payload.
type RevokeRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// CellStatus is one dense-grid cell's status in the attendance matrix.
type CellStatus string

const (
	CellNoResponse CellStatus = "no_response"
	CellAvailable  CellStatus = "available"
	CellCheckedIn  CellStatus = "checked_in"
	CellUnavailable CellStatus = "unavailable"
)
