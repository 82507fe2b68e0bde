package appointments

import (
	"hospital-management/internal/apierrors"
	"hospital-management/internal/civil"
	"strings"
	"time"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "No Show"
)

// Valid reports whether the status is one of the known appointment statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Doctor struct {
	ID         string `json:"id" dbfield:"id"`
	Name       string `json:"name" dbfield:"name"`
	Department string `json:"department" dbfield:"department"`
}

type Appointment struct {
	ID         string      `json:"id" dbfield:"id"`
	PatientID  string      `json:"patientId" dbfield:"patient_id"`
	DoctorID   string      `json:"doctorId" dbfield:"doctor_id"`
	Department string      `json:"department" dbfield:"department"`
	Date       civil.Date  `json:"date" dbfield:"date"`
	Time       civil.Clock `json:"time" dbfield:"time"`
	Duration   int         `json:"duration" dbfield:"duration"`
	Status     Status      `json:"status" dbfield:"status"`
	Reason     string      `json:"reason" dbfield:"reason"`
	Notes      *string     `json:"notes,omitempty" dbfield:"notes"`
	CreatedAt  time.Time   `json:"createdAt" dbfield:"created_at"`
	UpdatedAt  time.Time   `json:"updatedAt" dbfield:"updated_at"`
}

// Slot returns the interval occupied by the appointment.
func (a Appointment) Slot() Slot {
	return Slot{Start: a.Time, Duration: a.Duration}
}

// AppointmentRequest holds the fields clients send to book or reschedule an appointment.
type AppointmentRequest struct {
	PatientID string       `json:"patientId"`
	DoctorID  string       `json:"doctorId"`
	Date      civil.Date   `json:"date"`
	Time      *civil.Clock `json:"time"`
	Duration  int          `json:"duration"`
	Reason    string       `json:"reason"`
	Notes     *string      `json:"notes"`
}

// Validate checks if the given request is valid. A zero duration is accepted and means
// DefaultDuration.
func (a AppointmentRequest) Validate() error {
	if strings.TrimSpace(a.PatientID) == "" {
		return apierrors.NewValidationError("patientId", "required")
	}
	if strings.TrimSpace(a.DoctorID) == "" {
		return apierrors.NewValidationError("doctorId", "required")
	}
	if a.Date.IsZero() {
		return apierrors.NewValidationError("date", "required")
	}
	if a.Time == nil {
		return apierrors.NewValidationError("time", "required")
	}
	if a.Duration < 0 {
		return apierrors.NewValidationError("duration", "must be positive")
	}
	if a.Duration > MaxDuration {
		return apierrors.NewValidationError("duration", "too long")
	}
	if a.Slot().End() > endOfDay {
		return apierrors.NewValidationError("duration", "appointment must end on the same day")
	}
	return nil
}

// Slot returns the requested interval, applying the default duration.
func (a AppointmentRequest) Slot() Slot {
	duration := a.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	var start civil.Clock
	if a.Time != nil {
		start = *a.Time
	}
	return Slot{Start: start, Duration: duration}
}

type StatusRequest struct {
	Status Status `json:"status"`
}

// Validate checks if the requested status is a known one.
func (s StatusRequest) Validate() error {
	if s.Status == "" {
		return apierrors.NewValidationError("status", "required")
	}
	if !s.Status.Valid() {
		return apierrors.NewValidationError("status", "must be one of Scheduled, Completed, Cancelled, No Show")
	}
	return nil
}

type StatusResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// Filter narrows appointment listings. Empty fields are ignored.
type Filter struct {
	DoctorID  string
	PatientID string
	Date      civil.Date
	Status    Status
}

type Availability struct {
	DoctorID string        `json:"doctorId"`
	Date     civil.Date    `json:"date"`
	Duration int           `json:"duration"`
	Slots    []civil.Clock `json:"slots"`
}

type ConflictCheck struct {
	DoctorID string      `json:"doctorId"`
	Date     civil.Date  `json:"date"`
	Time     civil.Clock `json:"time"`
	Duration int         `json:"duration"`
	Conflict bool        `json:"conflict"`
}
