// Package appointments contains handlers, services and structures used to book appointments
// with doctors, keeping each doctor's agenda free of overlapping slots.
package appointments

import (
	"context"
	"fmt"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/civil"
	"hospital-management/internal/database"
	"hospital-management/internal/metrics"
	"time"
)

// Service determines the methods used to manage appointments.
type Service interface {

	// CreateAppointment books a new appointment, rejecting it if the slot overlaps another
	// appointment of the same doctor.
	CreateAppointment(ctx context.Context, request AppointmentRequest) (*Appointment, error)

	// UpdateAppointment reschedules or edits an appointment, rejecting the change if the new
	// slot overlaps another appointment of the same doctor.
	UpdateAppointment(ctx context.Context, id string, request AppointmentRequest) (*Appointment, error)

	// UpdateStatus moves an appointment to the given status.
	UpdateStatus(ctx context.Context, id string, request StatusRequest) (*StatusResponse, error)

	// GetAppointment gets an appointment by its identifier.
	GetAppointment(ctx context.Context, id string) (*Appointment, error)

	// ListAppointments lists the appointments matching the given filter.
	ListAppointments(ctx context.Context, filter Filter) ([]*Appointment, error)

	// DeleteAppointment removes an appointment permanently.
	DeleteAppointment(ctx context.Context, id string) error

	// HasConflict checks if the given slot overlaps any non cancelled appointment of the
	// doctor on that date, ignoring the appointment identified by excludeID.
	HasConflict(ctx context.Context, doctorID string, date civil.Date, start civil.Clock, duration int, excludeID string) (bool, error)

	// Availability lists the free start times of a doctor on a date within working hours.
	Availability(ctx context.Context, doctorID string, date civil.Date, duration int) (*Availability, error)
}

type defaultService struct {
	repository Repository
	now        func() time.Time
}

// NewService creates a new appointments service.
func NewService(dbConn database.Connection) Service {
	return &defaultService{repository: newRepository(dbConn), now: time.Now}
}

// checkSlot loads the doctor's day and reports a conflict error if the slot is taken.
func checkSlot(ctx context.Context, repository Repository, doctorID string, date civil.Date, slot Slot, excludeID string) error {
	day, err := repository.ListDoctorDay(ctx, doctorID, date, excludeID)
	if err != nil {
		return fmt.Errorf("could not load appointments of doctor %s: %w", doctorID, err)
	}
	if HasConflict(day, slot, excludeID) {
		metrics.AppointmentConflicts.Inc()
		return apierrors.Conflict(ErrTimeConflict)
	}
	return nil
}

func requirePatient(ctx context.Context, repository Repository, patientID string) error {
	exists, err := repository.PatientExists(ctx, patientID)
	if err != nil {
		return fmt.Errorf("could not find patient %s: %w", patientID, err)
	}
	if !exists {
		return apierrors.NotFound(ErrPatientNotFound)
	}
	return nil
}

func lockDoctor(ctx context.Context, repository Repository, doctorID string) (*Doctor, error) {
	doctor, err := repository.LockDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("could not lock doctor %s: %w", doctorID, err)
	}
	if doctor == nil {
		return nil, apierrors.NotFound(ErrDoctorNotFound)
	}
	return doctor, nil
}

func (d defaultService) CreateAppointment(ctx context.Context, request AppointmentRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	var created *Appointment
	err := d.repository.WithinTransaction(ctx, func(ctx context.Context, repository Repository) error {
		if err := requirePatient(ctx, repository, request.PatientID); err != nil {
			return err
		}
		doctor, err := lockDoctor(ctx, repository, request.DoctorID)
		if err != nil {
			return err
		}
		slot := request.Slot()
		if err = checkSlot(ctx, repository, doctor.ID, request.Date, slot, ""); err != nil {
			return err
		}
		id, err := repository.NextAppointmentID(ctx)
		if err != nil {
			return fmt.Errorf("could not generate appointment id: %w", err)
		}
		now := d.now().UTC()
		appointment := Appointment{
			ID:         id,
			PatientID:  request.PatientID,
			DoctorID:   doctor.ID,
			Department: doctor.Department,
			Date:       request.Date,
			Time:       slot.Start,
			Duration:   slot.Duration,
			Status:     StatusScheduled,
			Reason:     request.Reason,
			Notes:      request.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err = repository.InsertAppointment(ctx, appointment); err != nil {
			return fmt.Errorf("could not insert appointment: %w", err)
		}
		created = &appointment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (d defaultService) UpdateAppointment(ctx context.Context, id string, request AppointmentRequest) (*Appointment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	var updated *Appointment
	err := d.repository.WithinTransaction(ctx, func(ctx context.Context, repository Repository) error {
		appointment, err := repository.LockAppointment(ctx, id)
		if err != nil {
			return fmt.Errorf("could not lock appointment %s: %w", id, err)
		}
		if appointment == nil {
			return apierrors.NotFound(ErrAppointmentNotFound)
		}
		if request.PatientID != appointment.PatientID {
			if err = requirePatient(ctx, repository, request.PatientID); err != nil {
				return err
			}
		}
		doctor, err := lockDoctor(ctx, repository, request.DoctorID)
		if err != nil {
			return err
		}
		slot := request.Slot()
		if appointment.Status != StatusCancelled {
			if err = checkSlot(ctx, repository, doctor.ID, request.Date, slot, appointment.ID); err != nil {
				return err
			}
		}
		if doctor.ID != appointment.DoctorID {
			appointment.Department = doctor.Department
		}
		appointment.PatientID = request.PatientID
		appointment.DoctorID = doctor.ID
		appointment.Date = request.Date
		appointment.Time = slot.Start
		appointment.Duration = slot.Duration
		appointment.Reason = request.Reason
		appointment.Notes = request.Notes
		appointment.UpdatedAt = d.now().UTC()
		if err = repository.UpdateAppointment(ctx, *appointment); err != nil {
			return fmt.Errorf("could not update appointment: %w", err)
		}
		updated = appointment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// reclaimsSlot reports whether moving from one status to another needs the slot to be free
// again: the appointment leaves Cancelled, or goes back to Scheduled.
func reclaimsSlot(from, to Status) bool {
	if to == StatusCancelled || from == to {
		return false
	}
	return from == StatusCancelled || to == StatusScheduled
}

func (d defaultService) UpdateStatus(ctx context.Context, id string, request StatusRequest) (*StatusResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	err := d.repository.WithinTransaction(ctx, func(ctx context.Context, repository Repository) error {
		appointment, err := repository.LockAppointment(ctx, id)
		if err != nil {
			return fmt.Errorf("could not lock appointment %s: %w", id, err)
		}
		if appointment == nil {
			return apierrors.NotFound(ErrAppointmentNotFound)
		}
		if reclaimsSlot(appointment.Status, request.Status) {
			if _, err = lockDoctor(ctx, repository, appointment.DoctorID); err != nil {
				return err
			}
			if err = checkSlot(ctx, repository, appointment.DoctorID, appointment.Date, appointment.Slot(), appointment.ID); err != nil {
				return err
			}
		}
		appointment.Status = request.Status
		appointment.UpdatedAt = d.now().UTC()
		if err = repository.UpdateStatus(ctx, *appointment); err != nil {
			return fmt.Errorf("could not update appointment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &StatusResponse{ID: id, Status: request.Status}, nil
}

func (d defaultService) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	appointment, err := d.repository.FindAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not find appointment %s: %w", id, err)
	}
	if appointment == nil {
		return nil, apierrors.NotFound(ErrAppointmentNotFound)
	}
	return appointment, nil
}

func (d defaultService) ListAppointments(ctx context.Context, filter Filter) ([]*Appointment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apierrors.NewValidationError("status", "must be one of Scheduled, Completed, Cancelled, No Show")
	}
	appointments, err := d.repository.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("could not list appointments: %w", err)
	}
	return appointments, nil
}

func (d defaultService) DeleteAppointment(ctx context.Context, id string) error {
	deleted, err := d.repository.DeleteAppointment(ctx, id)
	if err != nil {
		return fmt.Errorf("could not delete appointment %s: %w", id, err)
	}
	if !deleted {
		return apierrors.NotFound(ErrAppointmentNotFound)
	}
	return nil
}

func (d defaultService) HasConflict(ctx context.Context, doctorID string, date civil.Date, start civil.Clock, duration int, excludeID string) (bool, error) {
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < 0 {
		return false, apierrors.NewValidationError("duration", "must be positive")
	}
	day, err := d.repository.ListDoctorDay(ctx, doctorID, date, excludeID)
	if err != nil {
		return false, fmt.Errorf("could not load appointments of doctor %s: %w", doctorID, err)
	}
	return HasConflict(day, Slot{Start: start, Duration: duration}, excludeID), nil
}

func (d defaultService) Availability(ctx context.Context, doctorID string, date civil.Date, duration int) (*Availability, error) {
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < 0 || duration > MaxDuration {
		return nil, apierrors.NewValidationError("duration", ErrInvalidDuration)
	}
	doctor, err := d.repository.FindDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("could not find doctor %s: %w", doctorID, err)
	}
	if doctor == nil {
		return nil, apierrors.NotFound(ErrDoctorNotFound)
	}
	day, err := d.repository.ListDoctorDay(ctx, doctor.ID, date, "")
	if err != nil {
		return nil, fmt.Errorf("could not load appointments of doctor %s: %w", doctor.ID, err)
	}
	return &Availability{
		DoctorID: doctor.ID,
		Date:     date,
		Duration: duration,
		Slots:    FreeSlots(day, duration, workdayStart, workdayEnd),
	}, nil
}
