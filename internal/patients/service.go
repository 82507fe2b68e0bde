// Package patients contains handlers, services and structures used to register and look up
// hospital patients.
package patients

import (
	"context"
	"fmt"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/database"
	"strings"
	"time"
)

const (
	ErrPatientNotFound = "patient not found"

	defaultPageSize = 50
	maxPageSize     = 200
)

// Service determines the methods used to manage patients.
type Service interface {

	// CreatePatient registers a new patient and returns it with its assigned identifier.
	CreatePatient(ctx context.Context, patient Patient) (*Patient, error)

	// GetPatient gets a patient by its identifier.
	GetPatient(ctx context.Context, id string) (*Patient, error)

	// ListPatients lists patients, optionally filtered by a name or phone fragment.
	ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, error)
}

type defaultService struct {
	repository Repository
	now        func() time.Time
}

// NewService creates a new patients service.
func NewService(dbConn database.Connection) Service {
	return &defaultService{repository: newRepository(dbConn), now: time.Now}
}

func (d defaultService) CreatePatient(ctx context.Context, patient Patient) (*Patient, error) {
	if err := patient.Validate(); err != nil {
		return nil, err
	}
	patient.Name = strings.TrimSpace(patient.Name)
	patient.Gender = strings.ToLower(patient.Gender)
	patient.CreatedAt = d.now().UTC()
	if err := d.repository.InsertPatient(ctx, &patient); err != nil {
		return nil, fmt.Errorf("could not insert patient: %w", err)
	}
	return &patient, nil
}

func (d defaultService) GetPatient(ctx context.Context, id string) (*Patient, error) {
	patient, err := d.repository.FindPatientByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not find patient %s: %w", id, err)
	}
	if patient == nil {
		return nil, apierrors.NotFound(ErrPatientNotFound)
	}
	return patient, nil
}

func (d defaultService) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	patients, err := d.repository.ListPatients(ctx, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("could not list patients: %w", err)
	}
	return patients, nil
}
