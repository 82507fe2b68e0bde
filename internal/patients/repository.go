package patients

import (
	"context"
	"database/sql"
	"fmt"
	"hospital-management/internal/database"
	"hospital-management/internal/idgen"
	"strings"
)

const (
	findPatientByIDQuery = "SELECT id, name, email, phone, date_of_birth, gender, address, created_at FROM tb_patient WHERE id = $1"
	listPatientsQuery    = "SELECT id, name, email, phone, date_of_birth, gender, address, created_at FROM tb_patient ORDER BY id LIMIT $1 OFFSET $2"
	searchPatientsQuery  = "SELECT id, name, email, phone, date_of_birth, gender, address, created_at FROM tb_patient WHERE name ILIKE $1 OR phone ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3"
	insertPatientQuery   = "INSERT INTO tb_patient (id, name, email, phone, date_of_birth, gender, address, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
)

// Repository provides access to patient data.
type Repository interface {

	// FindPatientByID finds a patient by its identifier.
	FindPatientByID(ctx context.Context, id string) (*Patient, error)

	// ListPatients lists patients ordered by identifier, optionally filtered by a name or phone fragment.
	ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, error)

	// InsertPatient assigns the next patient identifier and inserts the patient.
	InsertPatient(ctx context.Context, patient *Patient) error
}

type defaultRepository struct {
	dbConn database.Connection
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) FindPatientByID(ctx context.Context, id string) (*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, findPatientByIDQuery, id)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	if !rows.Next() {
		return nil, rows.Err()
	}
	patient := new(Patient)
	if err = database.TransformRow(rows, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (d defaultRepository) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var rows *sql.Rows
	var err error
	if search = strings.TrimSpace(search); search != "" {
		rows, err = d.dbConn.DB().QueryContext(ctx, searchPatientsQuery, "%"+search+"%", limit, offset)
	} else {
		rows, err = d.dbConn.DB().QueryContext(ctx, listPatientsQuery, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	patients := make([]*Patient, 0)
	for rows.Next() {
		patient := new(Patient)
		if err = database.TransformRow(rows, patient); err != nil {
			return nil, err
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

func (d defaultRepository) InsertPatient(ctx context.Context, patient *Patient) error {
	return database.WithTransaction(ctx, d.dbConn, func(ctx context.Context, tx *sql.Tx) error {
		id, err := idgen.Generate(ctx, tx, idgen.PatientPrefix)
		if err != nil {
			return err
		}
		patient.ID = id
		result, err := tx.ExecContext(ctx, insertPatientQuery, patient.ID, patient.Name, patient.Email, patient.Phone,
			patient.DateOfBirth, patient.Gender, patient.Address, patient.CreatedAt)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("patient not inserted")
		}
		return nil
	})
}
