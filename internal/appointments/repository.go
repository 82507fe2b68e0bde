package appointments

import (
	"context"
	"database/sql"
	"fmt"
	"hospital-management/internal/civil"
	"hospital-management/internal/database"
	"hospital-management/internal/idgen"
	"strings"
)

const (
	appointmentColumns = "id, patient_id, doctor_id, department, date, time, duration, status, reason, notes, created_at, updated_at"

	findDoctorByIDQuery        = "SELECT id, name, department FROM tb_doctor WHERE id = $1"
	lockDoctorQuery            = "SELECT id, name, department FROM tb_doctor WHERE id = $1 FOR UPDATE"
	patientExistsQuery         = "SELECT EXISTS (SELECT 1 FROM tb_patient WHERE id = $1)"
	findAppointmentByIDQuery   = "SELECT " + appointmentColumns + " FROM tb_appointment WHERE id = $1"
	lockAppointmentQuery       = "SELECT " + appointmentColumns + " FROM tb_appointment WHERE id = $1 FOR UPDATE"
	listDoctorDayQuery         = "SELECT " + appointmentColumns + " FROM tb_appointment WHERE doctor_id = $1 AND date = $2 AND status <> 'Cancelled' AND id <> $3 ORDER BY time"
	listAppointmentsQuery      = "SELECT " + appointmentColumns + " FROM tb_appointment"
	insertAppointmentQuery     = "INSERT INTO tb_appointment (" + appointmentColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)"
	updateAppointmentQuery     = "UPDATE tb_appointment SET patient_id = $2, doctor_id = $3, department = $4, date = $5, time = $6, duration = $7, reason = $8, notes = $9, updated_at = $10 WHERE id = $1"
	updateStatusQuery          = "UPDATE tb_appointment SET status = $2, updated_at = $3 WHERE id = $1"
	deleteAppointmentQuery     = "DELETE FROM tb_appointment WHERE id = $1"
	listAppointmentsOrderQuery = " ORDER BY date, time, id"
)

// Repository provides access to appointment data.
type Repository interface {

	// WithinTransaction runs fn with a repository bound to a single transaction.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repository Repository) error) error

	// FindDoctorByID finds a doctor by its identifier.
	FindDoctorByID(ctx context.Context, id string) (*Doctor, error)

	// LockDoctor finds a doctor and locks its row until the transaction ends, serializing
	// bookings for that doctor.
	LockDoctor(ctx context.Context, id string) (*Doctor, error)

	// PatientExists checks if there is a patient with the given identifier.
	PatientExists(ctx context.Context, id string) (bool, error)

	// FindAppointmentByID finds an appointment by its identifier.
	FindAppointmentByID(ctx context.Context, id string) (*Appointment, error)

	// LockAppointment finds an appointment and locks its row until the transaction ends.
	LockAppointment(ctx context.Context, id string) (*Appointment, error)

	// ListDoctorDay lists the non cancelled appointments of a doctor on a date, except excludeID.
	ListDoctorDay(ctx context.Context, doctorID string, date civil.Date, excludeID string) ([]*Appointment, error)

	// ListAppointments lists appointments matching the given filter.
	ListAppointments(ctx context.Context, filter Filter) ([]*Appointment, error)

	// NextAppointmentID computes the identifier of the next appointment.
	NextAppointmentID(ctx context.Context) (string, error)

	// InsertAppointment inserts a new appointment.
	InsertAppointment(ctx context.Context, appointment Appointment) error

	// UpdateAppointment updates the schedule and details of an appointment.
	UpdateAppointment(ctx context.Context, appointment Appointment) error

	// UpdateStatus updates the status of an appointment.
	UpdateStatus(ctx context.Context, appointment Appointment) error

	// DeleteAppointment removes an appointment, returning false if it did not exist.
	DeleteAppointment(ctx context.Context, id string) (bool, error)
}

type defaultRepository struct {
	dbConn database.Connection
	q      database.Querier
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn, q: dbConn.DB()}
}

func (d defaultRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repository Repository) error) error {
	return database.WithTransaction(ctx, d.dbConn, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &defaultRepository{dbConn: d.dbConn, q: tx})
	})
}

func (d defaultRepository) findDoctor(ctx context.Context, query, id string) (*Doctor, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	if !rows.Next() {
		return nil, rows.Err()
	}
	doctor := new(Doctor)
	if err = database.TransformRow(rows, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (d defaultRepository) FindDoctorByID(ctx context.Context, id string) (*Doctor, error) {
	return d.findDoctor(ctx, findDoctorByIDQuery, id)
}

func (d defaultRepository) LockDoctor(ctx context.Context, id string) (*Doctor, error) {
	return d.findDoctor(ctx, lockDoctorQuery, id)
}

func (d defaultRepository) PatientExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var exists bool
	if err := d.q.QueryRowContext(ctx, patientExistsQuery, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (d defaultRepository) findAppointment(ctx context.Context, query, id string) (*Appointment, error) {
	appointments, err := d.listAppointments(ctx, query, id)
	if err != nil || len(appointments) == 0 {
		return nil, err
	}
	return appointments[0], nil
}

func (d defaultRepository) FindAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	return d.findAppointment(ctx, findAppointmentByIDQuery, id)
}

func (d defaultRepository) LockAppointment(ctx context.Context, id string) (*Appointment, error) {
	return d.findAppointment(ctx, lockAppointmentQuery, id)
}

func (d defaultRepository) ListDoctorDay(ctx context.Context, doctorID string, date civil.Date, excludeID string) ([]*Appointment, error) {
	return d.listAppointments(ctx, listDoctorDayQuery, doctorID, date, excludeID)
}

func (d defaultRepository) ListAppointments(ctx context.Context, filter Filter) ([]*Appointment, error) {
	conditions := make([]string, 0, 4)
	params := make([]interface{}, 0, 4)
	add := func(column string, value interface{}) {
		params = append(params, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(params)))
	}
	if filter.DoctorID != "" {
		add("doctor_id", filter.DoctorID)
	}
	if filter.PatientID != "" {
		add("patient_id", filter.PatientID)
	}
	if !filter.Date.IsZero() {
		add("date", filter.Date)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	query := listAppointmentsQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return d.listAppointments(ctx, query+listAppointmentsOrderQuery, params...)
}

func (d defaultRepository) listAppointments(ctx context.Context, query string, params ...interface{}) ([]*Appointment, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	appointments := make([]*Appointment, 0)
	for rows.Next() {
		appointment := new(Appointment)
		if err = database.TransformRow(rows, appointment); err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}

func (d defaultRepository) NextAppointmentID(ctx context.Context) (string, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	return idgen.Generate(ctx, d.q, idgen.AppointmentPrefix)
}

func (d defaultRepository) exec(ctx context.Context, query string, params ...interface{}) (int64, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.q.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d defaultRepository) InsertAppointment(ctx context.Context, appointment Appointment) error {
	affected, err := d.exec(ctx, insertAppointmentQuery, appointment.ID, appointment.PatientID, appointment.DoctorID,
		appointment.Department, appointment.Date, appointment.Time, appointment.Duration, appointment.Status,
		appointment.Reason, appointment.Notes, appointment.CreatedAt, appointment.UpdatedAt)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("appointment not inserted")
	}
	return nil
}

func (d defaultRepository) UpdateAppointment(ctx context.Context, appointment Appointment) error {
	affected, err := d.exec(ctx, updateAppointmentQuery, appointment.ID, appointment.PatientID, appointment.DoctorID,
		appointment.Department, appointment.Date, appointment.Time, appointment.Duration, appointment.Reason,
		appointment.Notes, appointment.UpdatedAt)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("appointment %s not updated", appointment.ID)
	}
	return nil
}

func (d defaultRepository) UpdateStatus(ctx context.Context, appointment Appointment) error {
	affected, err := d.exec(ctx, updateStatusQuery, appointment.ID, appointment.Status, appointment.UpdatedAt)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("appointment %s status not updated", appointment.ID)
	}
	return nil
}

func (d defaultRepository) DeleteAppointment(ctx context.Context, id string) (bool, error) {
	affected, err := d.exec(ctx, deleteAppointmentQuery, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
