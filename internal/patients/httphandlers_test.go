package patients

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"hospital-management/internal/auth"
	"hospital-management/internal/idgen"
	"hospital-management/internal/logging"
	"hospital-management/internal/mock"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var logger = logging.Discard()

var patientColumns = []string{"id", "name", "email", "phone", "date_of_birth", "gender", "address", "created_at"}

type mockAuthorizer struct {
	user auth.User
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*auth.User, error) {
	return &m.user, nil
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error) {
	return nil, auth.NewUnauthorizedError()
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (auth.User, error) {
	return ctx.Value(auth.UserContextKey).(auth.User), nil
}

func userWithRole(role auth.Role) auth.User {
	return auth.User{ID: 1, UUID: uuid.New(), Email: "staff@hospital.com", Role: role}
}

func withFindPatientByIDResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findPatientByIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindPatientByIDError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findPatientByIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func withNextPatientID(existing ...string) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		query, _ := idgen.ListQuery(idgen.PatientPrefix)
		rows := sqlmock.NewRows([]string{"id"})
		for _, id := range existing {
			rows.AddRow(id)
		}
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WithArgs(idgen.PatientPrefix).WillReturnResult(sqlmock.NewResult(0, 0))
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withInsertPatientResult(wantID string) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertPatientQuery)).
			WithArgs(wantID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func TestCreatePatient(t *testing.T) {
	validBody := `{"name":"Jane Roe","phone":"555-0100","dateOfBirth":"1985-04-12","gender":"Female","email":"jane@example.com"}`
	tests := []struct {
		name          string
		role          auth.Role
		body          string
		dbMockOptions []mock.DBResultOption
		want          int
		wantID        string
	}{
		{
			name: "should create the patient with the next identifier after the highest one",
			role: auth.ReceptionistRole,
			body: validBody,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withNextPatientID("P001", "P002", "P005"),
				withInsertPatientResult("P006"),
				mock.WithCommit(),
			},
			want:   http.StatusCreated,
			wantID: "P006",
		},
		{
			name: "should not create the patient without a name",
			role: auth.AdminRole,
			body: `{"phone":"555-0100","dateOfBirth":"1985-04-12","gender":"female"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "should not create the patient with an unknown gender",
			role: auth.AdminRole,
			body: `{"name":"Jane Roe","phone":"555-0100","dateOfBirth":"1985-04-12","gender":"n/a"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "should not create the patient with a malformed date of birth",
			role: auth.AdminRole,
			body: `{"name":"Jane Roe","phone":"555-0100","dateOfBirth":"12/04/1985","gender":"female"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "should not allow doctors to register patients",
			role: auth.DoctorRole,
			body: validBody,
			want: http.StatusForbidden,
		},
		{
			name: "should not create the patient due to a database error",
			role: auth.ReceptionistRole,
			body: validBody,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WillReturnError(sql.ErrConnDone)
				},
				mock.WithRollback(),
			},
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dbConn := mock.MustCreateConnectionMock()
			router := chi.NewRouter()
			Setup(router, logger, mockAuthorizer{user: userWithRole(tt.role)}, dbConn)

			mock.MockDBResults(dbConn, tt.dbMockOptions...)

			req, _ := http.NewRequest("POST", "/api/patients", bytes.NewBufferString(tt.body))
			req.Header.Add("Authorization", "Bearer testing")

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if tt.wantID != "" {
				created := new(Patient)
				if err := json.NewDecoder(recorder.Body).Decode(created); err != nil {
					t.Fatalf("could not decode response: %v", err)
				}
				if created.ID != tt.wantID {
					t.Errorf("patient id is incorrect, got %s, want %s", created.ID, tt.wantID)
				}
				if created.Gender != "female" {
					t.Errorf("gender was not normalized, got %s", created.Gender)
				}
			}
		})
	}
}

func TestGetPatient(t *testing.T) {
	tests := []struct {
		name          string
		dbMockOptions []mock.DBResultOption
		want          int
	}{
		{
			name: "should get the patient",
			dbMockOptions: []mock.DBResultOption{
				withFindPatientByIDResult(sqlmock.NewRows(patientColumns).AddRow("P001", "Jane Roe", nil, "555-0100", time.Date(1985, 4, 12, 0, 0, 0, 0, time.UTC), "female", nil, time.Now())),
			},
			want: http.StatusOK,
		},
		{
			name: "should return not found for an unknown patient",
			dbMockOptions: []mock.DBResultOption{
				withFindPatientByIDResult(sqlmock.NewRows(patientColumns)),
			},
			want: http.StatusNotFound,
		},
		{
			name:          "should fail due to a database error",
			dbMockOptions: []mock.DBResultOption{withFindPatientByIDError()},
			want:          http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dbConn := mock.MustCreateConnectionMock()
			router := chi.NewRouter()
			Setup(router, logger, mockAuthorizer{user: userWithRole(auth.DoctorRole)}, dbConn)

			mock.MockDBResults(dbConn, tt.dbMockOptions...)

			req, _ := http.NewRequest("GET", "/api/patients/P001", nil)
			req.Header.Add("Authorization", "Bearer testing")

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestListPatients(t *testing.T) {
	dbConn := mock.MustCreateConnectionMock()
	router := chi.NewRouter()
	Setup(router, logger, mockAuthorizer{user: userWithRole(auth.ReceptionistRole)}, dbConn)

	dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(searchPatientsQuery)).WithArgs("%roe%", maxPageSize, 0).
		WillReturnRows(sqlmock.NewRows(patientColumns).AddRow("P001", "Jane Roe", "jane@example.com", "555-0100", time.Date(1985, 4, 12, 0, 0, 0, 0, time.UTC), "female", "1 Main St", time.Now()))

	req, _ := http.NewRequest("GET", "/api/patients?search=roe&limit=1000", nil)
	req.Header.Add("Authorization", "Bearer testing")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("response status is incorrect, got %d, want %d", recorder.Code, http.StatusOK)
	}
	patients := make([]Patient, 0)
	if err := json.NewDecoder(recorder.Body).Decode(&patients); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if len(patients) != 1 || patients[0].ID != "P001" {
		t.Errorf("unexpected patients %+v", patients)
	}
	if err := dbConn.SQLMock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
