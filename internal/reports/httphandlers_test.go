package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"hospital-management/internal/auth"
	"hospital-management/internal/logging"
	"hospital-management/internal/mock"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = logging.Discard()

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

func withAppointmentCounts() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(appointmentsByStatusQuery)).WithArgs("2024-08-01", "2024-08-31").
			WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
				AddRow("Scheduled", 12).
				AddRow("Cancelled", 3).
				AddRow("No Show", 1))
	}
}

func withInvoiceTotals() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(invoicesByStatusQuery)).WithArgs("2024-08-01", "2024-08-31").
			WillReturnRows(sqlmock.NewRows([]string{"status", "count", "billed", "collected"}).
				AddRow("paid", 2, "450.00", "450.00").
				AddRow("pending", 3, "900.50", "120.25"))
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name            string
		role            auth.Role
		query           string
		dbMockOptions   []mock.DBResultOption
		want            int
		wantOutstanding string
	}{
		{
			name:            "should summarize the period",
			role:            auth.AdminRole,
			query:           "from=2024-08-01&to=2024-08-31",
			dbMockOptions:   []mock.DBResultOption{withAppointmentCounts(), withInvoiceTotals()},
			want:            http.StatusOK,
			wantOutstanding: "780.25",
		},
		{
			name:  "should fail when the appointments cannot be counted",
			role:  auth.AdminRole,
			query: "from=2024-08-01&to=2024-08-31",
			dbMockOptions: []mock.DBResultOption{
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(appointmentsByStatusQuery)).WillReturnError(sql.ErrConnDone)
				},
			},
			want: http.StatusInternalServerError,
		},
		{name: "should reject an inverted period", role: auth.AdminRole, query: "from=2024-08-31&to=2024-08-01", want: http.StatusBadRequest},
		{name: "should reject a malformed date", role: auth.AdminRole, query: "from=08/01/2024", want: http.StatusBadRequest},
		{name: "should only allow administrators", role: auth.ReceptionistRole, query: "from=2024-08-01&to=2024-08-31", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dbConn := mock.MustCreateConnectionMock()
			router := chi.NewRouter()
			user := auth.User{ID: 1, UUID: uuid.New(), Email: "admin@hospital.com", Role: tt.role}
			Setup(router, logger, mockAuthorizer{user: user}, dbConn)

			mock.MockDBResults(dbConn, tt.dbMockOptions...)

			req, _ := http.NewRequest("GET", "/api/reports/summary?"+tt.query, nil)
			req.Header.Add("Authorization", "Bearer testing")

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			require.Equal(t, tt.want, recorder.Code, recorder.Body.String())
			assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
			if tt.want != http.StatusOK {
				return
			}
			body := recorder.Body.String()
			assert.Contains(t, body, `"billed":"1350.50"`)
			assert.Contains(t, body, `"collected":"570.25"`)
			summary := new(Summary)
			require.NoError(t, json.Unmarshal([]byte(body), summary))
			assert.Equal(t, 12, summary.Appointments["Scheduled"])
			assert.Equal(t, 3, summary.Invoices.Count["pending"])
			assert.Equal(t, "1350.5", summary.Invoices.Billed.String())
			assert.Equal(t, tt.wantOutstanding, summary.Invoices.Outstanding.StringFixed(2))
		})
	}
}
