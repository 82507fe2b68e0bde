package billing

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = logging.Discard()

var (
	invoiceRowColumns = []string{"id", "patient_id", "issue_date", "due_date", "total_amount", "paid_amount", "status", "payment_method", "paid_at", "created_at"}
	itemRowColumns    = []string{"id", "invoice_id", "description", "category", "quantity", "price", "total"}
	issued            = time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
)

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
	return auth.User{ID: 1, UUID: uuid.New(), Email: "billing@hospital.com", Role: role}
}

func invoiceRow(total, paid string, status Status) *sqlmock.Rows {
	return sqlmock.NewRows(invoiceRowColumns).
		AddRow("INV001", "P001", issued, issued.AddDate(0, 0, 30), total, paid, string(status), nil, nil, issued)
}

func itemRows() *sqlmock.Rows {
	return sqlmock.NewRows(itemRowColumns).
		AddRow(uuid.NewString(), "INV001", "Consultation", "consultation", 1, "200.00", "200.00").
		AddRow(uuid.NewString(), "INV001", "Blood test", "lab", 2, "50.00", "100.00")
}

func withPatientExists(exists bool) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(patientExistsQuery)).WithArgs("P001").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
	}
}

func withNextInvoiceID(existing ...string) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		query, _ := idgen.ListQuery(idgen.InvoicePrefix)
		rows := sqlmock.NewRows([]string{"id"})
		for _, id := range existing {
			rows.AddRow(id)
		}
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WithArgs(idgen.InvoicePrefix).WillReturnResult(sqlmock.NewResult(0, 0))
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withLockInvoice(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(lockInvoiceQuery)).WithArgs("INV001").WillReturnRows(rows)
	}
}

func withFindItems() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findItemsQuery)).WithArgs("INV001").WillReturnRows(itemRows())
	}
}

func withSavePayment(paid string, status Status) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(applyPaymentQuery)).
			WithArgs("INV001", paid, string(status), "card", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func serve(t *testing.T, role auth.Role, method, path, body string, opts ...mock.DBResultOption) (*httptest.ResponseRecorder, mock.Connection) {
	t.Helper()
	dbConn := mock.MustCreateConnectionMock()
	router := chi.NewRouter()
	Setup(router, logger, mockAuthorizer{user: userWithRole(role)}, dbConn)

	mock.MockDBResults(dbConn, opts...)

	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Add("Authorization", "Bearer testing")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder, dbConn
}

func TestCreateInvoice(t *testing.T) {
	validBody := `{"patientId":"P001","issueDate":"2024-08-10","dueDate":"2024-09-10","items":[` +
		`{"description":"Consultation","category":"consultation","quantity":1,"price":200},` +
		`{"description":"Blood test","category":"lab","quantity":2,"price":"50.00"}]}`
	tests := []struct {
		name          string
		role          auth.Role
		body          string
		dbMockOptions []mock.DBResultOption
		want          int
		wantID        string
	}{
		{
			name: "should issue the invoice with the total of its items",
			role: auth.ReceptionistRole,
			body: validBody,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withPatientExists(true),
				withNextInvoiceID("INV001", "INV003"),
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertInvoiceQuery)).
						WithArgs("INV004", "P001", sqlmock.AnyArg(), sqlmock.AnyArg(), "300", "0", "pending", nil, nil, sqlmock.AnyArg()).
						WillReturnResult(sqlmock.NewResult(0, 1))
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertItemQuery)).
						WithArgs(sqlmock.AnyArg(), "INV004", 0, "Consultation", "consultation", 1, "200", "200").
						WillReturnResult(sqlmock.NewResult(0, 1))
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertItemQuery)).
						WithArgs(sqlmock.AnyArg(), "INV004", 1, "Blood test", "lab", 2, "50", "100").
						WillReturnResult(sqlmock.NewResult(0, 1))
				},
				mock.WithCommit(),
			},
			want:   http.StatusCreated,
			wantID: "INV004",
		},
		{
			name: "should not issue the invoice for an unknown patient",
			role: auth.AdminRole,
			body: validBody,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withPatientExists(false),
				mock.WithRollback(),
			},
			want: http.StatusNotFound,
		},
		{
			name: "should write nothing when an item cannot be inserted",
			role: auth.AdminRole,
			body: validBody,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withPatientExists(true),
				withNextInvoiceID(),
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertInvoiceQuery)).WillReturnResult(sqlmock.NewResult(0, 1))
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(insertItemQuery)).WillReturnError(sql.ErrConnDone)
				},
				mock.WithRollback(),
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should not issue an invoice without items",
			role: auth.ReceptionistRole,
			body: `{"patientId":"P001","dueDate":"2024-09-10","items":[]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "should not issue an invoice with a zero quantity",
			role: auth.ReceptionistRole,
			body: `{"patientId":"P001","dueDate":"2024-09-10","items":[{"description":"X-ray","quantity":0,"price":10}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "should not issue an invoice due before its issue date",
			role: auth.ReceptionistRole,
			body: `{"patientId":"P001","issueDate":"2024-08-10","dueDate":"2024-08-01","items":[{"description":"X-ray","quantity":1,"price":10}]}`,
			want: http.StatusBadRequest,
		},
		{
			name: "should not allow doctors to issue invoices",
			role: auth.DoctorRole,
			body: validBody,
			want: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder, dbConn := serve(t, tt.role, "POST", "/api/invoices", tt.body, tt.dbMockOptions...)

			require.Equal(t, tt.want, recorder.Code, recorder.Body.String())
			assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
			if tt.wantID == "" {
				return
			}
			invoice := new(Invoice)
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(invoice))
			assert.Equal(t, tt.wantID, invoice.ID)
			assert.Equal(t, StatusPending, invoice.Status)
			assert.Equal(t, "300", invoice.TotalAmount.String())
			require.Len(t, invoice.Items, 2)
			assert.Equal(t, "INV004", invoice.Items[1].InvoiceID)
			assert.Equal(t, "100", invoice.Items[1].Total.String())
		})
	}
}

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		dbMockOptions []mock.DBResultOption
		want          int
		wantStatus    Status
		wantPaidAt    bool
	}{
		{
			name: "should record a partial payment",
			body: `{"amount":150,"paymentMethod":"card"}`,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withLockInvoice(invoiceRow("300.00", "0", StatusPending)),
				withSavePayment("150", StatusPending),
				withFindItems(),
				mock.WithCommit(),
			},
			want:       http.StatusOK,
			wantStatus: StatusPending,
		},
		{
			name: "should settle the invoice with the remaining balance",
			body: `{"amount":"150.00","paymentMethod":"card"}`,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withLockInvoice(invoiceRow("300.00", "150.00", StatusPending)),
				withSavePayment("300", StatusPaid),
				withFindItems(),
				mock.WithCommit(),
			},
			want:       http.StatusOK,
			wantStatus: StatusPaid,
			wantPaidAt: true,
		},
		{
			name: "should reject a payment above the remaining balance",
			body: `{"amount":"150.01","paymentMethod":"card"}`,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withLockInvoice(invoiceRow("300.00", "150.00", StatusPending)),
				mock.WithRollback(),
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should reject a non positive payment",
			body: `{"amount":0,"paymentMethod":"card"}`,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withLockInvoice(invoiceRow("300.00", "0", StatusPending)),
				mock.WithRollback(),
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should return not found for an unknown invoice",
			body: `{"amount":10,"paymentMethod":"card"}`,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withLockInvoice(sqlmock.NewRows(invoiceRowColumns)),
				mock.WithRollback(),
			},
			want: http.StatusNotFound,
		},
		{
			name: "should leave the invoice unchanged when the update fails",
			body: `{"amount":10,"paymentMethod":"card"}`,
			dbMockOptions: []mock.DBResultOption{
				mock.WithBegin(),
				withLockInvoice(invoiceRow("300.00", "0", StatusPending)),
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectExec(regexp.QuoteMeta(applyPaymentQuery)).WillReturnError(sql.ErrConnDone)
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

			recorder, dbConn := serve(t, auth.ReceptionistRole, "PATCH", "/api/invoices/INV001/payment", tt.body, tt.dbMockOptions...)

			require.Equal(t, tt.want, recorder.Code, recorder.Body.String())
			assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
			if tt.want != http.StatusOK {
				return
			}
			invoice := new(Invoice)
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(invoice))
			assert.Equal(t, tt.wantStatus, invoice.Status)
			assert.Equal(t, tt.wantPaidAt, invoice.PaidAt != nil)
			assert.Len(t, invoice.Items, 2)
		})
	}
}

func TestGetInvoice(t *testing.T) {
	withFind := func(rows *sqlmock.Rows) mock.DBResultOption {
		return func(dbConn mock.Connection) {
			dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findInvoiceByIDQuery)).WithArgs("INV001").WillReturnRows(rows)
		}
	}

	recorder, dbConn := serve(t, auth.AdminRole, "GET", "/api/invoices/INV001", "",
		withFind(invoiceRow("300.00", "0", StatusOverdue)), withFindItems())
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
	invoice := new(Invoice)
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(invoice))
	assert.Equal(t, StatusOverdue, invoice.Status)
	assert.Equal(t, "Consultation", invoice.Items[0].Description)

	recorder, _ = serve(t, auth.AdminRole, "GET", "/api/invoices/INV001", "", withFind(sqlmock.NewRows(invoiceRowColumns)))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListInvoices(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		dbMockOptions []mock.DBResultOption
		want          int
	}{
		{
			name: "should list the pending invoices of a patient",
			path: "/api/invoices?patientId=P001&status=pending&limit=10",
			dbMockOptions: []mock.DBResultOption{
				func(dbConn mock.Connection) {
					query := listInvoicesQuery + " WHERE patient_id = $1 AND status = $2 ORDER BY issue_date DESC, id DESC LIMIT 10 OFFSET 0"
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("P001", "pending").
						WillReturnRows(invoiceRow("300.00", "0", StatusPending))
				},
			},
			want: http.StatusOK,
		},
		{
			name: "should list every invoice with the default page size",
			path: "/api/invoices",
			dbMockOptions: []mock.DBResultOption{
				func(dbConn mock.Connection) {
					query := listInvoicesQuery + " ORDER BY issue_date DESC, id DESC LIMIT 50 OFFSET 0"
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(sqlmock.NewRows(invoiceRowColumns))
				},
			},
			want: http.StatusOK,
		},
		{name: "should reject an unknown status", path: "/api/invoices?status=refunded", want: http.StatusBadRequest},
		{name: "should reject a malformed limit", path: "/api/invoices?limit=ten", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder, dbConn := serve(t, auth.ReceptionistRole, "GET", tt.path, "", tt.dbMockOptions...)

			assert.Equal(t, tt.want, recorder.Code, recorder.Body.String())
			assert.NoError(t, dbConn.SQLMock.ExpectationsWereMet())
		})
	}
}
