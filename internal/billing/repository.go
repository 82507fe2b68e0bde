package billing

import (
	"context"
	"database/sql"
	"fmt"
	"hospital-management/internal/database"
	"hospital-management/internal/idgen"
	"strings"
)

const (
	invoiceColumns = "id, patient_id, issue_date, due_date, total_amount, paid_amount, status, payment_method, paid_at, created_at"

	patientExistsQuery   = "SELECT EXISTS (SELECT 1 FROM tb_patient WHERE id = $1)"
	findInvoiceByIDQuery = "SELECT " + invoiceColumns + " FROM tb_invoice WHERE id = $1"
	lockInvoiceQuery     = "SELECT " + invoiceColumns + " FROM tb_invoice WHERE id = $1 FOR UPDATE"
	listInvoicesQuery    = "SELECT " + invoiceColumns + " FROM tb_invoice"
	listInvoicesOrder    = " ORDER BY issue_date DESC, id DESC LIMIT %d OFFSET %d"
	findItemsQuery       = "SELECT id, invoice_id, description, category, quantity, price, total FROM tb_invoice_item WHERE invoice_id = $1 ORDER BY position"
	insertInvoiceQuery   = "INSERT INTO tb_invoice (" + invoiceColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	insertItemQuery      = "INSERT INTO tb_invoice_item (id, invoice_id, position, description, category, quantity, price, total) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	applyPaymentQuery    = "UPDATE tb_invoice SET paid_amount = $2, status = $3, payment_method = $4, paid_at = $5 WHERE id = $1"
)

// Repository provides access to invoice data.
type Repository interface {

	// WithinTransaction runs fn with a repository bound to a single transaction.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repository Repository) error) error

	// PatientExists checks if there is a patient with the given identifier.
	PatientExists(ctx context.Context, id string) (bool, error)

	// FindInvoiceByID finds an invoice by its identifier, without items.
	FindInvoiceByID(ctx context.Context, id string) (*Invoice, error)

	// LockInvoice finds an invoice and locks its row until the transaction ends.
	LockInvoice(ctx context.Context, id string) (*Invoice, error)

	// FindItems lists the items of an invoice in the order they were issued.
	FindItems(ctx context.Context, invoiceID string) ([]*InvoiceItem, error)

	// ListInvoices lists invoices matching the given filter, newest first.
	ListInvoices(ctx context.Context, filter Filter, limit, offset int) ([]*Invoice, error)

	// NextInvoiceID computes the identifier of the next invoice.
	NextInvoiceID(ctx context.Context) (string, error)

	// InsertInvoice inserts the invoice and its items.
	InsertInvoice(ctx context.Context, invoice Invoice) error

	// SavePayment persists the paid amount, status, payment method and payment time of the
	// invoice with a single statement.
	SavePayment(ctx context.Context, invoice Invoice) error
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

func (d defaultRepository) PatientExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var exists bool
	if err := d.q.QueryRowContext(ctx, patientExistsQuery, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (d defaultRepository) FindInvoiceByID(ctx context.Context, id string) (*Invoice, error) {
	return d.findInvoice(ctx, findInvoiceByIDQuery, id)
}

func (d defaultRepository) LockInvoice(ctx context.Context, id string) (*Invoice, error) {
	return d.findInvoice(ctx, lockInvoiceQuery, id)
}

func (d defaultRepository) findInvoice(ctx context.Context, query, id string) (*Invoice, error) {
	invoices, err := d.listInvoices(ctx, query, id)
	if err != nil || len(invoices) == 0 {
		return nil, err
	}
	return invoices[0], nil
}

func (d defaultRepository) ListInvoices(ctx context.Context, filter Filter, limit, offset int) ([]*Invoice, error) {
	conditions := make([]string, 0, 2)
	params := make([]interface{}, 0, 2)
	if filter.PatientID != "" {
		params = append(params, filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(params)))
	}
	if filter.Status != "" {
		params = append(params, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(params)))
	}
	query := listInvoicesQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return d.listInvoices(ctx, query+fmt.Sprintf(listInvoicesOrder, limit, offset), params...)
}

func (d defaultRepository) listInvoices(ctx context.Context, query string, params ...interface{}) ([]*Invoice, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	invoices := make([]*Invoice, 0)
	for rows.Next() {
		invoice := new(Invoice)
		if err = database.TransformRow(rows, invoice); err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (d defaultRepository) FindItems(ctx context.Context, invoiceID string) ([]*InvoiceItem, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.q.QueryContext(ctx, findItemsQuery, invoiceID)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	items := make([]*InvoiceItem, 0)
	for rows.Next() {
		item := new(InvoiceItem)
		if err = database.TransformRow(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (d defaultRepository) NextInvoiceID(ctx context.Context) (string, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	return idgen.Generate(ctx, d.q, idgen.InvoicePrefix)
}

func (d defaultRepository) InsertInvoice(ctx context.Context, invoice Invoice) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	_, err := d.q.ExecContext(ctx, insertInvoiceQuery, invoice.ID, invoice.PatientID, invoice.IssueDate, invoice.DueDate,
		invoice.TotalAmount, invoice.PaidAmount, invoice.Status, invoice.PaymentMethod, invoice.PaidAt, invoice.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not insert invoice: %w", err)
	}
	for position, item := range invoice.Items {
		_, err = d.q.ExecContext(ctx, insertItemQuery, item.ID, invoice.ID, position, item.Description, item.Category,
			item.Quantity, item.Price, item.Total)
		if err != nil {
			return fmt.Errorf("could not insert invoice item %d: %w", position, err)
		}
	}
	return nil
}

func (d defaultRepository) SavePayment(ctx context.Context, invoice Invoice) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.q.ExecContext(ctx, applyPaymentQuery, invoice.ID, invoice.PaidAmount, invoice.Status,
		invoice.PaymentMethod, invoice.PaidAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("invoice %s payment not saved", invoice.ID)
	}
	return nil
}
