// Package billing contains handlers, services and structures used to issue invoices and to
// reconcile the payments made against them.
package billing

import (
	"context"
	"fmt"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/civil"
	"hospital-management/internal/database"
	"hospital-management/internal/metrics"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ErrInvoiceNotFound = "invoice not found"
	ErrPatientNotFound = "patient not found"

	defaultPageSize = 50
	maxPageSize     = 200
)

// Service determines the methods used to manage invoices.
type Service interface {

	// CreateInvoice issues a new pending invoice whose total is the sum of its items.
	CreateInvoice(ctx context.Context, request InvoiceRequest) (*Invoice, error)

	// GetInvoice gets an invoice with its items.
	GetInvoice(ctx context.Context, id string) (*Invoice, error)

	// ListInvoices lists invoices matching the given filter, without items.
	ListInvoices(ctx context.Context, filter Filter, limit, offset int) ([]*Invoice, error)

	// ApplyPayment validates and applies a payment to an invoice.
	ApplyPayment(ctx context.Context, id string, request PaymentRequest) (*Invoice, error)
}

type defaultService struct {
	repository Repository
	now        func() time.Time
}

// NewService creates a new billing service.
func NewService(dbConn database.Connection) Service {
	return &defaultService{repository: newRepository(dbConn), now: time.Now}
}

func (d defaultService) CreateInvoice(ctx context.Context, request InvoiceRequest) (*Invoice, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	now := d.now().UTC()
	invoice := Invoice{
		PatientID:   strings.TrimSpace(request.PatientID),
		IssueDate:   request.IssueDate,
		DueDate:     request.DueDate,
		TotalAmount: decimal.Zero,
		PaidAmount:  decimal.Zero,
		Status:      StatusPending,
		CreatedAt:   now,
		Items:       make([]*InvoiceItem, 0, len(request.Items)),
	}
	if invoice.IssueDate.IsZero() {
		invoice.IssueDate = civil.DateOf(now)
		if invoice.DueDate.Before(invoice.IssueDate) {
			return nil, apierrors.NewValidationError("dueDate", "must not be before the issue date")
		}
	}
	for _, item := range request.Items {
		price := item.Price.Round(moneyPlaces)
		total := itemTotal(item.Quantity, price)
		invoice.Items = append(invoice.Items, &InvoiceItem{
			ID:          uuid.NewString(),
			Description: strings.TrimSpace(item.Description),
			Category:    item.Category,
			Quantity:    item.Quantity,
			Price:       price,
			Total:       total,
		})
		invoice.TotalAmount = invoice.TotalAmount.Add(total)
	}
	err := d.repository.WithinTransaction(ctx, func(ctx context.Context, repository Repository) error {
		exists, err := repository.PatientExists(ctx, invoice.PatientID)
		if err != nil {
			return fmt.Errorf("could not find patient %s: %w", invoice.PatientID, err)
		}
		if !exists {
			return apierrors.NotFound(ErrPatientNotFound)
		}
		if invoice.ID, err = repository.NextInvoiceID(ctx); err != nil {
			return fmt.Errorf("could not generate invoice id: %w", err)
		}
		for _, item := range invoice.Items {
			item.InvoiceID = invoice.ID
		}
		return repository.InsertInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (d defaultService) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice, err := d.repository.FindInvoiceByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not find invoice %s: %w", id, err)
	}
	if invoice == nil {
		return nil, apierrors.NotFound(ErrInvoiceNotFound)
	}
	if invoice.Items, err = d.repository.FindItems(ctx, id); err != nil {
		return nil, fmt.Errorf("could not find items of invoice %s: %w", id, err)
	}
	return invoice, nil
}

func (d defaultService) ListInvoices(ctx context.Context, filter Filter, limit, offset int) ([]*Invoice, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apierrors.NewValidationError("status", "must be one of pending, paid, overdue")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	invoices, err := d.repository.ListInvoices(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("could not list invoices: %w", err)
	}
	return invoices, nil
}

func (d defaultService) ApplyPayment(ctx context.Context, id string, request PaymentRequest) (*Invoice, error) {
	request.Amount = request.Amount.Round(moneyPlaces)
	request.PaymentMethod = strings.TrimSpace(request.PaymentMethod)
	var updated Invoice
	err := d.repository.WithinTransaction(ctx, func(ctx context.Context, repository Repository) error {
		invoice, err := repository.LockInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("could not lock invoice %s: %w", id, err)
		}
		if invoice == nil {
			return apierrors.NotFound(ErrInvoiceNotFound)
		}
		if err = request.Validate(*invoice); err != nil {
			return err
		}
		updated = ApplyPayment(*invoice, request.Amount, request.PaymentMethod, d.now().UTC())
		if err = repository.SavePayment(ctx, updated); err != nil {
			return fmt.Errorf("could not save payment of invoice %s: %w", id, err)
		}
		if updated.Items, err = repository.FindItems(ctx, id); err != nil {
			return fmt.Errorf("could not find items of invoice %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.InvoicePayments.WithLabelValues(string(updated.Status)).Inc()
	return &updated, nil
}
