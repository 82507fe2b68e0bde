// Package reports contains the administrative summaries of appointments and billing.
package reports

import (
	"context"
	"fmt"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/civil"
	"hospital-management/internal/database"
	"time"

	"github.com/shopspring/decimal"
)

// Service determines the methods used to build reports.
type Service interface {

	// Summary aggregates appointments and invoices between from and to, inclusive. Zero dates
	// default to the first day of the current month and to today.
	Summary(ctx context.Context, from, to civil.Date) (*Summary, error)
}

type defaultService struct {
	repository Repository
	now        func() time.Time
}

// NewService creates a new reports service.
func NewService(dbConn database.Connection) Service {
	return &defaultService{repository: newRepository(dbConn), now: time.Now}
}

func (d defaultService) Summary(ctx context.Context, from, to civil.Date) (*Summary, error) {
	today := civil.DateOf(d.now())
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = civil.Date{Year: to.Year, Month: to.Month, Day: 1}
	}
	if to.Before(from) {
		return nil, apierrors.NewValidationError("to", "must not be before from")
	}
	counts, err := d.repository.CountAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("could not count appointments: %w", err)
	}
	totals, err := d.repository.SumInvoices(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("could not sum invoices: %w", err)
	}
	summary := &Summary{
		From:         from,
		To:           to,
		Appointments: make(map[string]int, len(counts)),
		Invoices: InvoiceSummary{
			Count:     make(map[string]int, len(totals)),
			Billed:    decimal.Zero,
			Collected: decimal.Zero,
		},
	}
	for _, count := range counts {
		summary.Appointments[count.Status] = count.Count
	}
	for _, total := range totals {
		summary.Invoices.Count[total.Status] = total.Count
		summary.Invoices.Billed = summary.Invoices.Billed.Add(total.Billed)
		summary.Invoices.Collected = summary.Invoices.Collected.Add(total.Collected)
	}
	summary.Invoices.Outstanding = summary.Invoices.Billed.Sub(summary.Invoices.Collected)
	return summary, nil
}
