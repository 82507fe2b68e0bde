package reports

import (
	"context"
	"hospital-management/internal/civil"
	"hospital-management/internal/database"
)

const (
	appointmentsByStatusQuery = "SELECT status, COUNT(*) AS count FROM tb_appointment WHERE date BETWEEN $1 AND $2 GROUP BY status"
	invoicesByStatusQuery     = "SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS billed, COALESCE(SUM(paid_amount), 0) AS collected FROM tb_invoice WHERE issue_date BETWEEN $1 AND $2 GROUP BY status"
)

// Repository provides the aggregates used by reports.
type Repository interface {

	// CountAppointments counts appointments per status within the given dates.
	CountAppointments(ctx context.Context, from, to civil.Date) ([]*statusCount, error)

	// SumInvoices sums invoice amounts per status within the given issue dates.
	SumInvoices(ctx context.Context, from, to civil.Date) ([]*invoiceTotals, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) CountAppointments(ctx context.Context, from, to civil.Date) ([]*statusCount, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, appointmentsByStatusQuery, from, to)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	counts := make([]*statusCount, 0)
	for rows.Next() {
		count := new(statusCount)
		if err = database.TransformRow(rows, count); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

func (d defaultRepository) SumInvoices(ctx context.Context, from, to civil.Date) ([]*invoiceTotals, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, invoicesByStatusQuery, from, to)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	totals := make([]*invoiceTotals, 0)
	for rows.Next() {
		total := new(invoiceTotals)
		if err = database.TransformRow(rows, total); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}
