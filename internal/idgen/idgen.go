// Package idgen generates human readable sequential identifiers such as P001 or INV012.
package idgen

import (
	"context"
	"fmt"
	"hospital-management/internal/database"
	"regexp"
	"strconv"
)

const (
	PatientPrefix     = "P"
	DoctorPrefix      = "D"
	AppointmentPrefix = "A"
	InvoicePrefix     = "INV"
)

const lockQuery = "SELECT pg_advisory_xact_lock(hashtext($1))"

// tables holds the table owning each prefix. Table names never come from user input.
var tables = map[string]string{
	PatientPrefix:     "tb_patient",
	DoctorPrefix:      "tb_doctor",
	AppointmentPrefix: "tb_appointment",
	InvoicePrefix:     "tb_invoice",
}

// Next returns the identifier following the highest numeric suffix among the existing
// identifiers with the given prefix, zero padded to at least three digits. Identifiers that
// do not match <prefix><digits> are ignored and gaps left by deleted rows are not refilled.
func Next(prefix string, existing []string) string {
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "([0-9]+)$")
	var highest uint64
	for _, id := range existing {
		match := pattern.FindStringSubmatch(id)
		if match == nil {
			continue
		}
		n, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

// ListQuery returns the statement listing the identifiers of the given prefix.
func ListQuery(prefix string) (string, error) {
	table, ok := tables[prefix]
	if !ok {
		return "", fmt.Errorf("unknown identifier prefix %q", prefix)
	}
	return fmt.Sprintf("SELECT id FROM %s WHERE id ~ $1", table), nil
}

// Generate computes the next identifier for the prefix. It must run inside the transaction
// that inserts the row: the advisory lock taken here is held until that transaction ends,
// so concurrent creations of the same entity are serialized.
func Generate(ctx context.Context, q database.Querier, prefix string) (string, error) {
	query, err := ListQuery(prefix)
	if err != nil {
		return "", err
	}
	if _, err = q.ExecContext(ctx, lockQuery, prefix); err != nil {
		return "", fmt.Errorf("could not lock %s sequence: %w", prefix, err)
	}
	rows, err := q.QueryContext(ctx, query, "^"+prefix+"[0-9]+$")
	if err != nil {
		return "", fmt.Errorf("could not list %s identifiers: %w", prefix, err)
	}
	defer database.CloseRows(rows)
	existing := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return "", err
		}
		existing = append(existing, id)
	}
	if err = rows.Err(); err != nil {
		return "", err
	}
	return Next(prefix, existing), nil
}
