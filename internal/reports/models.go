package reports

import (
	"encoding/json"
	"hospital-management/internal/civil"

	"github.com/shopspring/decimal"
)

type statusCount struct {
	Status string `dbfield:"status"`
	Count  int    `dbfield:"count"`
}

type invoiceTotals struct {
	Status    string          `dbfield:"status"`
	Count     int             `dbfield:"count"`
	Billed    decimal.Decimal `dbfield:"billed"`
	Collected decimal.Decimal `dbfield:"collected"`
}

type InvoiceSummary struct {
	Count       map[string]int  `json:"count"`
	Billed      decimal.Decimal `json:"billed"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// moneyPlaces is the number of decimal places of reported amounts.
const moneyPlaces = 2

// MarshalJSON writes monetary amounts with exactly two decimal places.
func (s InvoiceSummary) MarshalJSON() ([]byte, error) {
	type summary InvoiceSummary
	return json.Marshal(struct {
		summary
		Billed      string `json:"billed"`
		Collected   string `json:"collected"`
		Outstanding string `json:"outstanding"`
	}{
		summary:     summary(s),
		Billed:      s.Billed.StringFixed(moneyPlaces),
		Collected:   s.Collected.StringFixed(moneyPlaces),
		Outstanding: s.Outstanding.StringFixed(moneyPlaces),
	})
}

// Summary aggregates appointments by appointment date and invoices by issue date, both
// within [From, To].
type Summary struct {
	From         civil.Date     `json:"from"`
	To           civil.Date     `json:"to"`
	Appointments map[string]int `json:"appointments"`
	Invoices     InvoiceSummary `json:"invoices"`
}
