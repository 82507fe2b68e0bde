package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplyPayment returns the invoice with the payment added to its paid amount and its status
// derived from the new balance: paid once the paid amount reaches the total, pending
// otherwise. PaidAt is set to now only when the invoice becomes paid.
//
// The amount is not validated here. Callers must reject non positive amounts and amounts
// above the remaining balance before applying them.
func ApplyPayment(invoice Invoice, amount decimal.Decimal, method string, now time.Time) Invoice {
	invoice.PaidAmount = invoice.PaidAmount.Add(amount)
	invoice.PaymentMethod = &method
	if invoice.PaidAmount.GreaterThanOrEqual(invoice.TotalAmount) {
		invoice.Status = StatusPaid
		invoice.PaidAt = &now
	} else {
		invoice.Status = StatusPending
		invoice.PaidAt = nil
	}
	return invoice
}

// itemTotal computes quantity times unit price rounded to cents.
func itemTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(moneyPlaces)
}
