package billing

import (
	"encoding/json"
	"hospital-management/internal/apierrors"
	"hospital-management/internal/civil"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Valid reports whether the status is one of the known invoice statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// moneyPlaces is the number of decimal places kept for monetary amounts.
const moneyPlaces = 2

type Invoice struct {
	ID            string          `json:"id" dbfield:"id"`
	PatientID     string          `json:"patientId" dbfield:"patient_id"`
	IssueDate     civil.Date      `json:"issueDate" dbfield:"issue_date"`
	DueDate       civil.Date      `json:"dueDate" dbfield:"due_date"`
	TotalAmount   decimal.Decimal `json:"totalAmount" dbfield:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paidAmount" dbfield:"paid_amount"`
	Status        Status          `json:"status" dbfield:"status"`
	PaymentMethod *string         `json:"paymentMethod,omitempty" dbfield:"payment_method"`
	PaidAt        *time.Time      `json:"paidAt" dbfield:"paid_at"`
	CreatedAt     time.Time       `json:"createdAt" dbfield:"created_at"`
	Items         []*InvoiceItem  `json:"items,omitempty"`
}

// Balance returns the amount still owed.
func (i Invoice) Balance() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}

// MarshalJSON writes monetary amounts with exactly two decimal places.
func (i Invoice) MarshalJSON() ([]byte, error) {
	type invoice Invoice
	return json.Marshal(struct {
		invoice
		TotalAmount string `json:"totalAmount"`
		PaidAmount  string `json:"paidAmount"`
	}{
		invoice:     invoice(i),
		TotalAmount: i.TotalAmount.StringFixed(moneyPlaces),
		PaidAmount:  i.PaidAmount.StringFixed(moneyPlaces),
	})
}

type InvoiceItem struct {
	ID          string          `json:"id" dbfield:"id"`
	InvoiceID   string          `json:"invoiceId" dbfield:"invoice_id"`
	Description string          `json:"description" dbfield:"description"`
	Category    string          `json:"category" dbfield:"category"`
	Quantity    int             `json:"quantity" dbfield:"quantity"`
	Price       decimal.Decimal `json:"price" dbfield:"price"`
	Total       decimal.Decimal `json:"total" dbfield:"total"`
}

// MarshalJSON writes monetary amounts with exactly two decimal places.
func (i InvoiceItem) MarshalJSON() ([]byte, error) {
	type item InvoiceItem
	return json.Marshal(struct {
		item
		Price string `json:"price"`
		Total string `json:"total"`
	}{
		item:  item(i),
		Price: i.Price.StringFixed(moneyPlaces),
		Total: i.Total.StringFixed(moneyPlaces),
	})
}

type ItemRequest struct {
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// InvoiceRequest holds the fields clients send to issue an invoice. IssueDate defaults to
// the current date.
type InvoiceRequest struct {
	PatientID string         `json:"patientId"`
	IssueDate civil.Date     `json:"issueDate"`
	DueDate   civil.Date     `json:"dueDate"`
	Items     []*ItemRequest `json:"items"`
}

// Validate checks if the given request is valid.
func (r InvoiceRequest) Validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return apierrors.NewValidationError("patientId", "required")
	}
	if r.DueDate.IsZero() {
		return apierrors.NewValidationError("dueDate", "required")
	}
	if !r.IssueDate.IsZero() && r.DueDate.Before(r.IssueDate) {
		return apierrors.NewValidationError("dueDate", "must not be before the issue date")
	}
	if len(r.Items) == 0 {
		return apierrors.NewValidationError("items", "at least one item is required")
	}
	for _, item := range r.Items {
		if item == nil || strings.TrimSpace(item.Description) == "" {
			return apierrors.NewValidationError("items.description", "required")
		}
		if item.Quantity <= 0 {
			return apierrors.NewValidationError("items.quantity", "must be positive")
		}
		if item.Price.IsNegative() {
			return apierrors.NewValidationError("items.price", "must not be negative")
		}
	}
	return nil
}

type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// Validate checks the payment against the invoice it will be applied to. The amount must be
// positive and must not exceed the remaining balance.
func (p PaymentRequest) Validate(invoice Invoice) error {
	if !p.Amount.IsPositive() {
		return apierrors.NewValidationError("amount", "must be positive")
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		return apierrors.NewValidationError("paymentMethod", "required")
	}
	if p.Amount.GreaterThan(invoice.Balance()) {
		return apierrors.NewValidationError("amount", "exceeds the remaining balance of "+invoice.Balance().StringFixed(moneyPlaces))
	}
	return nil
}

// Filter narrows invoice listings. Empty fields are ignored.
type Filter struct {
	PatientID string
	Status    Status
}
