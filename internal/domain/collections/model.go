package collections

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusToBeBooked Status = "To Be Booked"
	StatusBooked     Status = "Booked for Collection"
	StatusCompleted  Status = "Collection Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToBeBooked, StatusBooked, StatusCompleted:
		return true
	}
	return false
}

// Collection is an inbound pickup of goods from a customer.
type Collection struct {
	ID           int64           `json:"collection_id"`
	InvoiceID    string          `json:"invoice_id"`
	CustomerID   int64           `json:"customer_id"`
	Suburb       string          `json:"pickup_suburb"`
	State        string          `json:"pickup_state"`
	Charged      decimal.Decimal `json:"collection_charged"`
	RemovalistID *int64          `json:"removalist_id"`
	Date         *time.Time      `json:"collection_date"`
	Status       Status          `json:"collection_status"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"date_created"`
}

func (c Collection) Missing() []string {
	var out []string
	if strings.TrimSpace(c.InvoiceID) == "" {
		out = append(out, "invoice_id")
	}
	if c.CustomerID <= 0 {
		out = append(out, "customer_id")
	}
	return out
}
