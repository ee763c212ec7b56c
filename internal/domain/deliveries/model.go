package deliveries

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusToBeBooked Status = "To Be Booked"
	StatusBooked     Status = "Booked for Delivery"
	StatusCompleted  Status = "Delivery Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToBeBooked, StatusBooked, StatusCompleted:
		return true
	}
	return false
}

type Delivery struct {
	ID           int64           `json:"delivery_id"`
	InvoiceID    string          `json:"invoice_id"`
	CustomerID   int64           `json:"customer_id"`
	Suburb       string          `json:"delivery_suburb"`
	State        string          `json:"delivery_state"`
	Charged      decimal.Decimal `json:"delivery_charged"`
	Quoted       decimal.Decimal `json:"delivery_quoted"`
	RemovalistID *int64          `json:"removalist_id"`
	Date         *time.Time      `json:"delivery_date"`
	Status       Status          `json:"delivery_status"`
	Notes        string          `json:"notes"`
	WorkorderID  *int64          `json:"workorder_id"`
	CreatedAt    time.Time       `json:"date_created"`
}

// Missing lists required fields that are empty.
func (d Delivery) Missing() []string {
	var out []string
	if strings.TrimSpace(d.InvoiceID) == "" {
		out = append(out, "invoice_id")
	}
	if d.CustomerID <= 0 {
		out = append(out, "customer_id")
	}
	return out
}
