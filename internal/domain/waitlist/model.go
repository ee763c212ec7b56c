package waitlist

import "time"

type Status string

const (
	StatusWaiting  Status = "Waiting"
	StatusNotified Status = "Notified"
	StatusClosed   Status = "Closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusNotified, StatusClosed:
		return true
	}
	return false
}

// Entry is a customer waiting for a brand or a specific product to come into stock.
type Entry struct {
	ID           int64     `json:"waitlist_id"`
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	BrandID      *int64    `json:"brand_id"`
	ProductID    *string   `json:"product_id"`
	Notes        string    `json:"notes"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"date_created"`
}

func (e Entry) Missing() []string {
	if e.CustomerID <= 0 {
		return []string{"customer_id"}
	}
	return nil
}
