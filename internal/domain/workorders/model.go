package workorders

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
)

type Status string

const (
	StatusWorkOrdered Status = "Work Ordered"
	StatusCompleted   Status = "Completed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusWorkOrdered, StatusCompleted:
		return st, nil
	}
	return "", invalid("status", "unknown work order status %q", s)
}

type ItemStatus string

const (
	ItemNotInWorkshop ItemStatus = "Not in Workshop"
	ItemInWorkshop    ItemStatus = "In Workshop"
	ItemCompleted     ItemStatus = "Completed"
	ItemCanceled      ItemStatus = "Canceled"
)

func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(strings.TrimSpace(s)); st {
	case ItemNotInWorkshop, ItemInWorkshop, ItemCompleted, ItemCanceled:
		return st, nil
	}
	return "", invalid("status", "unknown item status %q", s)
}

type Workorder struct {
	ID                  int64           `json:"workorder_id"`
	InvoiceID           string          `json:"invoice_id"`
	CustomerID          int64           `json:"customer_id"`
	Salesperson         string          `json:"salesperson"`
	DeliverySuburb      string          `json:"delivery_suburb"`
	DeliveryState       string          `json:"delivery_state"`
	DeliveryCharged     decimal.Decimal `json:"delivery_charged"`
	LeadTime            string          `json:"lead_time"`
	EstimatedCompletion *time.Time      `json:"estimated_completion"`
	Notes               string          `json:"notes"`
	Status              Status          `json:"status"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance"`
	Important           bool            `json:"important_flag"`
	CreatedAt           time.Time       `json:"date_created"`
}

type Item struct {
	ID                int64            `json:"workorder_items_id"`
	WorkorderID       int64            `json:"workorder_id"`
	ProductID         string           `json:"product_id"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Condition         string           `json:"condition"`
	TechnicianID      string           `json:"technician_id"`
	Status            ItemStatus       `json:"status"`
	WorkshopDuration  *string          `json:"workshop_duration"`
	WorkshopEnteredAt *time.Time       `json:"workshop_entered_at"`
	SerialNumber      *string          `json:"item_sn"`
	SellingPrice      *decimal.Decimal `json:"selling_price,omitempty"`
}

// View is a work order as returned to callers: items exclude Canceled lines and the
// activity log is newest first.
type View struct {
	Workorder
	CustomerName string           `json:"customer_name"`
	Items        []Item           `json:"items"`
	Logs         []auditlog.Entry `json:"logs"`
}

type Summary struct {
	Workorder
	CustomerName string   `json:"customer_name"`
	ItemsTotal   int      `json:"items_total"`
	ItemsDone    int      `json:"items_done"`
	Technicians  []string `json:"technicians"`
}

type Payment string

const (
	PaymentAny  Payment = ""
	PaymentPaid Payment = "paid"
	PaymentDue  Payment = "due"
)

type Filter struct {
	Status      string
	State       string
	Salesperson string
	Payment     Payment
	Technician  string
}

func (f Filter) Validate() error {
	if f.Status != "" {
		if _, err := ParseStatus(f.Status); err != nil {
			return err
		}
	}
	switch f.Payment {
	case PaymentAny, PaymentPaid, PaymentDue:
	default:
		return invalid("payment", "payment must be paid or due, got %q", f.Payment)
	}
	return nil
}

type ItemInput struct {
	ProductID        string           `json:"product_id"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Condition        string           `json:"condition"`
	TechnicianID     string           `json:"technician_id"`
	Status           string           `json:"status"`
	WorkshopDuration *string          `json:"workshop_duration"`
	SerialNumber     *string          `json:"item_sn"`
	SellingPrice     *decimal.Decimal `json:"selling_price"`
}

type CreateInput struct {
	InvoiceID           string           `json:"invoice_id"`
	CustomerID          int64            `json:"customer_id"`
	Salesperson         string           `json:"salesperson"`
	DeliverySuburb      string           `json:"delivery_suburb"`
	DeliveryState       string           `json:"delivery_state"`
	DeliveryCharged     decimal.Decimal  `json:"delivery_charged"`
	LeadTime            string           `json:"lead_time"`
	EstimatedCompletion *string          `json:"estimated_completion"`
	Notes               string           `json:"notes"`
	OutstandingBalance  *decimal.Decimal `json:"outstanding_balance"`
	Important           bool             `json:"important_flag"`
	Items               []ItemInput      `json:"items"`
}

var ErrNotFound = errors.New("workorders: not found")

// ValidationError is a client mistake: a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var technicianRe = regexp.MustCompile(`^[A-Z0-9]{2}$`)

// NormalizeTechnician upper-cases and trims id; the result must be a 2-char code.
func NormalizeTechnician(id string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(id))
	if t == "" {
		return "", invalid("technician_id", "technician_id is required")
	}
	if !technicianRe.MatchString(t) {
		return "", invalid("technician_id", "technician_id %q must be 2 letters or digits", id)
	}
	return t, nil
}

const dateLayout = "2006-01-02"

func parseDate(field, s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, invalid(field, "%q is not a date (YYYY-MM-DD)", s)
}

var leadTimeRe = regexp.MustCompile(`\d+`)

// LeadTimeWeeks returns the first integer in a lead-time label ("6 weeks" is 6). ok is
// false when there is none or it is not positive.
func LeadTimeWeeks(label string) (int, bool) {
	m := leadTimeRe.FindString(label)
	if m == "" {
		return 0, false
	}
	n := 0
	for _, r := range m {
		n = n*10 + int(r-'0')
		if n > 520 {
			return 0, false
		}
	}
	return n, n > 0
}

// EstimateCompletion is today (in loc) plus the label's week count.
func EstimateCompletion(label string, now time.Time, loc *time.Location) *time.Time {
	weeks, ok := LeadTimeWeeks(label)
	if !ok {
		return nil
	}
	y, m, d := now.In(loc).Date()
	t := time.Date(y, m, d+weeks*7, 0, 0, 0, 0, loc)
	return &t
}

type progress struct{ done, total int }

func (p progress) allCompleted() bool { return p.total > 0 && p.done == p.total }

func countProgress(items []*Item) progress {
	var p progress
	for _, it := range items {
		if it.Status == ItemCanceled {
			continue
		}
		p.total++
		if it.Status == ItemCompleted {
			p.done++
		}
	}
	return p
}
