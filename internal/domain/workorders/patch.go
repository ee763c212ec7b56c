package workorders

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Opt is a patch field that distinguishes "absent" (Set false), "null" (Set and Null) and
// a value.
type Opt[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: v} }

func Null[T any]() Opt[T] { return Opt[T]{Set: true, Null: true} }

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns nil for null, a pointer to the value otherwise.
func (o Opt[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

type Patch struct {
	Status              Opt[string]          `json:"status"`
	Notes               Opt[string]          `json:"notes"`
	DeliveryCharged     Opt[decimal.Decimal] `json:"delivery_charged"`
	OutstandingBalance  Opt[decimal.Decimal] `json:"outstanding_balance"`
	EstimatedCompletion Opt[string]          `json:"estimated_completion"`
	Important           Opt[bool]            `json:"important_flag"`

	Items         []ItemPatch `json:"items"`
	AddItems      []ItemInput `json:"add_items"`
	DeleteItemIDs []int64     `json:"delete_item_ids"`
}

type ItemPatch struct {
	ID               int64                `json:"workorder_items_id"`
	TechnicianID     Opt[string]          `json:"technician_id"`
	Status           Opt[string]          `json:"status"`
	WorkshopDuration Opt[string]          `json:"workshop_duration"`
	SerialNumber     Opt[string]          `json:"item_sn"`
	SellingPrice     Opt[decimal.Decimal] `json:"selling_price"`
}

// WorkorderChanges is the set of columns one update writes. A nil pointer or unset Opt
// leaves the column alone.
type WorkorderChanges struct {
	Status              *Status
	Notes               *string
	DeliveryCharged     *decimal.Decimal
	OutstandingBalance  *decimal.Decimal
	EstimatedCompletion Opt[time.Time]
	Important           *bool
}

func (c WorkorderChanges) Empty() bool {
	return c.Status == nil && c.Notes == nil && c.DeliveryCharged == nil &&
		c.OutstandingBalance == nil && !c.EstimatedCompletion.Set && c.Important == nil
}

type ItemChanges struct {
	TechnicianID      *string
	Status            *ItemStatus
	WorkshopDuration  Opt[string]
	WorkshopEnteredAt Opt[time.Time]
	SerialNumber      Opt[string]
	SellingPrice      Opt[decimal.Decimal]
}

func (c ItemChanges) Empty() bool {
	return c.TechnicianID == nil && c.Status == nil && !c.WorkshopDuration.Set &&
		!c.WorkshopEnteredAt.Set && !c.SerialNumber.Set && !c.SellingPrice.Set
}

// Apply copies the changes onto it, mirroring what the store writes.
func (c ItemChanges) Apply(it *Item) {
	if c.TechnicianID != nil {
		it.TechnicianID = *c.TechnicianID
	}
	if c.Status != nil {
		it.Status = *c.Status
	}
	if c.WorkshopDuration.Set {
		it.WorkshopDuration = c.WorkshopDuration.Ptr()
	}
	if c.WorkshopEnteredAt.Set {
		it.WorkshopEnteredAt = c.WorkshopEnteredAt.Ptr()
	}
	if c.SerialNumber.Set {
		it.SerialNumber = c.SerialNumber.Ptr()
	}
	if c.SellingPrice.Set {
		it.SellingPrice = c.SellingPrice.Ptr()
	}
}

func (c WorkorderChanges) Apply(w *Workorder) {
	if c.Status != nil {
		w.Status = *c.Status
	}
	if c.Notes != nil {
		w.Notes = *c.Notes
	}
	if c.DeliveryCharged != nil {
		w.DeliveryCharged = *c.DeliveryCharged
	}
	if c.OutstandingBalance != nil {
		w.OutstandingBalance = *c.OutstandingBalance
	}
	if c.EstimatedCompletion.Set {
		w.EstimatedCompletion = c.EstimatedCompletion.Ptr()
	}
	if c.Important != nil {
		w.Important = *c.Important
	}
}
