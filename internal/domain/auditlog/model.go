package auditlog

import "time"

type Event string

const (
	WorkorderCreated       Event = "WORKORDER_CREATED"
	WorkorderStatusChanged Event = "WORKORDER_STATUS_CHANGED"
	WorkorderCompleted     Event = "WORKORDER_COMPLETED"
	WorkorderFlagChanged   Event = "WORKORDER_FLAG_CHANGED"
	NoteAdded              Event = "NOTE_ADDED"
	PaymentUpdated         Event = "PAYMENT_UPDATED"
	ItemAdded              Event = "ITEM_ADDED"
	ItemRemoved            Event = "ITEM_REMOVED"
	ItemStatusChanged      Event = "ITEM_STATUS_CHANGED"
	DeliveryOrderCreated   Event = "DELIVERY_ORDER_CREATED"
	DeliveryBooked         Event = "DELIVERY_BOOKED"
	OrderDispatched        Event = "ORDER_DISPATCHED"
	DeliveryCreated        Event = "DELIVERY_CREATED"
)

var knownEvents = map[Event]struct{}{
	WorkorderCreated: {}, WorkorderStatusChanged: {}, WorkorderCompleted: {},
	WorkorderFlagChanged: {}, NoteAdded: {}, PaymentUpdated: {}, ItemAdded: {},
	ItemRemoved: {}, ItemStatusChanged: {}, DeliveryOrderCreated: {}, DeliveryBooked: {},
	OrderDispatched: {}, DeliveryCreated: {},
}

func (e Event) Valid() bool {
	_, ok := knownEvents[e]
	return ok
}

// AccountEvent is a session or account change written by the auth component.
type AccountEvent string

const (
	Login           AccountEvent = "LOGIN"
	LoginFailed     AccountEvent = "LOGIN_FAILED"
	Logout          AccountEvent = "LOGOUT"
	PasswordChanged AccountEvent = "PASSWORD_CHANGED"
)

// UnknownActor is written when a request carries no usable actor code.
const UnknownActor = "NA"

type Entry struct {
	ID          int64     `json:"id"`
	WorkorderID int64     `json:"workorder_id"`
	ItemID      *int64    `json:"workorder_items_id,omitempty"`
	Event       Event     `json:"event_type"`
	Actor       string    `json:"user_id"`
	ItemStatus  *string   `json:"item_status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type AccountEntry struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Event     AccountEvent `json:"event_type"`
	CreatedAt time.Time    `json:"created_at"`
}
