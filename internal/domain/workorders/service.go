package workorders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/infra/metrics"
)

// Tx is the transactional view of the store. Every write of one engine operation goes
// through a single Tx; LockWorkorder and LockItems hold row locks until it ends.
type Tx interface {
	inventory.Store
	auditlog.Store

	CustomerExists(ctx context.Context, id int64) (bool, error)
	LockWorkorder(ctx context.Context, id int64) (Workorder, error)
	LockItems(ctx context.Context, workorderID int64) ([]Item, error)
	InsertWorkorder(ctx context.Context, w Workorder) (int64, error)
	UpdateWorkorder(ctx context.Context, id int64, c WorkorderChanges) error
	InsertItem(ctx context.Context, it Item) (int64, error)
	UpdateItem(ctx context.Context, id int64, c ItemChanges) error
	DeleteItems(ctx context.Context, workorderID int64) error
	DeleteWorkorder(ctx context.Context, id int64) error
	InsertDelivery(ctx context.Context, d deliveries.Delivery) (int64, error)
}

type Store interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id int64) (View, error)
	List(ctx context.Context, f Filter) ([]Summary, error)
}

type Notifier interface {
	DeliveryCreated(ctx context.Context, d deliveries.Delivery) error
}

type Service struct {
	store  Store
	notify Notifier
	log    *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notify = n } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   slog.Default(),
		loc:   time.UTC,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Summary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, f)
}

// Create persists a work order and its items, debiting stock for each catalogue line.
func (s *Service) Create(ctx context.Context, actor string, in CreateInput) (View, error) {
	w, err := s.newWorkorder(in)
	if err != nil {
		metrics.ObserveOp("create", err)
		return View{}, err
	}

	var id int64
	err = s.store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.CustomerExists(ctx, w.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: customer %d", ErrNotFound, w.CustomerID)
		}

		if id, err = tx.InsertWorkorder(ctx, w); err != nil {
			return err
		}
		for i, raw := range in.Items {
			it, err := s.newItem(fmt.Sprintf("items[%d]", i), id, raw)
			if err != nil {
				return err
			}
			if _, err := s.insertItem(ctx, tx, it); err != nil {
				return err
			}
		}
		return record(ctx, tx, actor, id, auditlog.WorkorderCreated, nil)
	})
	metrics.ObserveOp("create", err)
	if err != nil {
		return View{}, err
	}
	return s.reload(ctx, "create", id), nil
}

// Update applies p to work order id and returns the reloaded view.
func (s *Service) Update(ctx context.Context, id int64, actor string, p Patch) (View, error) {
	var cascaded *deliveries.Delivery
	err := s.store.InTx(ctx, func(tx Tx) error {
		wo, err := tx.LockWorkorder(ctx, id)
		if err != nil {
			return err
		}
		locked, err := tx.LockItems(ctx, id)
		if err != nil {
			return err
		}
		items := make([]*Item, len(locked))
		byID := make(map[int64]*Item, len(locked))
		for i := range locked {
			items[i] = &locked[i]
			byID[locked[i].ID] = &locked[i]
		}
		loaded := wo.Status
		before := countProgress(items).allCompleted()

		var override *Status
		if p.Status.Set {
			if p.Status.Null {
				return invalid("status", "status cannot be null")
			}
			st, err := ParseStatus(p.Status.Value)
			if err != nil {
				return err
			}
			// re-sending the loaded status is not an override
			if st != loaded {
				override = &st
			}
		}

		changes, err := s.scalarChanges(ctx, tx, actor, &wo, p)
		if err != nil {
			return err
		}

		for i, ip := range p.Items {
			it, ok := byID[ip.ID]
			if !ok {
				return fmt.Errorf("%w: item %d in work order %d", ErrNotFound, ip.ID, id)
			}
			if err := s.patchItem(ctx, tx, actor, fmt.Sprintf("items[%d]", i), it, ip); err != nil {
				return err
			}
		}

		for i, raw := range p.AddItems {
			it, err := s.newItem(fmt.Sprintf("add_items[%d]", i), id, raw)
			if err != nil {
				return err
			}
			if it, err = s.insertItem(ctx, tx, it); err != nil {
				return err
			}
			items = append(items, &it)
			byID[it.ID] = &it
			if err := record(ctx, tx, actor, id, auditlog.ItemAdded, &it); err != nil {
				return err
			}
		}

		for _, itemID := range p.DeleteItemIDs {
			it, ok := byID[itemID]
			if !ok {
				return fmt.Errorf("%w: item %d in work order %d", ErrNotFound, itemID, id)
			}
			if err := s.removeItem(ctx, tx, actor, it); err != nil {
				return err
			}
		}

		after := countProgress(items).allCompleted()
		status := wo.Status
		reverting := override != nil && *override == StatusWorkOrdered
		if after && status != StatusCompleted && !reverting {
			status = StatusCompleted
			if err := record(ctx, tx, actor, id, auditlog.WorkorderStatusChanged, nil); err != nil {
				return err
			}
			if err := record(ctx, tx, actor, id, auditlog.WorkorderCompleted, nil); err != nil {
				return err
			}
		}

		final := status
		if override != nil {
			final = *override
		}
		explicitCompletion := override != nil && *override == StatusCompleted
		if final == StatusCompleted && ((!before && after) || explicitCompletion) {
			d := deliveryFor(wo)
			if d.ID, err = tx.InsertDelivery(ctx, d); err != nil {
				return err
			}
			if err := record(ctx, tx, actor, id, auditlog.DeliveryOrderCreated, nil); err != nil {
				return err
			}
			cascaded = &d
		}

		// auto-completion already logged the change when it landed on the same status
		if override != nil && *override != loaded {
			if *override != status {
				if err := record(ctx, tx, actor, id, auditlog.WorkorderStatusChanged, nil); err != nil {
					return err
				}
			}
			status = *override
		}
		if status != loaded {
			changes.Status = &status
		}
		if changes.Empty() {
			return nil
		}
		return tx.UpdateWorkorder(ctx, id, changes)
	})
	metrics.ObserveOp("update", err)
	if err != nil {
		return View{}, err
	}

	if cascaded != nil {
		metrics.DeliveriesCascaded.Inc()
		s.announce(ctx, *cascaded)
	}
	return s.reload(ctx, "update", id), nil
}

// reload reads back a committed work order. The write stands even when the read fails, so
// the caller still gets the id.
func (s *Service) reload(ctx context.Context, op string, id int64) View {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		s.log.Warn("reload after commit failed", "op", op, "workorder_id", id, "err", err)
		return View{Workorder: Workorder{ID: id}, Items: []Item{}, Logs: []auditlog.Entry{}}
	}
	return v
}

// Delete restocks every live item, then removes the items and the work order. Deliveries
// that point at it are left in place.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockWorkorder(ctx, id); err != nil {
			return err
		}
		items, err := tx.LockItems(ctx, id)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Status == ItemCanceled || !inventory.Tracked(it.ProductID) {
				continue
			}
			if err := restock(ctx, tx, it); err != nil {
				return err
			}
		}
		if err := tx.DeleteItems(ctx, id); err != nil {
			return err
		}
		return tx.DeleteWorkorder(ctx, id)
	})
	metrics.ObserveOp("delete", err)
	return err
}

func (s *Service) newWorkorder(in CreateInput) (Workorder, error) {
	w := Workorder{
		InvoiceID:       strings.TrimSpace(in.InvoiceID),
		CustomerID:      in.CustomerID,
		Salesperson:     strings.TrimSpace(in.Salesperson),
		DeliverySuburb:  strings.TrimSpace(in.DeliverySuburb),
		DeliveryState:   strings.TrimSpace(in.DeliveryState),
		DeliveryCharged: in.DeliveryCharged,
		LeadTime:        strings.TrimSpace(in.LeadTime),
		Notes:           in.Notes,
		Status:          StatusWorkOrdered,
		Important:       in.Important,
	}
	switch {
	case w.InvoiceID == "":
		return w, invalid("invoice_id", "invoice_id is required")
	case w.CustomerID <= 0:
		return w, invalid("customer_id", "customer_id is required")
	case w.Salesperson == "":
		return w, invalid("salesperson", "salesperson is required")
	case w.DeliveryState == "":
		return w, invalid("delivery_state", "delivery_state is required")
	case w.LeadTime == "":
		return w, invalid("lead_time", "lead_time is required")
	case in.OutstandingBalance == nil:
		return w, invalid("outstanding_balance", "outstanding_balance is required")
	case in.OutstandingBalance.IsNegative():
		return w, invalid("outstanding_balance", "outstanding_balance must not be negative")
	case w.DeliveryCharged.IsNegative():
		return w, invalid("delivery_charged", "delivery_charged must not be negative")
	}
	w.OutstandingBalance = *in.OutstandingBalance

	if in.EstimatedCompletion != nil && strings.TrimSpace(*in.EstimatedCompletion) != "" {
		t, err := parseDate("estimated_completion", *in.EstimatedCompletion, s.loc)
		if err != nil {
			return w, err
		}
		w.EstimatedCompletion = &t
	} else {
		w.EstimatedCompletion = EstimateCompletion(w.LeadTime, s.now(), s.loc)
	}
	return w, nil
}

func (s *Service) newItem(field string, workorderID int64, in ItemInput) (Item, error) {
	it := Item{
		WorkorderID:      workorderID,
		ProductID:        strings.TrimSpace(in.ProductID),
		Quantity:         in.Quantity,
		Condition:        strings.TrimSpace(in.Condition),
		Status:           ItemNotInWorkshop,
		WorkshopDuration: in.WorkshopDuration,
		SerialNumber:     in.SerialNumber,
		SellingPrice:     in.SellingPrice,
	}
	if it.ProductID == "" {
		return it, invalid(field+".product_id", "product_id is required")
	}
	if !it.Quantity.IsPositive() {
		return it, invalid(field+".quantity", "quantity must be positive")
	}
	tech, err := NormalizeTechnician(in.TechnicianID)
	if err != nil {
		return it, prefix(field, err)
	}
	it.TechnicianID = tech

	if strings.TrimSpace(in.Status) != "" {
		st, err := ParseItemStatus(in.Status)
		if err != nil {
			return it, prefix(field, err)
		}
		if st == ItemCanceled {
			return it, invalid(field+".status", "an item cannot be created canceled")
		}
		it.Status = st
	}
	if it.Status == ItemInWorkshop {
		now := s.now()
		it.WorkshopEnteredAt = &now
	}
	if it.SellingPrice != nil && it.SellingPrice.IsNegative() {
		return it, invalid(field+".selling_price", "selling_price must not be negative")
	}
	return it, nil
}

// insertItem debits stock for a catalogue line and persists it.
func (s *Service) insertItem(ctx context.Context, tx Tx, it Item) (Item, error) {
	if inventory.Tracked(it.ProductID) {
		adj, err := inventory.Debit(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return it, err
		}
		metrics.StockAdjustments.WithLabelValues(string(adj.Direction())).Inc()
	}
	id, err := tx.InsertItem(ctx, it)
	if err != nil {
		return it, err
	}
	it.ID = id
	return it, nil
}

// scalarChanges diffs the top-level fields of p against w, logging the categories that
// carry an event, and applies them to w in memory.
func (s *Service) scalarChanges(ctx context.Context, tx Tx, actor string, w *Workorder, p Patch) (WorkorderChanges, error) {
	var c WorkorderChanges
	var events []auditlog.Event

	if p.Notes.Set {
		notes := p.Notes.Value
		if notes != w.Notes {
			c.Notes = &notes
			events = append(events, auditlog.NoteAdded)
		}
	}
	if p.DeliveryCharged.Set {
		v := p.DeliveryCharged.Value
		if p.DeliveryCharged.Null {
			v = decimal.Zero
		}
		if v.IsNegative() {
			return c, invalid("delivery_charged", "delivery_charged must not be negative")
		}
		if !v.Equal(w.DeliveryCharged) {
			c.DeliveryCharged = &v
		}
	}
	if p.OutstandingBalance.Set {
		if p.OutstandingBalance.Null {
			return c, invalid("outstanding_balance", "outstanding_balance cannot be null")
		}
		v := p.OutstandingBalance.Value
		if v.IsNegative() {
			return c, invalid("outstanding_balance", "outstanding_balance must not be negative")
		}
		if !v.Equal(w.OutstandingBalance) {
			c.OutstandingBalance = &v
			events = append(events, auditlog.PaymentUpdated)
		}
	}
	if p.EstimatedCompletion.Set {
		if p.EstimatedCompletion.Null || strings.TrimSpace(p.EstimatedCompletion.Value) == "" {
			if w.EstimatedCompletion != nil {
				c.EstimatedCompletion = Null[time.Time]()
			}
		} else {
			t, err := parseDate("estimated_completion", p.EstimatedCompletion.Value, s.loc)
			if err != nil {
				return c, err
			}
			if w.EstimatedCompletion == nil || !sameDay(*w.EstimatedCompletion, t) {
				c.EstimatedCompletion = Some(t)
			}
		}
	}
	if p.Important.Set {
		if p.Important.Null {
			return c, invalid("important_flag", "important_flag cannot be null")
		}
		if v := p.Important.Value; v != w.Important {
			c.Important = &v
			events = append(events, auditlog.WorkorderFlagChanged)
		}
	}

	for _, ev := range events {
		if err := record(ctx, tx, actor, w.ID, ev, nil); err != nil {
			return c, err
		}
	}
	c.Apply(w)
	return c, nil
}

func (s *Service) patchItem(ctx context.Context, tx Tx, actor, field string, it *Item, p ItemPatch) error {
	var c ItemChanges

	if p.TechnicianID.Set {
		if p.TechnicianID.Null || strings.TrimSpace(p.TechnicianID.Value) == "" {
			return invalid(field+".technician_id", "technician_id cannot be cleared")
		}
		tech, err := NormalizeTechnician(p.TechnicianID.Value)
		if err != nil {
			return prefix(field, err)
		}
		if tech != it.TechnicianID {
			c.TechnicianID = &tech
		}
	}

	statusChanged := false
	if p.Status.Set {
		if p.Status.Null {
			return invalid(field+".status", "status cannot be null")
		}
		next, err := ParseItemStatus(p.Status.Value)
		if err != nil {
			return prefix(field, err)
		}
		if next != it.Status {
			if err := s.crossCancelBoundary(ctx, tx, *it, next); err != nil {
				return err
			}
			c.Status = &next
			switch next {
			case ItemInWorkshop:
				if it.WorkshopEnteredAt == nil {
					c.WorkshopEnteredAt = Some(s.now())
				}
			case ItemNotInWorkshop:
				if it.WorkshopEnteredAt != nil {
					c.WorkshopEnteredAt = Null[time.Time]()
				}
			}
			statusChanged = true
		}
	}

	if p.WorkshopDuration.Set && !equalPtr(it.WorkshopDuration, p.WorkshopDuration.Ptr()) {
		c.WorkshopDuration = p.WorkshopDuration
	}
	if p.SerialNumber.Set && !equalPtr(it.SerialNumber, p.SerialNumber.Ptr()) {
		c.SerialNumber = p.SerialNumber
	}
	if p.SellingPrice.Set {
		if !p.SellingPrice.Null && p.SellingPrice.Value.IsNegative() {
			return invalid(field+".selling_price", "selling_price must not be negative")
		}
		if !equalDecimalPtr(it.SellingPrice, p.SellingPrice.Ptr()) {
			c.SellingPrice = p.SellingPrice
		}
	}

	if c.Empty() {
		return nil
	}
	if err := tx.UpdateItem(ctx, it.ID, c); err != nil {
		return err
	}
	c.Apply(it)
	if statusChanged {
		return record(ctx, tx, actor, it.WorkorderID, auditlog.ItemStatusChanged, it)
	}
	return nil
}

// crossCancelBoundary restocks an item entering Canceled and debits one leaving it.
func (s *Service) crossCancelBoundary(ctx context.Context, tx Tx, it Item, next ItemStatus) error {
	if !inventory.Tracked(it.ProductID) {
		return nil
	}
	switch {
	case it.Status != ItemCanceled && next == ItemCanceled:
		return restock(ctx, tx, it)
	case it.Status == ItemCanceled && next != ItemCanceled:
		adj, err := inventory.Debit(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return err
		}
		metrics.StockAdjustments.WithLabelValues(string(adj.Direction())).Inc()
	}
	return nil
}

// removeItem cancels a live item and returns its quantity to stock. Already canceled items
// are skipped.
func (s *Service) removeItem(ctx context.Context, tx Tx, actor string, it *Item) error {
	if it.Status == ItemCanceled {
		return nil
	}
	if inventory.Tracked(it.ProductID) {
		if err := restock(ctx, tx, *it); err != nil {
			return err
		}
	}
	if err := record(ctx, tx, actor, it.WorkorderID, auditlog.ItemRemoved, it); err != nil {
		return err
	}
	canceled := ItemCanceled
	c := ItemChanges{Status: &canceled}
	if err := tx.UpdateItem(ctx, it.ID, c); err != nil {
		return err
	}
	c.Apply(it)
	return nil
}

func (s *Service) announce(ctx context.Context, d deliveries.Delivery) {
	if s.notify == nil {
		return
	}
	if err := s.notify.DeliveryCreated(ctx, d); err != nil {
		s.log.Warn("delivery notification failed", "delivery_id", d.ID, "workorder_id", d.WorkorderID, "err", err)
	}
}

func restock(ctx context.Context, tx Tx, it Item) error {
	adj, err := inventory.Restock(ctx, tx, it.ProductID, it.Quantity)
	if err != nil {
		return err
	}
	metrics.StockAdjustments.WithLabelValues(string(adj.Direction())).Inc()
	return nil
}

func record(ctx context.Context, tx Tx, actor string, workorderID int64, ev auditlog.Event, it *Item) error {
	e := auditlog.Entry{WorkorderID: workorderID, Event: ev, Actor: actor}
	if it != nil {
		itemID, st := it.ID, string(it.Status)
		e.ItemID = &itemID
		e.ItemStatus = &st
	}
	return auditlog.Record(ctx, tx, e)
}

func deliveryFor(w Workorder) deliveries.Delivery {
	woID := w.ID
	return deliveries.Delivery{
		InvoiceID:   w.InvoiceID,
		CustomerID:  w.CustomerID,
		Suburb:      w.DeliverySuburb,
		State:       w.DeliveryState,
		Charged:     w.DeliveryCharged,
		Status:      deliveries.StatusToBeBooked,
		Notes:       w.Notes,
		WorkorderID: &woID,
	}
}

func prefix(field string, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: field + "." + ve.Field, Message: ve.Message}
	}
	return err
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalDecimalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
