package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
)

// MemStore is an in-memory workorders.Store. Transactions are serialized and work on a copy
// of the state that replaces the committed one only when fn succeeds.
type MemStore struct {
	mu    sync.Mutex
	state memState

	// FailAudit, when set, is returned by every audit insert.
	FailAudit error
	// FailGet, when set, is returned by Get.
	FailGet error
	Now     func() time.Time
}

type memState struct {
	customers  map[int64]string
	products   map[string]int64
	workorders map[int64]workorders.Workorder
	items      map[int64]workorders.Item
	logs       []auditlog.Entry
	deliveries []deliveries.Delivery

	nextWorkorder, nextItem, nextLog, nextDelivery, nextCustomer int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		state: memState{
			customers:  map[int64]string{},
			products:   map[string]int64{},
			workorders: map[int64]workorders.Workorder{},
			items:      map[int64]workorders.Item{},
		},
		Now: time.Now,
	}
}

func (s memState) clone() memState {
	c := s
	c.customers = maps.Clone(s.customers)
	c.products = maps.Clone(s.products)
	c.workorders = maps.Clone(s.workorders)
	c.items = maps.Clone(s.items)
	c.logs = slices.Clone(s.logs)
	c.deliveries = slices.Clone(s.deliveries)
	return c
}

func (s *MemStore) AddCustomer(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextCustomer++
	s.state.customers[s.state.nextCustomer] = name
	return s.state.nextCustomer
}

func (s *MemStore) AddProduct(sku string, stock int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[sku] = stock
}

func (s *MemStore) Stock(sku string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[sku]
}

// Logs returns every audit row of a work order in insertion order.
func (s *MemStore) Logs(workorderID int64) []auditlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auditlog.Entry
	for _, e := range s.state.logs {
		if e.WorkorderID == workorderID {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemStore) AllLogs() []auditlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.logs)
}

func (s *MemStore) Deliveries() []deliveries.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.deliveries)
}

// Item returns an item including canceled ones.
func (s *MemStore) Item(id int64) (workorders.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.state.items[id]
	return it, ok
}

func (s *MemStore) WorkorderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.workorders)
}

func (s *MemStore) InTx(ctx context.Context, fn func(tx workorders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{store: s, st: &work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemStore) Get(_ context.Context, id int64) (workorders.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return workorders.View{}, s.FailGet
	}
	w, ok := s.state.workorders[id]
	if !ok {
		return workorders.View{}, fmt.Errorf("%w: work order %d", workorders.ErrNotFound, id)
	}
	v := workorders.View{Workorder: w, CustomerName: s.state.customers[w.CustomerID], Items: []workorders.Item{}}
	for _, it := range s.state.itemsOf(id) {
		if it.Status != workorders.ItemCanceled {
			v.Items = append(v.Items, it)
		}
	}
	for i := len(s.state.logs) - 1; i >= 0; i-- {
		if s.state.logs[i].WorkorderID == id {
			v.Logs = append(v.Logs, s.state.logs[i])
		}
	}
	return v, nil
}

func (s *MemStore) List(_ context.Context, f workorders.Filter) ([]workorders.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []workorders.Summary{}
	for _, w := range s.state.workorders {
		if f.Status != "" && string(w.Status) != f.Status ||
			f.State != "" && w.DeliveryState != f.State ||
			f.Salesperson != "" && w.Salesperson != f.Salesperson ||
			f.Payment == workorders.PaymentPaid && !w.OutstandingBalance.IsZero() ||
			f.Payment == workorders.PaymentDue && !w.OutstandingBalance.IsPositive() {
			continue
		}
		sm := workorders.Summary{Workorder: w, CustomerName: s.state.customers[w.CustomerID], Technicians: []string{}}
		matchTech := f.Technician == ""
		for _, it := range s.state.itemsOf(w.ID) {
			if it.Status == workorders.ItemCanceled {
				continue
			}
			sm.ItemsTotal++
			if it.Status == workorders.ItemCompleted {
				sm.ItemsDone++
			}
			if !slices.Contains(sm.Technicians, it.TechnicianID) {
				sm.Technicians = append(sm.Technicians, it.TechnicianID)
			}
			if strings.EqualFold(it.TechnicianID, f.Technician) {
				matchTech = true
			}
		}
		if !matchTech {
			continue
		}
		sort.Strings(sm.Technicians)
		out = append(out, sm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s memState) itemsOf(workorderID int64) []workorders.Item {
	var out []workorders.Item
	for _, it := range s.items {
		if it.WorkorderID == workorderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTx struct {
	store *MemStore
	st    *memState
}

func (t *memTx) LockStock(_ context.Context, sku string) (int64, error) {
	stock, ok := t.st.products[sku]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrProductNotFound, sku)
	}
	return stock, nil
}

func (t *memTx) WriteStock(_ context.Context, sku string, stock int64) error {
	if _, ok := t.st.products[sku]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrProductNotFound, sku)
	}
	if stock < 0 {
		return fmt.Errorf("check constraint: stock %d for %s", stock, sku)
	}
	t.st.products[sku] = stock
	return nil
}

func (t *memTx) Insert(_ context.Context, e auditlog.Entry) error {
	if t.store.FailAudit != nil {
		return t.store.FailAudit
	}
	if _, ok := t.st.workorders[e.WorkorderID]; !ok {
		return fmt.Errorf("foreign key: work order %d", e.WorkorderID)
	}
	t.st.nextLog++
	e.ID = t.st.nextLog
	e.CreatedAt = t.store.Now()
	t.st.logs = append(t.st.logs, e)
	return nil
}

func (t *memTx) CustomerExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.st.customers[id]
	return ok, nil
}

func (t *memTx) LockWorkorder(_ context.Context, id int64) (workorders.Workorder, error) {
	w, ok := t.st.workorders[id]
	if !ok {
		return workorders.Workorder{}, fmt.Errorf("%w: work order %d", workorders.ErrNotFound, id)
	}
	return w, nil
}

func (t *memTx) LockItems(_ context.Context, workorderID int64) ([]workorders.Item, error) {
	return t.st.itemsOf(workorderID), nil
}

func (t *memTx) InsertWorkorder(_ context.Context, w workorders.Workorder) (int64, error) {
	t.st.nextWorkorder++
	w.ID = t.st.nextWorkorder
	w.CreatedAt = t.store.Now()
	t.st.workorders[w.ID] = w
	return w.ID, nil
}

func (t *memTx) UpdateWorkorder(_ context.Context, id int64, c workorders.WorkorderChanges) error {
	w, ok := t.st.workorders[id]
	if !ok {
		return fmt.Errorf("%w: work order %d", workorders.ErrNotFound, id)
	}
	if c.OutstandingBalance != nil && c.OutstandingBalance.IsNegative() {
		return fmt.Errorf("check constraint: outstanding_balance")
	}
	c.Apply(&w)
	t.st.workorders[id] = w
	return nil
}

func (t *memTx) InsertItem(_ context.Context, it workorders.Item) (int64, error) {
	if _, ok := t.st.workorders[it.WorkorderID]; !ok {
		return 0, fmt.Errorf("foreign key: work order %d", it.WorkorderID)
	}
	t.st.nextItem++
	it.ID = t.st.nextItem
	t.st.items[it.ID] = it
	return it.ID, nil
}

func (t *memTx) UpdateItem(_ context.Context, id int64, c workorders.ItemChanges) error {
	it, ok := t.st.items[id]
	if !ok {
		return fmt.Errorf("%w: item %d", workorders.ErrNotFound, id)
	}
	c.Apply(&it)
	t.st.items[id] = it
	return nil
}

func (t *memTx) DeleteItems(_ context.Context, workorderID int64) error {
	maps.DeleteFunc(t.st.items, func(_ int64, it workorders.Item) bool {
		return it.WorkorderID == workorderID
	})
	return nil
}

func (t *memTx) DeleteWorkorder(_ context.Context, id int64) error {
	if _, ok := t.st.workorders[id]; !ok {
		return fmt.Errorf("%w: work order %d", workorders.ErrNotFound, id)
	}
	delete(t.st.workorders, id)
	t.st.logs = slices.DeleteFunc(t.st.logs, func(e auditlog.Entry) bool { return e.WorkorderID == id })
	return nil
}

func (t *memTx) InsertDelivery(_ context.Context, d deliveries.Delivery) (int64, error) {
	t.st.nextDelivery++
	d.ID = t.st.nextDelivery
	d.CreatedAt = t.store.Now()
	t.st.deliveries = append(t.st.deliveries, d)
	return d.ID, nil
}
