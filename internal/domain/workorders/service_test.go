package workorders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
	"github.com/Spok95/ops-portal/internal/infra/logger"
	"github.com/Spok95/ops-portal/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/jackc/pgx/v5/pgxpool.(*Pool).backgroundHealthCheck"),
		goleak.IgnoreAnyFunction("github.com/jackc/pgx/v5/pgxpool.(*Pool).triggerHealthCheck.func1"),
	)
}

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu  sync.Mutex
	got []deliveries.Delivery
}

func (n *recordingNotifier) DeliveryCreated(_ context.Context, d deliveries.Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, d)
	return nil
}

type fixture struct {
	store    *testutil.MemStore
	svc      *workorders.Service
	notifier *recordingNotifier
	customer int64
}

func newFixture(t interface{ Helper() }) *fixture {
	t.Helper()
	st := testutil.NewMemStore()
	st.Now = func() time.Time { return fixedNow }
	n := &recordingNotifier{}
	svc := workorders.NewService(st,
		workorders.WithClock(func() time.Time { return fixedNow }),
		workorders.WithNotifier(n),
		workorders.WithLogger(logger.Discard()),
	)
	return &fixture{store: st, svc: svc, notifier: n, customer: st.AddCustomer("Jane Citizen")}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(sku, qty, tech string) workorders.ItemInput {
	return workorders.ItemInput{ProductID: sku, Quantity: dec(qty), TechnicianID: tech}
}

func input(customer int64, items ...workorders.ItemInput) workorders.CreateInput {
	bal := dec("150.00")
	return workorders.CreateInput{
		InvoiceID:          "INV-1001",
		CustomerID:         customer,
		Salesperson:        "Sam",
		DeliverySuburb:     "Parramatta",
		DeliveryState:      "NSW",
		DeliveryCharged:    dec("80"),
		LeadTime:           "6 weeks",
		OutstandingBalance: &bal,
		Items:              items,
	}
}

func countEvents(logs []auditlog.Entry, ev auditlog.Event) int {
	n := 0
	for _, e := range logs {
		if e.Event == ev {
			n++
		}
	}
	return n
}

func completeAll(v workorders.View) workorders.Patch {
	var p workorders.Patch
	for _, it := range v.Items {
		p.Items = append(p.Items, workorders.ItemPatch{ID: it.ID, Status: workorders.Some(string(workorders.ItemCompleted))})
	}
	return p
}

func (f *fixture) create(t *testing.T, items ...workorders.ItemInput) workorders.View {
	t.Helper()
	v, err := f.svc.Create(context.Background(), "sm", input(f.customer, items...))
	require.NoError(t, err)
	return v
}

func TestCreate_DebitsStockAndLogsOnce(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	f.store.AddProduct("B", 5)

	v := f.create(t, item("A", "3", "jd"), item("B", "5", "KL"))

	assert.Equal(t, int64(7), f.store.Stock("A"))
	assert.Equal(t, int64(0), f.store.Stock("B"))
	assert.Equal(t, workorders.StatusWorkOrdered, v.Status)
	assert.Equal(t, "Jane Citizen", v.CustomerName)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "JD", v.Items[0].TechnicianID)
	assert.Equal(t, workorders.ItemNotInWorkshop, v.Items[0].Status)

	logs := f.store.Logs(v.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, auditlog.WorkorderCreated, logs[0].Event)
	assert.Equal(t, "SM", logs[0].Actor)

	require.NotNil(t, v.EstimatedCompletion)
	assert.Equal(t, "2025-04-21", v.EstimatedCompletion.Format("2006-01-02"))
}

func TestCreate_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	f.store.AddProduct("B", 5)

	_, err := f.svc.Create(context.Background(), "SM", input(f.customer, item("A", "3", "JD"), item("B", "6", "JD")))

	var short *inventory.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "B", short.SKU)
	assert.Equal(t, int64(5), short.Current)
	assert.True(t, short.Requested.Equal(dec("6")))

	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Equal(t, int64(5), f.store.Stock("B"))
	assert.Zero(t, f.store.WorkorderCount())
	assert.Empty(t, f.store.AllLogs())
}

func TestCreate_MissingTechnicianRollsBackEarlierItems(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)

	_, err := f.svc.Create(context.Background(), "SM", input(f.customer,
		item("A", "1", "JD"),
		item("A", "1", "JD"),
		item("A", "1", ""),
		item("A", "1", "JD"),
		item("A", "1", "JD"),
	))

	var ve *workorders.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "items[2].technician_id", ve.Field)
	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Zero(t, f.store.WorkorderCount())
}

func TestCreate_RequiredFields(t *testing.T) {
	cases := map[string]func(in *workorders.CreateInput){
		"invoice_id":          func(in *workorders.CreateInput) { in.InvoiceID = "  " },
		"customer_id":         func(in *workorders.CreateInput) { in.CustomerID = 0 },
		"salesperson":         func(in *workorders.CreateInput) { in.Salesperson = "" },
		"delivery_state":      func(in *workorders.CreateInput) { in.DeliveryState = "" },
		"lead_time":           func(in *workorders.CreateInput) { in.LeadTime = "" },
		"outstanding_balance": func(in *workorders.CreateInput) { in.OutstandingBalance = nil },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			f := newFixture(t)
			in := input(f.customer)
			mutate(&in)

			_, err := f.svc.Create(context.Background(), "SM", in)

			var ve *workorders.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, field, ve.Field)
		})
	}
}

func TestCreate_ZeroBalanceIsAllowed(t *testing.T) {
	f := newFixture(t)
	in := input(f.customer)
	zero := decimal.Zero
	in.OutstandingBalance = &zero

	v, err := f.svc.Create(context.Background(), "SM", in)
	require.NoError(t, err)
	assert.True(t, v.OutstandingBalance.IsZero())
}

func TestCreate_UnknownCustomerAndProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "SM", input(f.customer+99))
	assert.ErrorIs(t, err, workorders.ErrNotFound)

	_, err = f.svc.Create(context.Background(), "SM", input(f.customer, item("NOPE", "1", "JD")))
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)
	assert.Zero(t, f.store.WorkorderCount())
}

func TestCreate_ItemRules(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)

	canceled := item("A", "1", "JD")
	canceled.Status = "Canceled"
	_, err := f.svc.Create(context.Background(), "SM", input(f.customer, canceled))
	var ve *workorders.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = f.svc.Create(context.Background(), "SM", input(f.customer, item("A", "1.5", "JD")))
	assert.ErrorIs(t, err, inventory.ErrInvalidStockMath)

	_, err = f.svc.Create(context.Background(), "SM", input(f.customer, item("A", "0", "JD")))
	require.ErrorAs(t, err, &ve)

	_, err = f.svc.Create(context.Background(), "SM", input(f.customer, item("A", "1", "J?")))
	require.ErrorAs(t, err, &ve)

	assert.Equal(t, int64(10), f.store.Stock("A"))
}

func TestCreate_CustomLineSkipsStock(t *testing.T) {
	f := newFixture(t)

	v := f.create(t, item(inventory.CustomSKU, "2.5", "JD"))

	require.Len(t, v.Items, 1)
	assert.True(t, v.Items[0].Quantity.Equal(dec("2.5")))
}

func TestCreate_InWorkshopItemIsStamped(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 1)
	in := item("A", "1", "JD")
	in.Status = "In Workshop"

	v := f.create(t, in)

	require.NotNil(t, v.Items[0].WorkshopEnteredAt)
	assert.True(t, v.Items[0].WorkshopEnteredAt.Equal(fixedNow))
}

func TestCreate_ExplicitEstimatedCompletion(t *testing.T) {
	f := newFixture(t)
	in := input(f.customer)
	date := "2025-06-30"
	in.EstimatedCompletion = &date

	v, err := f.svc.Create(context.Background(), "SM", in)
	require.NoError(t, err)
	require.NotNil(t, v.EstimatedCompletion)
	assert.Equal(t, "2025-06-30", v.EstimatedCompletion.Format("2006-01-02"))

	bad := "next tuesday"
	in.EstimatedCompletion = &bad
	_, err = f.svc.Create(context.Background(), "SM", in)
	var ve *workorders.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUpdate_CompletingAllItemsCascadesOnce(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"), item("A", "2", "KL"))

	got, err := f.svc.Update(context.Background(), v.ID, "JD", completeAll(v))
	require.NoError(t, err)

	assert.Equal(t, workorders.StatusCompleted, got.Status)
	logs := f.store.Logs(v.ID)
	assert.Equal(t, 2, countEvents(logs, auditlog.ItemStatusChanged))
	assert.Equal(t, 1, countEvents(logs, auditlog.WorkorderStatusChanged))
	assert.Equal(t, 1, countEvents(logs, auditlog.WorkorderCompleted))
	assert.Equal(t, 1, countEvents(logs, auditlog.DeliveryOrderCreated))

	ds := f.store.Deliveries()
	require.Len(t, ds, 1)
	assert.Equal(t, deliveries.StatusToBeBooked, ds[0].Status)
	assert.Equal(t, "INV-1001", ds[0].InvoiceID)
	assert.Equal(t, "NSW", ds[0].State)
	assert.Nil(t, ds[0].RemovalistID)
	assert.Nil(t, ds[0].Date)
	require.NotNil(t, ds[0].WorkorderID)
	assert.Equal(t, v.ID, *ds[0].WorkorderID)
	assert.Len(t, f.notifier.got, 1)

	// the same request again changes nothing
	again, err := f.svc.Update(context.Background(), v.ID, "JD", completeAll(v))
	require.NoError(t, err)
	assert.Equal(t, workorders.StatusCompleted, again.Status)
	assert.Len(t, f.store.Deliveries(), 1)
	assert.Equal(t, 1, countEvents(f.store.Logs(v.ID), auditlog.WorkorderCompleted))
	assert.Len(t, f.notifier.got, 1)
}

func TestUpdate_NotesOnCompletedOrderDoesNotCascade(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))
	_, err := f.svc.Update(context.Background(), v.ID, "JD", completeAll(v))
	require.NoError(t, err)

	got, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Notes: workorders.Some("leave at side door")})
	require.NoError(t, err)

	assert.Equal(t, "leave at side door", got.Notes)
	assert.Len(t, f.store.Deliveries(), 1)
	assert.Equal(t, 1, countEvents(f.store.Logs(v.ID), auditlog.NoteAdded))
}

func TestUpdate_ExplicitCompletion(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))

	got, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Status: workorders.Some("Completed")})
	require.NoError(t, err)

	assert.Equal(t, workorders.StatusCompleted, got.Status)
	assert.Len(t, f.store.Deliveries(), 1)
	logs := f.store.Logs(v.ID)
	assert.Equal(t, 1, countEvents(logs, auditlog.WorkorderStatusChanged))
	assert.Equal(t, 1, countEvents(logs, auditlog.DeliveryOrderCreated))

	_, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Status: workorders.Some("Completed")})
	require.NoError(t, err)
	assert.Len(t, f.store.Deliveries(), 1)
	assert.Equal(t, 1, countEvents(f.store.Logs(v.ID), auditlog.WorkorderStatusChanged))
}

func TestUpdate_ManualRevertFromCompleted(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))
	_, err := f.svc.Update(context.Background(), v.ID, "JD", completeAll(v))
	require.NoError(t, err)

	got, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Status: workorders.Some("Work Ordered")})
	require.NoError(t, err)

	assert.Equal(t, workorders.StatusWorkOrdered, got.Status)
	assert.Len(t, f.store.Deliveries(), 1)
	assert.Equal(t, 2, countEvents(f.store.Logs(v.ID), auditlog.WorkorderStatusChanged))
}

func TestUpdate_ResentStatusDoesNotBlockCompletion(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"), item("A", "1", "KL"))

	p := completeAll(v)
	p.Status = workorders.Some(string(workorders.StatusWorkOrdered))
	got, err := f.svc.Update(context.Background(), v.ID, "JD", p)
	require.NoError(t, err)

	assert.Equal(t, workorders.StatusCompleted, got.Status)
	assert.Len(t, f.store.Deliveries(), 1)
	logs := f.store.Logs(v.ID)
	assert.Equal(t, 1, countEvents(logs, auditlog.WorkorderStatusChanged))
	assert.Equal(t, 1, countEvents(logs, auditlog.WorkorderCompleted))

	// re-sending Completed on a completed order is a no-op
	p.Status = workorders.Some(string(workorders.StatusCompleted))
	got, err = f.svc.Update(context.Background(), v.ID, "JD", p)
	require.NoError(t, err)
	assert.Equal(t, workorders.StatusCompleted, got.Status)
	assert.Len(t, f.store.Deliveries(), 1)
	assert.Equal(t, 1, countEvents(f.store.Logs(v.ID), auditlog.WorkorderStatusChanged))
}

func TestUpdate_ExplicitCompletionWithLastItemLogsOnce(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))

	p := completeAll(v)
	p.Status = workorders.Some(string(workorders.StatusCompleted))
	got, err := f.svc.Update(context.Background(), v.ID, "JD", p)
	require.NoError(t, err)

	assert.Equal(t, workorders.StatusCompleted, got.Status)
	assert.Len(t, f.store.Deliveries(), 1)
	assert.Equal(t, 1, countEvents(f.store.Logs(v.ID), auditlog.WorkorderStatusChanged))
}

func TestUpdate_CommittedEvenWhenReloadFails(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))

	f.store.FailGet = errors.New("connection reset")
	got, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Notes: workorders.Some("fragile")})
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	created, err := f.svc.Create(context.Background(), "sm", input(f.customer))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	f.store.FailGet = nil
	after, err := f.svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, "fragile", after.Notes)
	assert.Equal(t, 2, f.store.WorkorderCount())
}

func TestUpdate_InvalidStatusOverride(t *testing.T) {
	f := newFixture(t)
	v := f.create(t)

	for _, p := range []workorders.Patch{
		{Status: workorders.Some("Shipped")},
		{Status: workorders.Null[string]()},
	} {
		_, err := f.svc.Update(context.Background(), v.ID, "JD", p)
		var ve *workorders.ValidationError
		assert.ErrorAs(t, err, &ve)
	}
}

func TestUpdate_TechnicianCannotBeCleared(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))
	id := v.Items[0].ID

	for _, tech := range []workorders.Opt[string]{workorders.Some(""), workorders.Some("  "), workorders.Null[string]()} {
		_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
			Notes: workorders.Some("should not stick"),
			Items: []workorders.ItemPatch{{ID: id, TechnicianID: tech}},
		})
		var ve *workorders.ValidationError
		require.ErrorAs(t, err, &ve)

		it, _ := f.store.Item(id)
		assert.Equal(t, "JD", it.TechnicianID)
	}
	got, err := f.svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)

	got, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
		Items: []workorders.ItemPatch{{ID: id, TechnicianID: workorders.Some("kl")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "KL", got.Items[0].TechnicianID)
	assert.Zero(t, countEvents(f.store.Logs(v.ID), auditlog.ItemStatusChanged))
}

func TestUpdate_CancelAndReactivate(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "4", "JD"))
	id := v.Items[0].ID
	require.Equal(t, int64(6), f.store.Stock("A"))

	status := func(s workorders.ItemStatus) workorders.Patch {
		return workorders.Patch{Items: []workorders.ItemPatch{{ID: id, Status: workorders.Some(string(s))}}}
	}

	got, err := f.svc.Update(context.Background(), v.ID, "JD", status(workorders.ItemCanceled))
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Empty(t, got.Items)

	_, err = f.svc.Update(context.Background(), v.ID, "JD", status(workorders.ItemInWorkshop))
	require.NoError(t, err)
	assert.Equal(t, int64(6), f.store.Stock("A"))

	// moving between live states leaves stock alone
	_, err = f.svc.Update(context.Background(), v.ID, "JD", status(workorders.ItemNotInWorkshop))
	require.NoError(t, err)
	assert.Equal(t, int64(6), f.store.Stock("A"))

	logs := f.store.Logs(v.ID)
	require.Equal(t, 3, countEvents(logs, auditlog.ItemStatusChanged))
	last := logs[len(logs)-1]
	require.NotNil(t, last.ItemID)
	assert.Equal(t, id, *last.ItemID)
	require.NotNil(t, last.ItemStatus)
	assert.Equal(t, "Not in Workshop", *last.ItemStatus)
}

func TestUpdate_ReactivationNeedsStock(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 3)
	v := f.create(t, item("A", "3", "JD"))
	id := v.Items[0].ID
	cancel := workorders.Patch{Items: []workorders.ItemPatch{{ID: id, Status: workorders.Some("Canceled")}}}
	_, err := f.svc.Update(context.Background(), v.ID, "JD", cancel)
	require.NoError(t, err)
	_ = f.create(t, item("A", "2", "JD"))
	require.Equal(t, int64(1), f.store.Stock("A"))

	_, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
		Items: []workorders.ItemPatch{{ID: id, Status: workorders.Some("Completed")}},
	})

	var short *inventory.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(1), f.store.Stock("A"))
	it, _ := f.store.Item(id)
	assert.Equal(t, workorders.ItemCanceled, it.Status)
}

func TestUpdate_WorkshopEntryStamp(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))
	id := v.Items[0].ID
	set := func(s string) workorders.Item {
		t.Helper()
		_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
			Items: []workorders.ItemPatch{{ID: id, Status: workorders.Some(s)}},
		})
		require.NoError(t, err)
		it, _ := f.store.Item(id)
		return it
	}

	it := set("In Workshop")
	require.NotNil(t, it.WorkshopEnteredAt)
	assert.True(t, it.WorkshopEnteredAt.Equal(fixedNow))

	it = set("Completed")
	assert.NotNil(t, it.WorkshopEnteredAt)

	it = set("Not in Workshop")
	assert.Nil(t, it.WorkshopEnteredAt)
}

func TestUpdate_AddAndDeleteItems(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	f.store.AddProduct("B", 10)
	v := f.create(t, item("A", "2", "JD"))
	first := v.Items[0].ID

	got, err := f.svc.Update(context.Background(), v.ID, "KL", workorders.Patch{
		AddItems:      []workorders.ItemInput{item("B", "3", "KL")},
		DeleteItemIDs: []int64{first},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Equal(t, int64(7), f.store.Stock("B"))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "B", got.Items[0].ProductID)

	removed, ok := f.store.Item(first)
	require.True(t, ok)
	assert.Equal(t, workorders.ItemCanceled, removed.Status)

	logs := f.store.Logs(v.ID)
	assert.Equal(t, 1, countEvents(logs, auditlog.ItemAdded))
	require.Equal(t, 1, countEvents(logs, auditlog.ItemRemoved))
	for _, e := range logs {
		if e.Event == auditlog.ItemRemoved {
			assert.Equal(t, "Not in Workshop", *e.ItemStatus)
			assert.Equal(t, first, *e.ItemID)
			assert.Equal(t, "KL", e.Actor)
		}
	}

	// deleting a canceled item again is a no-op
	_, err = f.svc.Update(context.Background(), v.ID, "KL", workorders.Patch{DeleteItemIDs: []int64{first}})
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Equal(t, 1, countEvents(f.store.Logs(v.ID), auditlog.ItemRemoved))
}

func TestUpdate_AddedItemNeedsTechnician(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t)

	_, err := f.svc.Update(context.Background(), v.ID, "KL", workorders.Patch{
		AddItems: []workorders.ItemInput{item("A", "1", "JD"), item("A", "1", "")},
	})

	var ve *workorders.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Zero(t, countEvents(f.store.Logs(v.ID), auditlog.ItemAdded))
}

func TestUpdate_ScalarEventsOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	v := f.create(t)

	_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
		Notes:              workorders.Some(""),
		OutstandingBalance: workorders.Some(dec("150")),
		Important:          workorders.Some(false),
		DeliveryCharged:    workorders.Some(dec("95.50")),
	})
	require.NoError(t, err)
	assert.Len(t, f.store.Logs(v.ID), 1)

	got, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
		Notes:               workorders.Some("call first"),
		OutstandingBalance:  workorders.Some(dec("0")),
		Important:           workorders.Some(true),
		EstimatedCompletion: workorders.Some("2025-05-01"),
	})
	require.NoError(t, err)

	logs := f.store.Logs(v.ID)
	assert.Equal(t, 1, countEvents(logs, auditlog.NoteAdded))
	assert.Equal(t, 1, countEvents(logs, auditlog.PaymentUpdated))
	assert.Equal(t, 1, countEvents(logs, auditlog.WorkorderFlagChanged))
	assert.True(t, got.DeliveryCharged.Equal(dec("95.5")))
	assert.True(t, got.OutstandingBalance.IsZero())
	assert.True(t, got.Important)
	assert.Equal(t, "2025-05-01", got.EstimatedCompletion.Format("2006-01-02"))

	got, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{EstimatedCompletion: workorders.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, got.EstimatedCompletion)
}

func TestUpdate_RejectsNegativeBalance(t *testing.T) {
	f := newFixture(t)
	v := f.create(t)

	_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{OutstandingBalance: workorders.Some(dec("-1"))})

	var ve *workorders.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "outstanding_balance", ve.Field)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)
	v := f.create(t)

	_, err := f.svc.Update(context.Background(), v.ID+1, "JD", workorders.Patch{})
	assert.ErrorIs(t, err, workorders.ErrNotFound)

	_, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{
		Items: []workorders.ItemPatch{{ID: 404, Status: workorders.Some("Completed")}},
	})
	assert.ErrorIs(t, err, workorders.ErrNotFound)

	_, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{DeleteItemIDs: []int64{404}})
	assert.ErrorIs(t, err, workorders.ErrNotFound)
}

func TestUpdate_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "2", "JD"))
	down := errors.New("connection reset")
	f.store.FailAudit = down

	_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{DeleteItemIDs: []int64{v.Items[0].ID}})

	assert.ErrorIs(t, err, down)
	assert.Equal(t, int64(8), f.store.Stock("A"))
	it, _ := f.store.Item(v.Items[0].ID)
	assert.Equal(t, workorders.ItemNotInWorkshop, it.Status)
}

func TestUpdate_ActorIsNormalized(t *testing.T) {
	f := newFixture(t)
	v := f.create(t)

	for i, actor := range []string{"", "j", "jdx", "j-"} {
		_, err := f.svc.Update(context.Background(), v.ID, actor, workorders.Patch{Important: workorders.Some(i%2 == 0)})
		require.NoError(t, err)
	}

	var actors []string
	for _, e := range f.store.Logs(v.ID)[1:] {
		actors = append(actors, e.Actor)
	}
	assert.Equal(t, []string{"NA", "JX", "JD", "NA"}, actors)
}

func TestGet_ViewOrdering(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	v := f.create(t, item("A", "1", "JD"))
	_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Notes: workorders.Some("x")})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	require.Len(t, got.Logs, 2)
	assert.Equal(t, auditlog.NoteAdded, got.Logs[0].Event)
	assert.Equal(t, auditlog.WorkorderCreated, got.Logs[1].Event)

	_, err = f.svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, workorders.ErrNotFound)
}

func TestDelete_RestocksLiveItemsAndKeepsDeliveries(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	f.store.AddProduct("B", 10)
	v := f.create(t, item("A", "2", "JD"), item("B", "3", "JD"))
	_, err := f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{DeleteItemIDs: []int64{v.Items[0].ID}})
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), v.ID, "JD", workorders.Patch{Status: workorders.Some("Completed")})
	require.NoError(t, err)
	require.Equal(t, int64(10), f.store.Stock("A"))
	require.Equal(t, int64(7), f.store.Stock("B"))

	require.NoError(t, f.svc.Delete(context.Background(), v.ID))

	assert.Equal(t, int64(10), f.store.Stock("A"))
	assert.Equal(t, int64(10), f.store.Stock("B"))
	_, err = f.svc.Get(context.Background(), v.ID)
	assert.ErrorIs(t, err, workorders.ErrNotFound)
	assert.Empty(t, f.store.Logs(v.ID))
	assert.Len(t, f.store.Deliveries(), 1)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), v.ID), workorders.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	f.store.AddProduct("A", 10)
	paid := f.create(t, item("A", "1", "JD"))
	_, err := f.svc.Update(context.Background(), paid.ID, "JD", workorders.Patch{OutstandingBalance: workorders.Some(decimal.Zero)})
	require.NoError(t, err)
	due := f.create(t, item("A", "1", "KL"), item("A", "1", "KL"))
	_, err = f.svc.Update(context.Background(), due.ID, "KL", workorders.Patch{
		Items: []workorders.ItemPatch{{ID: due.Items[0].ID, Status: workorders.Some("Completed")}},
	})
	require.NoError(t, err)

	all, err := f.svc.List(context.Background(), workorders.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, due.ID, all[0].ID)
	assert.Equal(t, 2, all[0].ItemsTotal)
	assert.Equal(t, 1, all[0].ItemsDone)
	assert.Equal(t, []string{"KL"}, all[0].Technicians)

	got, err := f.svc.List(context.Background(), workorders.Filter{Payment: workorders.PaymentPaid})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, paid.ID, got[0].ID)

	got, err = f.svc.List(context.Background(), workorders.Filter{Technician: "kl"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)

	_, err = f.svc.List(context.Background(), workorders.Filter{Payment: "later"})
	var ve *workorders.ValidationError
	assert.ErrorAs(t, err, &ve)
}
