package workorders_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/domain/workorders"
	"github.com/Spok95/ops-portal/internal/infra/logger"
	"github.com/Spok95/ops-portal/internal/testutil"
)

type pgFixture struct {
	pool     *pgxpool.Pool
	svc      *workorders.Service
	notifier *recordingNotifier
	customer int64
}

func newPgFixture(t *testing.T) *pgFixture {
	t.Helper()
	pool := testutil.PgPool(t)
	n := &recordingNotifier{}
	f := &pgFixture{
		pool:     pool,
		notifier: n,
		svc: workorders.NewService(workorders.NewPgStore(pool),
			workorders.WithNotifier(n),
			workorders.WithLogger(logger.Discard()),
		),
		customer: testutil.SeedCustomer(t, pool, "Jane Citizen"),
	}
	testutil.SeedProduct(t, pool, "A", 10)
	testutil.SeedProduct(t, pool, "B", 1)
	return f
}

func (f *pgFixture) deliveries(t *testing.T) []deliveries.Delivery {
	t.Helper()
	ds, err := deliveries.NewRepo(f.pool).List(context.Background(), "")
	require.NoError(t, err)
	return ds
}

func TestPgStore_CreateUpdateDelete(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, "sm", input(f.customer, item("A", "1", "jd"), item("A", "2", "KL"), item("CUSTOM", "1", "KL")))
	require.NoError(t, err)
	require.Len(t, v.Items, 3)
	assert.Equal(t, "Jane Citizen", v.CustomerName)
	assert.Equal(t, "JD", v.Items[0].TechnicianID)
	assert.True(t, v.Items[1].Quantity.Equal(dec("2")))
	require.NotNil(t, v.EstimatedCompletion)
	require.Len(t, v.Logs, 1)
	assert.Equal(t, auditlog.WorkorderCreated, v.Logs[0].Event)
	assert.Equal(t, "SM", v.Logs[0].Actor)
	assert.Equal(t, int64(7), testutil.StockOf(t, f.pool, "A"))

	// scalar columns and the completion cascade go through the same UPDATE builder
	p := completeAll(v)
	p.Notes = workorders.Some("call first")
	p.OutstandingBalance = workorders.Some(dec("0"))
	p.EstimatedCompletion = workorders.Null[string]()
	p.Important = workorders.Some(true)
	p.Items[0].SerialNumber = workorders.Some("SN-1")
	got, err := f.svc.Update(ctx, v.ID, "JD", p)
	require.NoError(t, err)

	assert.Equal(t, workorders.StatusCompleted, got.Status)
	assert.Equal(t, "call first", got.Notes)
	assert.True(t, got.OutstandingBalance.IsZero())
	assert.Nil(t, got.EstimatedCompletion)
	assert.True(t, got.Important)
	require.NotNil(t, got.Items[0].SerialNumber)
	assert.Equal(t, "SN-1", *got.Items[0].SerialNumber)
	assert.Equal(t, 1, countEvents(got.Logs, auditlog.WorkorderCompleted))
	assert.Equal(t, 1, countEvents(got.Logs, auditlog.DeliveryOrderCreated))
	assert.Equal(t, 3, countEvents(got.Logs, auditlog.ItemStatusChanged))

	ds := f.deliveries(t)
	require.Len(t, ds, 1)
	assert.Equal(t, deliveries.StatusToBeBooked, ds[0].Status)
	require.NotNil(t, ds[0].WorkorderID)
	assert.Equal(t, v.ID, *ds[0].WorkorderID)
	assert.Len(t, f.notifier.got, 1)

	require.NoError(t, f.svc.Delete(ctx, v.ID))
	assert.Equal(t, int64(10), testutil.StockOf(t, f.pool, "A"))

	_, err = f.svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, workorders.ErrNotFound)
	assert.Len(t, f.deliveries(t), 1, "deliveries outlive the work order")

	var logs int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM workorder_logs WHERE workorder_id = $1`, v.ID).Scan(&logs))
	assert.Zero(t, logs)

	assert.ErrorIs(t, f.svc.Delete(ctx, v.ID), workorders.ErrNotFound)
}

func TestPgStore_FailedCreateRollsBack(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "sm", input(f.customer, item("A", "3", "JD"), item("B", "2", "JD")))
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "B", insufficient.SKU)
	assert.Equal(t, int64(1), insufficient.Current)

	assert.Equal(t, int64(10), testutil.StockOf(t, f.pool, "A"))
	var n int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM workorder`).Scan(&n))
	assert.Zero(t, n)

	_, err = f.svc.Create(ctx, "sm", input(f.customer+100))
	assert.ErrorIs(t, err, workorders.ErrNotFound)
}

func TestPgStore_CancelRestocksAndReactivateDebits(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, "sm", input(f.customer, item("A", "4", "JD")))
	require.NoError(t, err)
	id := v.Items[0].ID

	_, err = f.svc.Update(ctx, v.ID, "JD", workorders.Patch{DeleteItemIDs: []int64{id}})
	require.NoError(t, err)
	assert.Equal(t, int64(10), testutil.StockOf(t, f.pool, "A"))

	got, err := f.svc.Update(ctx, v.ID, "JD", workorders.Patch{Items: []workorders.ItemPatch{
		{ID: id, Status: workorders.Some(string(workorders.ItemInWorkshop))},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(6), testutil.StockOf(t, f.pool, "A"))
	require.Len(t, got.Items, 1)
	assert.NotNil(t, got.Items[0].WorkshopEnteredAt)
}

func TestPgStore_ListAggregates(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "sm", input(f.customer, item("A", "1", "JD"), item("A", "1", "KL"), item("A", "1", "PQ")))
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, first.ID, "JD", workorders.Patch{
		Items:         []workorders.ItemPatch{{ID: first.Items[0].ID, Status: workorders.Some(string(workorders.ItemCompleted))}},
		DeleteItemIDs: []int64{first.Items[2].ID},
	})
	require.NoError(t, err)

	paid := input(f.customer, item("CUSTOM", "1", "MN"))
	zero := dec("0")
	paid.OutstandingBalance = &zero
	paid.DeliveryState = "VIC"
	second, err := f.svc.Create(ctx, "sm", paid)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, workorders.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Equal(t, "Jane Citizen", all[1].CustomerName)
	assert.Equal(t, 2, all[1].ItemsTotal)
	assert.Equal(t, 1, all[1].ItemsDone)
	assert.ElementsMatch(t, []string{"JD", "KL"}, all[1].Technicians)

	cases := []struct {
		name   string
		filter workorders.Filter
		want   []int64
	}{
		{"technician", workorders.Filter{Technician: "mn"}, []int64{second.ID}},
		{"live item", workorders.Filter{Technician: "KL"}, []int64{first.ID}},
		{"canceled item", workorders.Filter{Technician: "PQ"}, nil},
		{"paid", workorders.Filter{Payment: workorders.PaymentPaid}, []int64{second.ID}},
		{"due", workorders.Filter{Payment: workorders.PaymentDue}, []int64{first.ID}},
		{"state", workorders.Filter{State: "VIC"}, []int64{second.ID}},
		{"status", workorders.Filter{Status: string(workorders.StatusCompleted)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.List(ctx, tc.filter)
			require.NoError(t, err)
			var ids []int64
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestPgStore_UpdateWaitsForRowLock(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, "sm", input(f.customer, item("A", "1", "JD")))
	require.NoError(t, err)

	tx, err := f.pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	_, err = tx.Exec(ctx, `SELECT 1 FROM workorder WHERE workorder_id = $1 FOR UPDATE`, v.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Update(ctx, v.ID, "JD", workorders.Patch{Notes: workorders.Some("second writer")})
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("update finished while the row was locked: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	_, err = tx.Exec(ctx, `UPDATE workorder SET notes = 'first writer' WHERE workorder_id = $1`, v.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("update still blocked after the lock was released")
	}

	got, err := f.svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "second writer", got.Notes)
	assert.Equal(t, 1, countEvents(got.Logs, auditlog.NoteAdded))
}

func TestPgStore_AuditRowsShareTheTransaction(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, "sm", input(f.customer, item("A", "1", "JD")))
	require.NoError(t, err)

	// an unknown item id fails after the note change has been logged inside the tx
	_, err = f.svc.Update(ctx, v.ID, "JD", workorders.Patch{
		Notes: workorders.Some("never stored"),
		Items: []workorders.ItemPatch{{ID: v.Items[0].ID + 1000, Status: workorders.Some("Completed")}},
	})
	assert.ErrorIs(t, err, workorders.ErrNotFound)

	got, err := f.svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
	assert.Zero(t, countEvents(got.Logs, auditlog.NoteAdded))
}
