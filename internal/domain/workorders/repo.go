package workorders

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/deliveries"
	"github.com/Spok95/ops-portal/internal/domain/inventory"
	"github.com/Spok95/ops-portal/internal/infra/db"
)

// PgStore is the postgres Store.
type PgStore struct{ pool *pgxpool.Pool }

func NewPgStore(pool *pgxpool.Pool) *PgStore { return &PgStore{pool: pool} }

func (s *PgStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newPgTx(tx))
	})
}

const workorderColumns = `w.workorder_id, w.invoice_id, w.customer_id, w.salesperson, w.delivery_suburb,
	w.delivery_state, w.delivery_charged, w.lead_time, w.estimated_completion, w.notes,
	w.status, w.outstanding_balance, w.important_flag, w.date_created`

const itemColumns = `workorder_items_id, workorder_id, product_id, quantity, condition, technician_id,
	status, workshop_duration, workshop_entered_at, item_sn, selling_price`

func workorderDest(w *Workorder) []any {
	return []any{
		&w.ID, &w.InvoiceID, &w.CustomerID, &w.Salesperson, &w.DeliverySuburb,
		&w.DeliveryState, &w.DeliveryCharged, &w.LeadTime, &w.EstimatedCompletion, &w.Notes,
		&w.Status, &w.OutstandingBalance, &w.Important, &w.CreatedAt,
	}
}

func scanItems(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()
	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID,
			&it.WorkorderID,
			&it.ProductID,
			&it.Quantity,
			&it.Condition,
			&it.TechnicianID,
			&it.Status,
			&it.WorkshopDuration,
			&it.WorkshopEnteredAt,
			&it.SerialNumber,
			&it.SellingPrice,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Get loads the work order with its live items and activity log.
func (s *PgStore) Get(ctx context.Context, id int64) (View, error) {
	var v View
	dest := append(workorderDest(&v.Workorder), &v.CustomerName)
	err := s.pool.QueryRow(ctx, `
		SELECT `+workorderColumns+`, c.name
		FROM workorder w
		JOIN customer c ON c.customer_id = w.customer_id
		WHERE w.workorder_id = $1
	`, id).Scan(dest...)
	if err != nil {
		if db.IsNoRows(err) {
			return View{}, fmt.Errorf("%w: work order %d", ErrNotFound, id)
		}
		return View{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM workorder_items
		WHERE workorder_id = $1 AND status <> $2
		ORDER BY workorder_items_id
	`, id, string(ItemCanceled))
	if err != nil {
		return View{}, err
	}
	if v.Items, err = scanItems(rows); err != nil {
		return View{}, err
	}

	if v.Logs, err = auditlog.NewRepo(s.pool).ListByWorkorder(ctx, id); err != nil {
		return View{}, err
	}
	return v, nil
}

// List returns work order summaries matching f, newest first.
func (s *PgStore) List(ctx context.Context, f Filter) ([]Summary, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "w.status = "+arg(f.Status))
	}
	if f.State != "" {
		where = append(where, "w.delivery_state = "+arg(f.State))
	}
	if f.Salesperson != "" {
		where = append(where, "w.salesperson = "+arg(f.Salesperson))
	}
	switch f.Payment {
	case PaymentPaid:
		where = append(where, "w.outstanding_balance = 0")
	case PaymentDue:
		where = append(where, "w.outstanding_balance > 0")
	}
	if f.Technician != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM workorder_items ti
			WHERE ti.workorder_id = w.workorder_id AND ti.technician_id = `+arg(strings.ToUpper(f.Technician))+`
			  AND ti.status <> 'Canceled')`)
	}

	q := `
		SELECT ` + workorderColumns + `, c.name,
			count(i.workorder_items_id) FILTER (WHERE i.status <> 'Canceled'),
			count(i.workorder_items_id) FILTER (WHERE i.status = 'Completed'),
			COALESCE(array_agg(DISTINCT i.technician_id::text) FILTER (WHERE i.status <> 'Canceled'), '{}')
		FROM workorder w
		JOIN customer c ON c.customer_id = w.customer_id
		LEFT JOIN workorder_items i ON i.workorder_id = w.workorder_id
	`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " GROUP BY w.workorder_id, c.name ORDER BY w.date_created DESC, w.workorder_id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sm Summary
		dest := append(workorderDest(&sm.Workorder), &sm.CustomerName, &sm.ItemsTotal, &sm.ItemsDone, &sm.Technicians)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// pgTx is the Tx over one pgx transaction.
type pgTx struct {
	q          db.Querier
	stock      *inventory.Repo
	audit      *auditlog.Repo
	deliveries *deliveries.Repo
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		q:          tx,
		stock:      inventory.NewRepo(tx),
		audit:      auditlog.NewRepo(tx),
		deliveries: deliveries.NewRepo(tx),
	}
}

func (t *pgTx) LockStock(ctx context.Context, sku string) (int64, error) {
	return t.stock.LockStock(ctx, sku)
}

func (t *pgTx) WriteStock(ctx context.Context, sku string, stock int64) error {
	return t.stock.WriteStock(ctx, sku, stock)
}

func (t *pgTx) Insert(ctx context.Context, e auditlog.Entry) error {
	return t.audit.Insert(ctx, e)
}

func (t *pgTx) InsertDelivery(ctx context.Context, d deliveries.Delivery) (int64, error) {
	out, err := t.deliveries.Create(ctx, d)
	if err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (t *pgTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customer WHERE customer_id = $1)`, id).Scan(&ok)
	return ok, err
}

func (t *pgTx) LockWorkorder(ctx context.Context, id int64) (Workorder, error) {
	var w Workorder
	err := t.q.QueryRow(ctx, `
		SELECT `+workorderColumns+`
		FROM workorder w
		WHERE w.workorder_id = $1
		FOR UPDATE
	`, id).Scan(workorderDest(&w)...)
	if err != nil {
		if db.IsNoRows(err) {
			return Workorder{}, fmt.Errorf("%w: work order %d", ErrNotFound, id)
		}
		return Workorder{}, err
	}
	return w, nil
}

func (t *pgTx) LockItems(ctx context.Context, workorderID int64) ([]Item, error) {
	rows, err := t.q.Query(ctx, `
		SELECT `+itemColumns+`
		FROM workorder_items
		WHERE workorder_id = $1
		ORDER BY workorder_items_id
		FOR UPDATE
	`, workorderID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (t *pgTx) InsertWorkorder(ctx context.Context, w Workorder) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO workorder (invoice_id, customer_id, salesperson, delivery_suburb, delivery_state,
			delivery_charged, lead_time, estimated_completion, notes, status, outstanding_balance,
			important_flag)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING workorder_id
	`, w.InvoiceID, w.CustomerID, w.Salesperson, w.DeliverySuburb, w.DeliveryState,
		w.DeliveryCharged, w.LeadTime, w.EstimatedCompletion, w.Notes, string(w.Status),
		w.OutstandingBalance, w.Important).Scan(&id)
	return id, err
}

func (t *pgTx) InsertItem(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO workorder_items (workorder_id, product_id, quantity, condition, technician_id,
			status, workshop_duration, workshop_entered_at, item_sn, selling_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING workorder_items_id
	`, it.WorkorderID, it.ProductID, it.Quantity, it.Condition, it.TechnicianID,
		string(it.Status), it.WorkshopDuration, it.WorkshopEnteredAt, it.SerialNumber,
		it.SellingPrice).Scan(&id)
	return id, err
}

func (t *pgTx) UpdateWorkorder(ctx context.Context, id int64, c WorkorderChanges) error {
	var set setList
	if c.Status != nil {
		set.add("status", string(*c.Status))
	}
	if c.Notes != nil {
		set.add("notes", *c.Notes)
	}
	if c.DeliveryCharged != nil {
		set.add("delivery_charged", *c.DeliveryCharged)
	}
	if c.OutstandingBalance != nil {
		set.add("outstanding_balance", *c.OutstandingBalance)
	}
	if c.EstimatedCompletion.Set {
		set.add("estimated_completion", c.EstimatedCompletion.Ptr())
	}
	if c.Important != nil {
		set.add("important_flag", *c.Important)
	}
	return set.exec(ctx, t.q, "workorder", "workorder_id", id)
}

func (t *pgTx) UpdateItem(ctx context.Context, id int64, c ItemChanges) error {
	var set setList
	if c.TechnicianID != nil {
		set.add("technician_id", *c.TechnicianID)
	}
	if c.Status != nil {
		set.add("status", string(*c.Status))
	}
	if c.WorkshopDuration.Set {
		set.add("workshop_duration", c.WorkshopDuration.Ptr())
	}
	if c.WorkshopEnteredAt.Set {
		set.add("workshop_entered_at", c.WorkshopEnteredAt.Ptr())
	}
	if c.SerialNumber.Set {
		set.add("item_sn", c.SerialNumber.Ptr())
	}
	if c.SellingPrice.Set {
		set.add("selling_price", c.SellingPrice.Ptr())
	}
	return set.exec(ctx, t.q, "workorder_items", "workorder_items_id", id)
}

func (t *pgTx) DeleteItems(ctx context.Context, workorderID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM workorder_items WHERE workorder_id = $1`, workorderID)
	return err
}

func (t *pgTx) DeleteWorkorder(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM workorder WHERE workorder_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: work order %d", ErrNotFound, id)
	}
	return nil
}

// setList collects "col = $n" assignments. Column names come from the callers above, never
// from input.
type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) exec(ctx context.Context, q db.Querier, table, key string, id int64) error {
	if len(s.cols) == 0 {
		return nil
	}
	s.args = append(s.args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", table, strings.Join(s.cols, ", "), key, len(s.args))
	tag, err := q.Exec(ctx, sql, s.args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, table, id)
	}
	return nil
}
