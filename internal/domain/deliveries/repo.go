package deliveries

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const columns = `delivery_id, invoice_id, customer_id, delivery_suburb, delivery_state,
	delivery_charged, delivery_quoted, removalist_id, delivery_date, delivery_status,
	notes, workorder_id, date_created`

func scan(row pgx.Row) (*Delivery, error) {
	var d Delivery
	if err := row.Scan(
		&d.ID,
		&d.InvoiceID,
		&d.CustomerID,
		&d.Suburb,
		&d.State,
		&d.Charged,
		&d.Quoted,
		&d.RemovalistID,
		&d.Date,
		&d.Status,
		&d.Notes,
		&d.WorkorderID,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) Create(ctx context.Context, d Delivery) (*Delivery, error) {
	if d.Status == "" {
		d.Status = StatusToBeBooked
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO delivery (invoice_id, customer_id, delivery_suburb, delivery_state,
			delivery_charged, delivery_quoted, removalist_id, delivery_date, delivery_status,
			notes, workorder_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+columns,
		d.InvoiceID, d.CustomerID, d.Suburb, d.State, d.Charged, d.Quoted,
		d.RemovalistID, d.Date, string(d.Status), d.Notes, d.WorkorderID)
	return scan(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Delivery, error) {
	d, err := scan(r.q.QueryRow(ctx, `SELECT `+columns+` FROM delivery WHERE delivery_id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// GetForUpdate locks the row until the caller's transaction ends.
func (r *Repo) GetForUpdate(ctx context.Context, id int64) (*Delivery, error) {
	d, err := scan(r.q.QueryRow(ctx, `SELECT `+columns+` FROM delivery WHERE delivery_id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// List returns deliveries, newest first; an empty status matches all.
func (r *Repo) List(ctx context.Context, status Status) ([]Delivery, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+columns+`
		FROM delivery
		WHERE ($1::text = '' OR delivery_status = $1)
		ORDER BY date_created DESC, delivery_id DESC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Delivery{}
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *Repo) CountByWorkorder(ctx context.Context, workorderID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM delivery WHERE workorder_id = $1`, workorderID).Scan(&n)
	return n, err
}

func (r *Repo) Update(ctx context.Context, d Delivery) (*Delivery, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE delivery SET
			invoice_id = $2, customer_id = $3, delivery_suburb = $4, delivery_state = $5,
			delivery_charged = $6, delivery_quoted = $7, removalist_id = $8, delivery_date = $9,
			delivery_status = $10, notes = $11, workorder_id = $12
		WHERE delivery_id = $1
		RETURNING `+columns,
		d.ID, d.InvoiceID, d.CustomerID, d.Suburb, d.State, d.Charged, d.Quoted,
		d.RemovalistID, d.Date, string(d.Status), d.Notes, d.WorkorderID)
	out, err := scan(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM delivery WHERE delivery_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
