package collections

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const columns = `collection_id, invoice_id, customer_id, pickup_suburb, pickup_state,
	collection_charged, removalist_id, collection_date, collection_status, notes, date_created`

func scan(row pgx.Row) (*Collection, error) {
	var c Collection
	if err := row.Scan(
		&c.ID,
		&c.InvoiceID,
		&c.CustomerID,
		&c.Suburb,
		&c.State,
		&c.Charged,
		&c.RemovalistID,
		&c.Date,
		&c.Status,
		&c.Notes,
		&c.CreatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, c Collection) (*Collection, error) {
	if c.Status == "" {
		c.Status = StatusToBeBooked
	}
	return scan(r.q.QueryRow(ctx, `
		INSERT INTO collection (invoice_id, customer_id, pickup_suburb, pickup_state,
			collection_charged, removalist_id, collection_date, collection_status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+columns,
		c.InvoiceID, c.CustomerID, c.Suburb, c.State, c.Charged, c.RemovalistID, c.Date,
		string(c.Status), c.Notes))
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Collection, error) {
	return scan(r.q.QueryRow(ctx, `SELECT `+columns+` FROM collection WHERE collection_id = $1`, id))
}

func (r *Repo) Update(ctx context.Context, c Collection) (*Collection, error) {
	return scan(r.q.QueryRow(ctx, `
		UPDATE collection SET invoice_id=$2, customer_id=$3, pickup_suburb=$4, pickup_state=$5,
			collection_charged=$6, removalist_id=$7, collection_date=$8, collection_status=$9, notes=$10
		WHERE collection_id=$1
		RETURNING `+columns,
		c.ID, c.InvoiceID, c.CustomerID, c.Suburb, c.State, c.Charged, c.RemovalistID, c.Date,
		string(c.Status), c.Notes))
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM collection WHERE collection_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns collections, newest first; an empty status matches all.
func (r *Repo) List(ctx context.Context, status Status) ([]Collection, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+columns+`
		FROM collection
		WHERE ($1::text = '' OR collection_status = $1)
		ORDER BY date_created DESC, collection_id DESC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Collection{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
