package waitlist

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const selectEntry = `
	SELECT w.waitlist_id, w.customer_id, c.name, w.brand_id, w.product_id, w.notes, w.status, w.date_created
	FROM waitlist w
	JOIN customer c ON c.customer_id = w.customer_id
`

func scan(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(
		&e.ID,
		&e.CustomerID,
		&e.CustomerName,
		&e.BrandID,
		&e.ProductID,
		&e.Notes,
		&e.Status,
		&e.CreatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repo) Create(ctx context.Context, e Entry) (*Entry, error) {
	if e.Status == "" {
		e.Status = StatusWaiting
	}
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO waitlist (customer_id, brand_id, product_id, notes, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING waitlist_id
	`, e.CustomerID, e.BrandID, e.ProductID, e.Notes, string(e.Status)).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Entry, error) {
	return scan(r.q.QueryRow(ctx, selectEntry+` WHERE w.waitlist_id = $1`, id))
}

func (r *Repo) Update(ctx context.Context, e Entry) (*Entry, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE waitlist SET customer_id=$2, brand_id=$3, product_id=$4, notes=$5, status=$6
		WHERE waitlist_id=$1
	`, e.ID, e.CustomerID, e.BrandID, e.ProductID, e.Notes, string(e.Status))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, e.ID)
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM waitlist WHERE waitlist_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns entries oldest first so the longest wait is served first. An empty status
// matches all.
func (r *Repo) List(ctx context.Context, status Status) ([]Entry, error) {
	rows, err := r.q.Query(ctx, selectEntry+`
		WHERE ($1::text = '' OR w.status = $1)
		ORDER BY w.date_created, w.waitlist_id
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
