package customers

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const returning = ` RETURNING customer_id, name, email, phone, address, notes, date_created`

func scan(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, c Customer) (*Customer, error) {
	return scan(r.q.QueryRow(ctx, `
		INSERT INTO customer (name, email, phone, address, notes)
		VALUES ($1,$2,$3,$4,$5)`+returning,
		strings.TrimSpace(c.Name), strings.TrimSpace(c.Email), strings.TrimSpace(c.Phone), c.Address, c.Notes))
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Customer, error) {
	return scan(r.q.QueryRow(ctx, `
		SELECT customer_id, name, email, phone, address, notes, date_created
		FROM customer WHERE customer_id = $1
	`, id))
}

func (r *Repo) Update(ctx context.Context, c Customer) (*Customer, error) {
	return scan(r.q.QueryRow(ctx, `
		UPDATE customer SET name=$2, email=$3, phone=$4, address=$5, notes=$6
		WHERE customer_id=$1`+returning,
		c.ID, strings.TrimSpace(c.Name), strings.TrimSpace(c.Email), strings.TrimSpace(c.Phone), c.Address, c.Notes))
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM customer WHERE customer_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns customers by name; search matches name, email or phone.
func (r *Repo) List(ctx context.Context, search string) ([]Customer, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
	rows, err := r.q.Query(ctx, `
		SELECT customer_id, name, email, phone, address, notes, date_created
		FROM customer
		WHERE LOWER(name) LIKE $1 OR LOWER(email) LIKE $1 OR phone LIKE $1
		ORDER BY name, customer_id
	`, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Customer{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
