package removalists

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

func scan(row pgx.Row) (*Removalist, error) {
	var r Removalist
	if err := row.Scan(&r.ID, &r.Name, &r.Phone, &r.Email, &r.Notes); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (r *Repo) Create(ctx context.Context, m Removalist) (*Removalist, error) {
	return scan(r.q.QueryRow(ctx, `
		INSERT INTO removalist (name, phone, email, notes)
		VALUES ($1,$2,$3,$4)
		RETURNING removalist_id, name, phone, email, notes
	`, strings.TrimSpace(m.Name), m.Phone, m.Email, m.Notes))
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Removalist, error) {
	return scan(r.q.QueryRow(ctx, `
		SELECT removalist_id, name, phone, email, notes FROM removalist WHERE removalist_id = $1
	`, id))
}

func (r *Repo) Update(ctx context.Context, m Removalist) (*Removalist, error) {
	return scan(r.q.QueryRow(ctx, `
		UPDATE removalist SET name=$2, phone=$3, email=$4, notes=$5
		WHERE removalist_id=$1
		RETURNING removalist_id, name, phone, email, notes
	`, m.ID, strings.TrimSpace(m.Name), m.Phone, m.Email, m.Notes))
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM removalist WHERE removalist_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context) ([]Removalist, error) {
	rows, err := r.q.Query(ctx, `SELECT removalist_id, name, phone, email, notes FROM removalist ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Removalist{}
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
