package brands

import (
	"context"
	"strings"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

func (r *Repo) GetByID(ctx context.Context, id int64) (*Brand, error) {
	var b Brand
	err := r.q.QueryRow(ctx, `SELECT brand_id, name FROM brand WHERE brand_id = $1`, id).Scan(&b.ID, &b.Name)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) Create(ctx context.Context, name string) (*Brand, error) {
	var b Brand
	err := r.q.QueryRow(ctx, `
		INSERT INTO brand (name) VALUES ($1)
		RETURNING brand_id, name
	`, strings.TrimSpace(name)).Scan(&b.ID, &b.Name)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOrCreate returns the brand with this name, creating it when missing. Used by the
// stock-sheet import, where brands are given by name.
func (r *Repo) GetOrCreate(ctx context.Context, name string) (*Brand, error) {
	name = strings.TrimSpace(name)
	var b Brand
	err := r.q.QueryRow(ctx, `SELECT brand_id, name FROM brand WHERE name = $1`, name).Scan(&b.ID, &b.Name)
	if err == nil {
		return &b, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}

	err = r.q.QueryRow(ctx, `
		INSERT INTO brand (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING brand_id, name
	`, name).Scan(&b.ID, &b.Name)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) List(ctx context.Context) ([]Brand, error) {
	rows, err := r.q.Query(ctx, `SELECT brand_id, name FROM brand ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Brand{}
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) Rename(ctx context.Context, id int64, name string) (*Brand, error) {
	var b Brand
	err := r.q.QueryRow(ctx, `
		UPDATE brand SET name = $2 WHERE brand_id = $1
		RETURNING brand_id, name
	`, id, strings.TrimSpace(name)).Scan(&b.ID, &b.Name)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM brand WHERE brand_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
