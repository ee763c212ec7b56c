package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const selectProduct = `
	SELECT p.sku, p.name, p.brand, COALESCE(b.name,''), p.stock, p.price
	FROM product p
	LEFT JOIN brand b ON b.brand_id = p.brand
`

func scan(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.SKU,
		&p.Name,
		&p.BrandID,
		&p.BrandName,
		&p.Stock,
		&p.Price,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a product with its opening stock.
func (r *Repo) Create(ctx context.Context, p Product) (*Product, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO product (sku, name, brand, stock, price)
		VALUES ($1,$2,$3,$4,$5)
	`, strings.TrimSpace(p.SKU), strings.TrimSpace(p.Name), p.BrandID, p.Stock, p.Price)
	if err != nil {
		return nil, err
	}
	return r.GetBySKU(ctx, p.SKU)
}

func (r *Repo) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	p, err := scan(r.q.QueryRow(ctx, selectProduct+` WHERE p.sku = $1`, strings.TrimSpace(sku)))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Update writes the descriptive fields. Stock only moves through inventory adjustments.
func (r *Repo) Update(ctx context.Context, p Product) (*Product, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE product SET name=$2, brand=$3, price=$4 WHERE sku=$1
	`, p.SKU, strings.TrimSpace(p.Name), p.BrandID, p.Price)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.GetBySKU(ctx, p.SKU)
}

func (r *Repo) Delete(ctx context.Context, sku string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM product WHERE sku=$1`, sku)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns products ordered by brand then name. Search matches name, SKU or brand,
// case-insensitively.
func (r *Repo) List(ctx context.Context, f Filter) ([]Product, error) {
	var where []string
	var args []any
	if f.BrandID > 0 {
		args = append(args, f.BrandID)
		where = append(where, fmt.Sprintf("p.brand = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(p.name) LIKE $%d OR LOWER(p.sku) LIKE $%d OR LOWER(b.name) LIKE $%d)", n, n, n))
	}
	if f.LowStock > 0 {
		args = append(args, f.LowStock)
		where = append(where, fmt.Sprintf("p.stock <= $%d", len(args)))
	}

	q := selectProduct
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.name NULLS LAST, p.name"

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
