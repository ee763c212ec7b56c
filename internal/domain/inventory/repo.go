package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/ops-portal/internal/infra/db"
	"github.com/Spok95/ops-portal/internal/infra/metrics"
)

type Repo struct{ q db.Querier }

// NewRepo binds the repo to q; pass the request's pgx.Tx so the row locks live as long as
// the transaction.
func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

func (r *Repo) LockStock(ctx context.Context, sku string) (int64, error) {
	var stock int64
	err := r.q.QueryRow(ctx, `
		SELECT stock
		FROM product
		WHERE sku = $1
		FOR UPDATE
	`, sku).Scan(&stock)
	if db.IsNoRows(err) {
		return 0, ErrProductNotFound
	}
	return stock, err
}

func (r *Repo) WriteStock(ctx context.Context, sku string, stock int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE product SET stock = $2 WHERE sku = $1`, sku, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Taker applies stock-takes in their own transaction: all lines or none.
type Taker struct{ pool *pgxpool.Pool }

func NewTaker(pool *pgxpool.Pool) *Taker { return &Taker{pool: pool} }

func (t *Taker) Apply(ctx context.Context, counts []Count) (TakeResult, error) {
	var res TakeResult
	err := db.InTx(ctx, t.pool, func(tx pgx.Tx) error {
		var err error
		res, err = StockTake(ctx, NewRepo(tx), counts)
		return err
	})
	if err != nil {
		return TakeResult{}, err
	}
	for _, adj := range res.Changed {
		metrics.StockAdjustments.WithLabelValues(string(adj.Direction())).Inc()
	}
	return res, nil
}
