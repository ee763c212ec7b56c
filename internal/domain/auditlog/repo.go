package auditlog

import (
	"context"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

func (r *Repo) Insert(ctx context.Context, e Entry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO workorder_logs (workorder_id, workorder_items_id, event_type, user_id, item_status)
		VALUES ($1,$2,$3,$4,$5)
	`, e.WorkorderID, e.ItemID, string(e.Event), e.Actor, e.ItemStatus)
	return err
}

func (r *Repo) InsertAccount(ctx context.Context, e AccountEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO account_logs (user_id, event_type) VALUES ($1,$2)
	`, e.UserID, string(e.Event))
	return err
}

// ListByWorkorder returns the activity log, newest first.
func (r *Repo) ListByWorkorder(ctx context.Context, workorderID int64) ([]Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, workorder_id, workorder_items_id, event_type, user_id, item_status, created_at
		FROM workorder_logs
		WHERE workorder_id = $1
		ORDER BY created_at DESC, id DESC
	`, workorderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.WorkorderID, &e.ItemID, &e.Event, &e.Actor, &e.ItemStatus, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID int64, limit int) ([]AccountEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, event_type, created_at
		FROM account_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AccountEntry{}
	for rows.Next() {
		var e AccountEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Event, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
