package users

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/ops-portal/internal/infra/db"
)

type Repo struct {
	q db.Querier
}

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const selectUser = `SELECT user_id, name, email, password_hash, access, TRIM(code), date_created FROM users`

func scan(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Access, &u.Code, &u.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	return scan(r.q.QueryRow(ctx, selectUser+` WHERE user_id = $1`, id))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scan(r.q.QueryRow(ctx, selectUser+` WHERE email = $1`, NormalizeEmail(email)))
}

func (r *Repo) Create(ctx context.Context, u User) (*User, error) {
	return scan(r.q.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, access, code)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING user_id, name, email, password_hash, access, TRIM(code), date_created
	`, strings.TrimSpace(u.Name), NormalizeEmail(u.Email), u.PasswordHash, string(u.Access), strings.ToUpper(u.Code)))
}

// Update writes profile fields; the password hash has its own method.
func (r *Repo) Update(ctx context.Context, u User) (*User, error) {
	return scan(r.q.QueryRow(ctx, `
		UPDATE users SET name=$2, email=$3, access=$4, code=$5
		WHERE user_id=$1
		RETURNING user_id, name, email, password_hash, access, TRIM(code), date_created
	`, u.ID, strings.TrimSpace(u.Name), NormalizeEmail(u.Email), string(u.Access), strings.ToUpper(u.Code)))
}

func (r *Repo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := r.q.Exec(ctx, `UPDATE users SET password_hash=$2 WHERE user_id=$1`, id, hash)
	return err
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE user_id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.q.Query(ctx, selectUser+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ListTechnicians returns users with technician access, by name.
func (r *Repo) ListTechnicians(ctx context.Context) ([]Technician, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id, name, TRIM(code) FROM users WHERE access = $1 ORDER BY name
	`, string(AccessTechnician))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Technician{}
	for rows.Next() {
		var t Technician
		if err := rows.Scan(&t.ID, &t.Name, &t.Code); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
