package userrepo

import (
	"context"
	"database/sql"
)

type Repo interface {
	IsRestricted(ctx context.Context, id int64) (bool, error)
	HasUnpaidPenalties(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) IsRestricted(ctx context.Context, id int64) (bool, error) {
	var restricted bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_restricted FROM users WHERE id = $1`, id).Scan(&restricted)
	return restricted, err
}

func (r *repo) HasUnpaidPenalties(ctx context.Context, id int64) (bool, error) {
	var pending bool
	err := r.db.QueryRowContext(ctx,
		`SELECT has_pending_penalties FROM users WHERE id = $1`, id).Scan(&pending)
	return pending, err
}
