// repository/penalty/repo.go
package penaltyrepo

import (
	"context"
	"database/sql"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
)

type Repo interface {
	// UpsertOverdue recomputes the single Overdue penalty for a reservation.
	// Returns true when a new row was inserted (first accrual tick).
	UpsertOverdue(ctx context.Context, reservationID, bookID, userID int64, amount float64, description string) (bool, error)

	// InsertOnce creates an immutable return-time penalty (Damage/Lost/Late).
	InsertOnce(ctx context.Context, p *model.Penalty) error

	HasUnpaidOfTypes(ctx context.Context, userID int64, types ...model.PenaltyType) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Penalty, error)
	MarkPaid(ctx context.Context, penaltyID, userID int64) (bool, error)

	// RecomputeUserPending refreshes the cached has_pending_penalties flag
	// and pending total on the user row from the penalties table.
	RecomputeUserPending(ctx context.Context, userID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) UpsertOverdue(ctx context.Context, reservationID, bookID, userID int64, amount float64, description string) (bool, error) {
	const q = `
INSERT INTO penalties (reservation_id, book_id, user_id, penalty_type, amount, description)
VALUES ($1,$2,$3,'OVERDUE',$4,$5)
ON CONFLICT (reservation_id, penalty_type)
DO UPDATE SET amount = EXCLUDED.amount,
              description = EXCLUDED.description,
              updated_at = NOW()
RETURNING (xmax = 0) AS inserted`
	var inserted bool
	if err := r.db.QueryRowContext(ctx, q, reservationID, bookID, userID, amount, description).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *repo) InsertOnce(ctx context.Context, p *model.Penalty) error {
	const q = `
INSERT INTO penalties (reservation_id, book_id, user_id, penalty_type, amount, description)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (reservation_id, penalty_type) DO NOTHING
RETURNING id`
	err := r.db.QueryRowContext(ctx, q,
		p.ReservationID, p.BookID, p.UserID, p.Type, p.Amount, p.Description,
	).Scan(&p.ID)
	if err == sql.ErrNoRows {
		// already created by an earlier return attempt
		return nil
	}
	return err
}

func (r *repo) HasUnpaidOfTypes(ctx context.Context, userID int64, types ...model.PenaltyType) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM penalties
	WHERE user_id = $1 AND is_paid = FALSE AND penalty_type = ANY($2))`
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID, names).Scan(&ok)
	return ok, err
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Penalty, error) {
	const q = `
SELECT id, reservation_id, book_id, user_id, penalty_type, amount, description, is_paid, created_at, updated_at
FROM penalties
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Penalty
	for rows.Next() {
		var p model.Penalty
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.BookID, &p.UserID, &p.Type, &p.Amount, &p.Description, &p.IsPaid, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) MarkPaid(ctx context.Context, penaltyID, userID int64) (bool, error) {
	const q = `
UPDATE penalties
SET is_paid = TRUE, updated_at = NOW()
WHERE id = $1 AND user_id = $2 AND is_paid = FALSE`
	res, err := r.db.ExecContext(ctx, q, penaltyID, userID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func (r *repo) RecomputeUserPending(ctx context.Context, userID int64) error {
	const q = `
UPDATE users
SET has_pending_penalties = EXISTS (
		SELECT 1 FROM penalties WHERE user_id = $1 AND is_paid = FALSE),
    pending_penalty_total = COALESCE((
		SELECT SUM(amount) FROM penalties WHERE user_id = $1 AND is_paid = FALSE), 0)
WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
