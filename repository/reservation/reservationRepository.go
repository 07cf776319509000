// repository/reservation/repo.go
package reservationrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
)

type Repo interface {
	Insert(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id int64) (*model.Reservation, error)
	HasActive(ctx context.Context, userID, bookID int64) (bool, error)
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
	OldestPending(ctx context.Context, bookID int64) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)

	// Guarded transitions. Every write re-checks the expected prior status
	// in its filter; a false return means the reservation was no longer in
	// that status and nothing changed.
	MarkApproved(ctx context.Context, id int64, at time.Time, holdActive bool) (bool, error)
	MarkBorrowed(ctx context.Context, id int64, due time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id int64, reason string) (bool, error)
	MarkRejected(ctx context.Context, id int64) (bool, error)
	MarkReturnOutcome(ctx context.Context, id int64, outcome model.ReservationStatus, at time.Time) (bool, error)
	MarkRenewalRequested(ctx context.Context, id int64) (bool, error)
	ResolveRenewal(ctx context.Context, id int64, newDue *time.Time) (bool, error)

	// ClearHold flips inventory_hold_active off iff it was on. Exactly one
	// caller wins, so a held copy is consumed or released exactly once.
	ClearHold(ctx context.Context, id int64) (bool, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)

	// Sweep queries.
	ListExpiredApproved(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
	ListUnreminded(ctx context.Context) ([]model.Reservation, error)
	ListOverdueBorrowed(ctx context.Context, now time.Time) ([]model.Reservation, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const cols = `id, book_id, user_id, status, reservation_date, approval_date, due_date,
	inventory_hold_active, pickup_reminder_sent, is_suspicious, suspicious_reason,
	suspicious_detected_at, cancel_reason, returned_at`

func scanOne(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	res := &model.Reservation{}
	err := row.Scan(
		&res.ID, &res.BookID, &res.UserID, &res.Status, &res.ReservationDate,
		&res.ApprovalDate, &res.DueDate, &res.InventoryHoldActive, &res.PickupReminderSent,
		&res.IsSuspicious, &res.SuspiciousReason, &res.SuspiciousAt,
		&res.CancelReason, &res.ReturnedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repo) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `
INSERT INTO reservations
	(book_id, user_id, status, reservation_date, is_suspicious, suspicious_reason, suspicious_detected_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		res.BookID, res.UserID, res.Status, res.ReservationDate,
		res.IsSuspicious, res.SuspiciousReason, res.SuspiciousAt,
	).Scan(&res.ID)
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	return scanOne(r.db.QueryRowContext(ctx, `SELECT `+cols+` FROM reservations WHERE id = $1`, id))
}

func (r *repo) HasActive(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM reservations
	WHERE user_id = $1 AND book_id = $2
	  AND status IN ('PENDING','APPROVED','BORROWED','RENEWAL_REQUESTED'))`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, err
}

func (r *repo) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	const q = `
SELECT COUNT(*) FROM reservations
WHERE user_id = $1 AND reservation_date >= $2`
	var n int
	err := r.db.QueryRowContext(ctx, q, userID, since).Scan(&n)
	return n, err
}

func (r *repo) OldestPending(ctx context.Context, bookID int64) (*model.Reservation, error) {
	const q = `
SELECT ` + cols + `
FROM reservations
WHERE book_id = $1 AND status = 'PENDING'
ORDER BY reservation_date, id
LIMIT 1`
	res, err := scanOne(r.db.QueryRowContext(ctx, q, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	const q = `
SELECT ` + cols + `
FROM reservations
WHERE user_id = $1
ORDER BY reservation_date DESC, id DESC`
	return r.list(ctx, q, userID)
}

// Guarded transitions

func (r *repo) guarded(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func (r *repo) MarkApproved(ctx context.Context, id int64, at time.Time, holdActive bool) (bool, error) {
	const q = `
UPDATE reservations
SET status = 'APPROVED',
    approval_date = $2,
    inventory_hold_active = $3,
    pickup_reminder_sent = FALSE
WHERE id = $1 AND status = 'PENDING'`
	return r.guarded(ctx, q, id, at, holdActive)
}

func (r *repo) MarkBorrowed(ctx context.Context, id int64, due time.Time) (bool, error) {
	const q = `
UPDATE reservations
SET status = 'BORROWED',
    due_date = $2
WHERE id = $1 AND status = 'APPROVED'`
	return r.guarded(ctx, q, id, due)
}

func (r *repo) MarkCancelled(ctx context.Context, id int64, reason string) (bool, error) {
	const q = `
UPDATE reservations
SET status = 'CANCELLED',
    cancel_reason = $2
WHERE id = $1 AND status IN ('PENDING','APPROVED')`
	return r.guarded(ctx, q, id, reason)
}

func (r *repo) MarkRejected(ctx context.Context, id int64) (bool, error) {
	const q = `
UPDATE reservations
SET status = 'REJECTED'
WHERE id = $1 AND status IN ('PENDING','APPROVED')`
	return r.guarded(ctx, q, id)
}

func (r *repo) MarkReturnOutcome(ctx context.Context, id int64, outcome model.ReservationStatus, at time.Time) (bool, error) {
	const q = `
UPDATE reservations
SET status = $2,
    returned_at = $3
WHERE id = $1 AND status = 'BORROWED'`
	return r.guarded(ctx, q, id, outcome, at)
}

func (r *repo) MarkRenewalRequested(ctx context.Context, id int64) (bool, error) {
	const q = `
UPDATE reservations
SET status = 'RENEWAL_REQUESTED'
WHERE id = $1 AND status = 'BORROWED'`
	return r.guarded(ctx, q, id)
}

func (r *repo) ResolveRenewal(ctx context.Context, id int64, newDue *time.Time) (bool, error) {
	const q = `
UPDATE reservations
SET status = 'BORROWED',
    due_date = COALESCE($2, due_date)
WHERE id = $1 AND status = 'RENEWAL_REQUESTED'`
	return r.guarded(ctx, q, id, newDue)
}

func (r *repo) ClearHold(ctx context.Context, id int64) (bool, error) {
	const q = `
UPDATE reservations
SET inventory_hold_active = FALSE
WHERE id = $1 AND inventory_hold_active`
	return r.guarded(ctx, q, id)
}

func (r *repo) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	const q = `
UPDATE reservations
SET pickup_reminder_sent = TRUE
WHERE id = $1 AND status = 'APPROVED' AND pickup_reminder_sent = FALSE`
	return r.guarded(ctx, q, id)
}

// Sweep queries

func (r *repo) ListExpiredApproved(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	const q = `
SELECT ` + cols + `
FROM reservations
WHERE status = 'APPROVED' AND approval_date < $1
ORDER BY approval_date`
	return r.list(ctx, q, cutoff)
}

func (r *repo) ListUnreminded(ctx context.Context) ([]model.Reservation, error) {
	const q = `
SELECT ` + cols + `
FROM reservations
WHERE status = 'APPROVED' AND pickup_reminder_sent = FALSE`
	return r.list(ctx, q)
}

func (r *repo) ListOverdueBorrowed(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	const q = `
SELECT ` + cols + `
FROM reservations
WHERE status = 'BORROWED' AND due_date < $1`
	return r.list(ctx, q, now)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
