package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
)

type Repo interface {
	CreateBook(ctx context.Context, title, author, category string, referenceOnly bool, copies int) (int64, error)
	AddCopies(ctx context.Context, bookID int64, n int) (int64, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)

	// Ledger primitives. Each is a single conditional UPDATE so the copy
	// counters never go negative or exceed total under concurrent callers.
	TryDecrementAvailable(ctx context.Context, bookID int64) (bool, error)
	IncrementAvailable(ctx context.Context, bookID int64) error
	DecrementTotal(ctx context.Context, bookID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) CreateBook(ctx context.Context, title, author, category string, referenceOnly bool, copies int) (int64, error) {
	const q = `
INSERT INTO books (title, author, category, is_active, is_reference_only, total_copies, available_copies)
VALUES ($1,$2,$3,TRUE,$4,$5,$5)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, title, author, category, referenceOnly, copies).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) AddCopies(ctx context.Context, bookID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, errors.New("n must be > 0")
	}
	const q = `
UPDATE books
SET total_copies = total_copies + $2,
    available_copies = available_copies + $2
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, bookID, n)
	if err != nil {
		return 0, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return 0, sql.ErrNoRows
	}
	return int64(n), nil
}

func (r *repo) List(ctx context.Context) ([]model.Book, error) {
	const q = `
SELECT id, title, author, category, is_active, is_reference_only, total_copies, available_copies
FROM books
ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.IsActive, &b.IsReferenceOnly, &b.TotalCopies, &b.AvailableCopies); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, author, category, is_active, is_reference_only, total_copies, available_copies
FROM books
WHERE id = $1`
	var b model.Book
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.IsActive, &b.IsReferenceOnly, &b.TotalCopies, &b.AvailableCopies); err != nil {
		return nil, err
	}
	return &b, nil
}

// TryDecrementAvailable takes one copy iff one is still available at write
// time. A false return means another caller won the last copy.
func (r *repo) TryDecrementAvailable(ctx context.Context, bookID int64) (bool, error) {
	const q = `
UPDATE books
SET available_copies = available_copies - 1
WHERE id = $1
  AND available_copies > 0`
	res, err := r.db.ExecContext(ctx, q, bookID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

// IncrementAvailable gives a copy back on cancellation, rejection or return.
// Guarded against exceeding total_copies; a zero-row result means the ledger
// was about to be corrupted and is escalated to the caller.
func (r *repo) IncrementAvailable(ctx context.Context, bookID int64) error {
	const q = `
UPDATE books
SET available_copies = available_copies + 1
WHERE id = $1
  AND available_copies < total_copies`
	res, err := r.db.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return errors.New("increment would exceed total copies")
	}
	return nil
}

// DecrementTotal permanently removes a copy (lost book).
func (r *repo) DecrementTotal(ctx context.Context, bookID int64) error {
	const q = `
UPDATE books
SET total_copies = total_copies - 1
WHERE id = $1
  AND total_copies > 0`
	res, err := r.db.ExecContext(ctx, q, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return errors.New("no copies left to remove")
	}
	return nil
}
