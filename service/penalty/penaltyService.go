// Package penalty owns money penalties: the periodic overdue accrual sweep,
// listing and payment.
package penalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"
)

type ErrCode string

const (
	ErrNotFound ErrCode = "NOT_FOUND"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo interface {
	UpsertOverdue(ctx context.Context, reservationID, bookID, userID int64, amount float64, description string) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Penalty, error)
	MarkPaid(ctx context.Context, penaltyID, userID int64) (bool, error)
	RecomputeUserPending(ctx context.Context, userID int64) error
}

type Reservations interface {
	ListOverdueBorrowed(ctx context.Context, now time.Time) ([]model.Reservation, error)
}

type AccrualSweepResult struct {
	Skipped bool
	Accrued int
	Issued  int
}

type Service interface {
	RunOverdueAccrualSweep(ctx context.Context) (AccrualSweepResult, error)
	MyPenalties(ctx context.Context, userID int64) ([]model.Penalty, error)
	Pay(ctx context.Context, penaltyID, userID int64) error
}

type service struct {
	r    Repo
	res  Reservations
	n    notify.Notifier
	log  *slog.Logger
	rate float64

	sweepMu sync.Mutex
	now     func() time.Time
}

func New(r Repo, res Reservations, n notify.Notifier, log *slog.Logger, ratePerMin float64) Service {
	return &service{
		r: r, res: res, n: n, log: log, rate: ratePerMin,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// RunOverdueAccrualSweep recomputes the Overdue penalty for every borrowed
// reservation past its due date. The amount is derived fresh from elapsed
// time each tick — recompute, not accumulate — so repeated ticks with no time
// passing are idempotent and the value only grows as minutes do. The
// "penalty issued" notification goes out once, on first insert.
func (s *service) RunOverdueAccrualSweep(ctx context.Context) (AccrualSweepResult, error) {
	if !s.sweepMu.TryLock() {
		return AccrualSweepResult{Skipped: true}, nil
	}
	defer s.sweepMu.Unlock()

	var out AccrualSweepResult
	now := s.now()

	overdue, err := s.res.ListOverdueBorrowed(ctx, now)
	if err != nil {
		return out, err
	}

	touched := make(map[int64]struct{})
	for _, res := range overdue {
		if res.DueDate == nil {
			continue
		}
		minutes := int64(now.Sub(*res.DueDate).Minutes())
		if minutes <= 0 {
			continue
		}

		amount := float64(minutes) * s.rate
		desc := fmt.Sprintf("overdue by %d minute(s)", minutes)
		inserted, err := s.r.UpsertOverdue(ctx, res.ID, res.BookID, res.UserID, amount, desc)
		if err != nil {
			s.log.Error("overdue upsert failed", "reservation_id", res.ID, "err", err)
			continue
		}
		out.Accrued++
		touched[res.UserID] = struct{}{}

		if inserted {
			out.Issued++
			s.n.Notify(ctx, res.UserID, notify.PenaltyIssued, map[string]any{
				"reservation_id": res.ID,
				"penalty_type":   model.PenaltyOverdue,
				"amount":         amount,
			})
		}
	}

	// The pending flag gates reservation creation, so refresh it for every
	// user the sweep touched.
	for userID := range touched {
		if err := s.r.RecomputeUserPending(ctx, userID); err != nil {
			s.log.Warn("pending penalty recompute failed", "user_id", userID, "err", err)
		}
	}

	return out, nil
}

func (s *service) MyPenalties(ctx context.Context, userID int64) ([]model.Penalty, error) {
	return s.r.ListByUser(ctx, userID)
}

func (s *service) Pay(ctx context.Context, penaltyID, userID int64) error {
	ok, err := s.r.MarkPaid(ctx, penaltyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrNotFound)
	}
	return s.r.RecomputeUserPending(ctx, userID)
}
