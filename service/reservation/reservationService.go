// Package reservation owns the lifecycle of a reservation: the guarded state
// machine, the FIFO queue advancer and the expiry/reminder sweep. Every state
// change — interactive or sweep-driven — goes through the same transition
// primitives, so concurrent callers race on the store's conditional updates
// and exactly one wins.
package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"
)

type Config struct {
	PickupWindow        time.Duration
	LoanPeriod          time.Duration
	RenewalPeriod       time.Duration
	SuspiciousWindow    time.Duration
	SuspiciousThreshold int
	OverdueRatePerMin   float64
	DamageFee           float64
	LostFee             float64
}

// Repo is the reservation store contract. Transition methods return false
// when the guard lost the race, never an error for that case.
type Repo interface {
	Insert(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id int64) (*model.Reservation, error)
	HasActive(ctx context.Context, userID, bookID int64) (bool, error)
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
	OldestPending(ctx context.Context, bookID int64) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)

	MarkApproved(ctx context.Context, id int64, at time.Time, holdActive bool) (bool, error)
	MarkBorrowed(ctx context.Context, id int64, due time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id int64, reason string) (bool, error)
	MarkRejected(ctx context.Context, id int64) (bool, error)
	MarkReturnOutcome(ctx context.Context, id int64, outcome model.ReservationStatus, at time.Time) (bool, error)
	MarkRenewalRequested(ctx context.Context, id int64) (bool, error)
	ResolveRenewal(ctx context.Context, id int64, newDue *time.Time) (bool, error)
	ClearHold(ctx context.Context, id int64) (bool, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)

	ListExpiredApproved(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
	ListUnreminded(ctx context.Context) ([]model.Reservation, error)
}

// Ledger is the atomic copy-counter contract (repository/book).
type Ledger interface {
	TryDecrementAvailable(ctx context.Context, bookID int64) (bool, error)
	IncrementAvailable(ctx context.Context, bookID int64) error
	DecrementTotal(ctx context.Context, bookID int64) error
}

type Catalog interface {
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type Users interface {
	IsRestricted(ctx context.Context, id int64) (bool, error)
	HasUnpaidPenalties(ctx context.Context, id int64) (bool, error)
}

type Penalties interface {
	InsertOnce(ctx context.Context, p *model.Penalty) error
	HasUnpaidOfTypes(ctx context.Context, userID int64, types ...model.PenaltyType) (bool, error)
	RecomputeUserPending(ctx context.Context, userID int64) error
}

type ExpirySweepResult struct {
	Skipped   bool
	Cancelled int
	Reminded  int
	Advanced  int
}

type Service interface {
	Create(ctx context.Context, userID, bookID int64) (*model.Reservation, error)
	Approve(ctx context.Context, reservationID int64) error
	MarkAsBorrowed(ctx context.Context, reservationID int64) error
	Cancel(ctx context.Context, reservationID, byUserID int64, reason string) error
	Reject(ctx context.Context, reservationID int64) error
	ProcessReturn(ctx context.Context, reservationID int64, condition model.ReturnCondition) error
	RequestRenewal(ctx context.Context, reservationID, userID int64) error
	ApproveRenewal(ctx context.Context, reservationID int64) error
	RejectRenewal(ctx context.Context, reservationID int64) error

	ApproveNextAndHold(ctx context.Context, bookID int64) (bool, error)
	RunExpirySweep(ctx context.Context) (ExpirySweepResult, error)

	MyReservations(ctx context.Context, userID int64) ([]model.Reservation, error)
}

type service struct {
	r       Repo
	ledger  Ledger
	catalog Catalog
	users   Users
	pen     Penalties
	n       notify.Notifier
	log     *slog.Logger
	cfg     Config

	sweepMu sync.Mutex
	now     func() time.Time
}

func New(r Repo, ledger Ledger, catalog Catalog, users Users, pen Penalties, n notify.Notifier, log *slog.Logger, cfg Config) Service {
	return &service{
		r: r, ledger: ledger, catalog: catalog, users: users, pen: pen,
		n: n, log: log, cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create runs the admission guards, the abuse check, and inserts a Pending
// reservation. A burst of attempts turns into a terminal Flagged record
// instead of a Pending one; the caller gets SUSPICIOUS_ACTIVITY.
func (s *service) Create(ctx context.Context, userID, bookID int64) (*model.Reservation, error) {
	restricted, err := s.users.IsRestricted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if restricted {
		return nil, makeErr(ErrRestricted)
	}

	unpaid, err := s.users.HasUnpaidPenalties(ctx, userID)
	if err != nil {
		return nil, err
	}
	if unpaid {
		return nil, makeErr(ErrUnpaidPenalties)
	}

	b, err := s.catalog.Detail(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}
	if !b.IsActive {
		return nil, makeErr(ErrBookInactive)
	}
	if b.IsReferenceOnly {
		return nil, makeErr(ErrReferenceOnly)
	}

	dup, err := s.r.HasActive(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, makeErr(ErrDuplicateActive)
	}

	now := s.now()

	// Abuse check: sliding-window count over the reservation log itself.
	recent, err := s.r.CountSince(ctx, userID, now.Add(-s.cfg.SuspiciousWindow))
	if err != nil {
		return nil, err
	}
	if recent+1 >= s.cfg.SuspiciousThreshold {
		reason := fmt.Sprintf("%d reservation attempts within %s", recent+1, s.cfg.SuspiciousWindow)
		flagged := &model.Reservation{
			BookID:           bookID,
			UserID:           userID,
			Status:           model.ReservationFlagged,
			ReservationDate:  now,
			IsSuspicious:     true,
			SuspiciousReason: &reason,
			SuspiciousAt:     &now,
		}
		if err := s.r.Insert(ctx, flagged); err != nil {
			return nil, err
		}
		s.n.NotifyStaff(ctx, notify.SuspiciousAlert, map[string]any{
			"user_id":  userID,
			"book_id":  bookID,
			"attempts": recent + 1,
			"window":   s.cfg.SuspiciousWindow.String(),
		})
		return nil, makeErr(ErrSuspicious)
	}

	res := &model.Reservation{
		BookID:          bookID,
		UserID:          userID,
		Status:          model.ReservationPending,
		ReservationDate: now,
	}
	if err := s.r.Insert(ctx, res); err != nil {
		return nil, err
	}

	s.n.Notify(ctx, userID, notify.ReservationCreated, map[string]any{
		"reservation_id": res.ID,
		"book_id":        bookID,
	})
	s.n.NotifyStaff(ctx, notify.ReservationCreated, map[string]any{
		"reservation_id": res.ID,
		"user_id":        userID,
		"book_id":        bookID,
	})
	return res, nil
}

// Approve records intent only: no copy is decremented and no due date is set.
// Inventory is reserved at pickup (MarkAsBorrowed) or by the queue advancer.
func (s *service) Approve(ctx context.Context, reservationID int64) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.Status != model.ReservationPending {
		return makeErr(ErrInvalidState)
	}

	b, err := s.catalog.Detail(ctx, res.BookID)
	if err != nil {
		return err
	}
	if !b.IsActive {
		return makeErr(ErrBookInactive)
	}
	if b.IsReferenceOnly {
		return makeErr(ErrReferenceOnly)
	}
	if b.AvailableCopies <= 0 {
		return makeErr(ErrNoCopies)
	}

	now := s.now()
	ok, err := s.r.MarkApproved(ctx, reservationID, now, false)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	s.n.Notify(ctx, res.UserID, notify.ReservationApproved, map[string]any{
		"reservation_id":  reservationID,
		"book_id":         res.BookID,
		"pickup_deadline": now.Add(s.cfg.PickupWindow),
	})
	return nil
}

// MarkAsBorrowed confirms pickup. The loan clock starts here, not at
// approval. If the queue advancer pre-held a copy the hold is consumed;
// otherwise one copy is taken now.
func (s *service) MarkAsBorrowed(ctx context.Context, reservationID int64) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.Status != model.ReservationApproved {
		return makeErr(ErrInvalidState)
	}

	consumed, err := s.r.ClearHold(ctx, reservationID)
	if err != nil {
		return err
	}
	if !consumed {
		got, err := s.ledger.TryDecrementAvailable(ctx, res.BookID)
		if err != nil {
			return err
		}
		if !got {
			return makeErr(ErrNoCopies)
		}
	}

	due := s.now().Add(s.cfg.LoanPeriod)
	ok, err := s.r.MarkBorrowed(ctx, reservationID, due)
	if err != nil || !ok {
		// Either way we own one decremented copy that borrowing did not
		// consume; give it back.
		s.restock(ctx, res.BookID)
		if err != nil {
			return err
		}
		return makeErr(ErrInvalidState)
	}

	s.n.Notify(ctx, res.UserID, notify.BookBorrowed, map[string]any{
		"reservation_id": reservationID,
		"book_id":        res.BookID,
		"due_date":       due,
	})
	return nil
}

// Cancel works for the requester (ownership enforced) or for staff
// (byUserID = 0). Releasing a hold frees a copy and advances the queue.
func (s *service) Cancel(ctx context.Context, reservationID, byUserID int64, reason string) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if byUserID != 0 && res.UserID != byUserID {
		return makeErr(ErrNotOwner)
	}

	if reason == "" {
		reason = "cancelled"
	}
	ok, err := s.r.MarkCancelled(ctx, reservationID, reason)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	if s.releaseHold(ctx, reservationID, res.BookID) {
		if _, err := s.ApproveNextAndHold(ctx, res.BookID); err != nil {
			s.log.Error("queue advance after cancel failed", "book_id", res.BookID, "err", err)
		}
	}
	return nil
}

func (s *service) Reject(ctx context.Context, reservationID int64) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}

	ok, err := s.r.MarkRejected(ctx, reservationID)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	if s.releaseHold(ctx, reservationID, res.BookID) {
		if _, err := s.ApproveNextAndHold(ctx, res.BookID); err != nil {
			s.log.Error("queue advance after reject failed", "book_id", res.BookID, "err", err)
		}
	}
	return nil
}

// ProcessReturn closes the loan. Good and Damaged give the copy back and
// advance the queue; Lost removes the copy permanently. Damage/Lost/Late
// penalties are created once, with immutable amounts.
func (s *service) ProcessReturn(ctx context.Context, reservationID int64, condition model.ReturnCondition) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.Status != model.ReservationBorrowed {
		return makeErr(ErrInvalidState)
	}

	var outcome model.ReservationStatus
	switch condition {
	case model.ConditionGood:
		outcome = model.ReservationReturned
	case model.ConditionDamaged:
		outcome = model.ReservationDamaged
	case model.ConditionLost:
		outcome = model.ReservationLost
	default:
		return makeErr(ErrInvalidState)
	}

	now := s.now()
	ok, err := s.r.MarkReturnOutcome(ctx, reservationID, outcome, now)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	if outcome == model.ReservationLost {
		if err := s.ledger.DecrementTotal(ctx, res.BookID); err != nil {
			s.log.Error("ledger total decrement failed", "book_id", res.BookID, "err", err)
		}
	} else {
		if err := s.ledger.IncrementAvailable(ctx, res.BookID); err != nil {
			s.log.Error("ledger increment failed on return", "book_id", res.BookID, "err", err)
		}
	}

	s.createReturnPenalties(ctx, res, outcome, now)

	if err := s.pen.RecomputeUserPending(ctx, res.UserID); err != nil {
		s.log.Warn("pending penalty recompute failed", "user_id", res.UserID, "err", err)
	}

	if outcome != model.ReservationLost {
		if _, err := s.ApproveNextAndHold(ctx, res.BookID); err != nil {
			s.log.Error("queue advance after return failed", "book_id", res.BookID, "err", err)
		}
	}
	return nil
}

func (s *service) createReturnPenalties(ctx context.Context, res *model.Reservation, outcome model.ReservationStatus, now time.Time) {
	var created []*model.Penalty

	if res.DueDate != nil && now.After(*res.DueDate) {
		minutes := int64(now.Sub(*res.DueDate).Minutes())
		if minutes > 0 {
			created = append(created, &model.Penalty{
				ReservationID: res.ID,
				BookID:        res.BookID,
				UserID:        res.UserID,
				Type:          model.PenaltyLate,
				Amount:        float64(minutes) * s.cfg.OverdueRatePerMin,
				Description:   fmt.Sprintf("returned %d minute(s) late", minutes),
			})
		}
	}
	switch outcome {
	case model.ReservationDamaged:
		created = append(created, &model.Penalty{
			ReservationID: res.ID,
			BookID:        res.BookID,
			UserID:        res.UserID,
			Type:          model.PenaltyDamage,
			Amount:        s.cfg.DamageFee,
			Description:   "book returned damaged",
		})
	case model.ReservationLost:
		created = append(created, &model.Penalty{
			ReservationID: res.ID,
			BookID:        res.BookID,
			UserID:        res.UserID,
			Type:          model.PenaltyLost,
			Amount:        s.cfg.LostFee,
			Description:   "book reported lost",
		})
	}

	for _, p := range created {
		if err := s.pen.InsertOnce(ctx, p); err != nil {
			s.log.Error("return penalty insert failed", "reservation_id", res.ID, "type", p.Type, "err", err)
			continue
		}
		s.n.Notify(ctx, res.UserID, notify.PenaltyIssued, map[string]any{
			"reservation_id": res.ID,
			"penalty_type":   p.Type,
			"amount":         p.Amount,
		})
	}
}

func (s *service) RequestRenewal(ctx context.Context, reservationID, userID int64) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if userID != 0 && res.UserID != userID {
		return makeErr(ErrNotOwner)
	}
	if res.Status != model.ReservationBorrowed {
		return makeErr(ErrInvalidState)
	}
	if res.DueDate == nil || !s.now().Before(*res.DueDate) {
		return makeErr(ErrRenewalNotAllowed)
	}

	unpaid, err := s.pen.HasUnpaidOfTypes(ctx, res.UserID,
		model.PenaltyDamage, model.PenaltyLost, model.PenaltyLate)
	if err != nil {
		return err
	}
	if unpaid {
		return makeErr(ErrRenewalNotAllowed)
	}

	ok, err := s.r.MarkRenewalRequested(ctx, reservationID)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	s.n.NotifyStaff(ctx, notify.ReservationCreated, map[string]any{
		"reservation_id": reservationID,
		"event":          "renewal_requested",
	})
	return nil
}

func (s *service) ApproveRenewal(ctx context.Context, reservationID int64) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.Status != model.ReservationRenewal {
		return makeErr(ErrInvalidState)
	}
	if res.DueDate == nil {
		return makeErr(ErrInvalidState)
	}

	newDue := res.DueDate.Add(s.cfg.RenewalPeriod)
	ok, err := s.r.ResolveRenewal(ctx, reservationID, &newDue)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	s.n.Notify(ctx, res.UserID, notify.BookBorrowed, map[string]any{
		"reservation_id": reservationID,
		"event":          "renewal_approved",
		"due_date":       newDue,
	})
	return nil
}

func (s *service) RejectRenewal(ctx context.Context, reservationID int64) error {
	res, err := s.get(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.Status != model.ReservationRenewal {
		return makeErr(ErrInvalidState)
	}

	ok, err := s.r.ResolveRenewal(ctx, reservationID, nil)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrInvalidState)
	}

	s.n.Notify(ctx, res.UserID, notify.BookBorrowed, map[string]any{
		"reservation_id": reservationID,
		"event":          "renewal_rejected",
	})
	return nil
}

func (s *service) MyReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return s.r.ListByUser(ctx, userID)
}

func (s *service) get(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return res, nil
}

// releaseHold returns a pre-held copy to the shelf. The hold flag CAS makes
// sure only one of a racing cancel/expire/borrow actually acts on it.
func (s *service) releaseHold(ctx context.Context, reservationID, bookID int64) bool {
	released, err := s.r.ClearHold(ctx, reservationID)
	if err != nil {
		s.log.Error("hold release failed", "reservation_id", reservationID, "err", err)
		return false
	}
	if !released {
		return false
	}
	s.restock(ctx, bookID)
	return true
}

// restock is the compensating increment. A failure here means a copy has
// leaked out of the ledger, which is a consistency fault worth shouting about.
func (s *service) restock(ctx context.Context, bookID int64) {
	if err := s.ledger.IncrementAvailable(ctx, bookID); err != nil {
		s.log.Error("ledger compensation failed, copy leaked", "book_id", bookID, "err", err)
	}
}
