package reservation

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"
)

var errInvariant = errors.New("copy counter invariant violated")

// memStore is an in-memory stand-in for the Postgres repositories. Guarded
// transitions behave like the real conditional updates: check-and-write under
// one lock, false when the guard does not match.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	reservations map[int64]*model.Reservation
	books        map[int64]*model.Book
	penalties    []*model.Penalty
	restricted   map[int64]bool
	unpaid       map[int64]bool
	recomputed   map[int64]int

	failApprove bool // next MarkApproved loses its guard
}

func newMemStore() *memStore {
	return &memStore{
		reservations: make(map[int64]*model.Reservation),
		books:        make(map[int64]*model.Book),
		restricted:   make(map[int64]bool),
		unpaid:       make(map[int64]bool),
		recomputed:   make(map[int64]int),
	}
}

func (m *memStore) addBook(id, total, available int64) {
	m.books[id] = &model.Book{
		ID: id, Title: "t", Author: "a", Category: "c",
		IsActive: true, TotalCopies: total, AvailableCopies: available,
	}
}

// Repo

func (m *memStore) Insert(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	res.ID = m.nextID
	cp := *res
	m.reservations[res.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *res
	return &cp, nil
}

func (m *memStore) HasActive(_ context.Context, userID, bookID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.reservations {
		if res.UserID == userID && res.BookID == bookID && res.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountSince(_ context.Context, userID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, res := range m.reservations {
		if res.UserID == userID && !res.ReservationDate.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) OldestPending(_ context.Context, bookID int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *model.Reservation
	for _, res := range m.reservations {
		if res.BookID != bookID || res.Status != model.ReservationPending {
			continue
		}
		if oldest == nil || res.ReservationDate.Before(oldest.ReservationDate) ||
			(res.ReservationDate.Equal(oldest.ReservationDate) && res.ID < oldest.ID) {
			oldest = res
		}
	}
	if oldest == nil {
		return nil, nil
	}
	cp := *oldest
	return &cp, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, res := range m.reservations {
		if res.UserID == userID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) MarkApproved(_ context.Context, id int64, at time.Time, holdActive bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApprove {
		m.failApprove = false
		return false, nil
	}
	res, ok := m.reservations[id]
	if !ok || res.Status != model.ReservationPending {
		return false, nil
	}
	res.Status = model.ReservationApproved
	t := at
	res.ApprovalDate = &t
	res.InventoryHoldActive = holdActive
	res.PickupReminderSent = false
	return true, nil
}

func (m *memStore) MarkBorrowed(_ context.Context, id int64, due time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.Status != model.ReservationApproved {
		return false, nil
	}
	res.Status = model.ReservationBorrowed
	d := due
	res.DueDate = &d
	return true, nil
}

func (m *memStore) MarkCancelled(_ context.Context, id int64, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || (res.Status != model.ReservationPending && res.Status != model.ReservationApproved) {
		return false, nil
	}
	res.Status = model.ReservationCancelled
	res.CancelReason = &reason
	return true, nil
}

func (m *memStore) MarkRejected(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || (res.Status != model.ReservationPending && res.Status != model.ReservationApproved) {
		return false, nil
	}
	res.Status = model.ReservationRejected
	return true, nil
}

func (m *memStore) MarkReturnOutcome(_ context.Context, id int64, outcome model.ReservationStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.Status != model.ReservationBorrowed {
		return false, nil
	}
	res.Status = outcome
	t := at
	res.ReturnedAt = &t
	return true, nil
}

func (m *memStore) MarkRenewalRequested(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.Status != model.ReservationBorrowed {
		return false, nil
	}
	res.Status = model.ReservationRenewal
	return true, nil
}

func (m *memStore) ResolveRenewal(_ context.Context, id int64, newDue *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.Status != model.ReservationRenewal {
		return false, nil
	}
	res.Status = model.ReservationBorrowed
	if newDue != nil {
		d := *newDue
		res.DueDate = &d
	}
	return true, nil
}

func (m *memStore) ClearHold(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || !res.InventoryHoldActive {
		return false, nil
	}
	res.InventoryHoldActive = false
	return true, nil
}

func (m *memStore) MarkReminderSent(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.Status != model.ReservationApproved || res.PickupReminderSent {
		return false, nil
	}
	res.PickupReminderSent = true
	return true, nil
}

func (m *memStore) ListExpiredApproved(_ context.Context, cutoff time.Time) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, res := range m.reservations {
		if res.Status == model.ReservationApproved && res.ApprovalDate != nil && res.ApprovalDate.Before(cutoff) {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memStore) ListUnreminded(_ context.Context) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, res := range m.reservations {
		if res.Status == model.ReservationApproved && !res.PickupReminderSent {
			out = append(out, *res)
		}
	}
	return out, nil
}

// Ledger + Catalog

func (m *memStore) TryDecrementAvailable(_ context.Context, bookID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.AvailableCopies <= 0 {
		return false, nil
	}
	b.AvailableCopies--
	return true, nil
}

func (m *memStore) IncrementAvailable(_ context.Context, bookID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return errInvariant
	}
	b.AvailableCopies++
	return nil
}

func (m *memStore) DecrementTotal(_ context.Context, bookID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.TotalCopies <= 0 {
		return errInvariant
	}
	b.TotalCopies--
	return nil
}

func (m *memStore) Detail(_ context.Context, id int64) (*model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

// Users

func (m *memStore) IsRestricted(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restricted[id], nil
}

func (m *memStore) HasUnpaidPenalties(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unpaid[id], nil
}

// Penalties

func (m *memStore) InsertOnce(_ context.Context, p *model.Penalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.penalties {
		if existing.ReservationID == p.ReservationID && existing.Type == p.Type {
			return nil
		}
	}
	cp := *p
	m.penalties = append(m.penalties, &cp)
	return nil
}

func (m *memStore) HasUnpaidOfTypes(_ context.Context, userID int64, types ...model.PenaltyType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.penalties {
		if p.UserID != userID || p.IsPaid {
			continue
		}
		for _, t := range types {
			if p.Type == t {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memStore) RecomputeUserPending(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputed[userID]++
	return nil
}

func (m *memStore) penaltiesFor(reservationID int64) []model.Penalty {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Penalty
	for _, p := range m.penalties {
		if p.ReservationID == reservationID {
			out = append(out, *p)
		}
	}
	return out
}

func (m *memStore) book(id int64) model.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.books[id]
}

func (m *memStore) reservation(id int64) model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.reservations[id]
}

// memNotifier records deliveries instead of sending them.
type memNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	staff  []sentEvent
}

type sentEvent struct {
	UserID  int64
	Kind    notify.Kind
	Payload map[string]any
}

func (n *memNotifier) Notify(_ context.Context, userID int64, kind notify.Kind, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Kind: kind, Payload: payload})
}

func (n *memNotifier) NotifyStaff(_ context.Context, kind notify.Kind, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.staff = append(n.staff, sentEvent{Kind: kind, Payload: payload})
}

func (n *memNotifier) count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Kind == kind {
			c++
		}
	}
	return c
}
