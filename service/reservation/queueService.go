package reservation

import (
	"context"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"
)

// ApproveNextAndHold converts a free copy into a hold for the oldest waiting
// reservation. It is the single trigger for "a copy became free": returns,
// cancellations, rejections, expiries and new stock all land here.
//
// The copy is taken first and the status write second; if the status write
// loses (the reservation got cancelled in between), the decrement is rolled
// back and the advance reports false.
func (s *service) ApproveNextAndHold(ctx context.Context, bookID int64) (bool, error) {
	next, err := s.r.OldestPending(ctx, bookID)
	if err != nil {
		return false, err
	}
	if next == nil {
		return false, nil
	}

	got, err := s.ledger.TryDecrementAvailable(ctx, bookID)
	if err != nil {
		return false, err
	}
	if !got {
		return false, nil
	}

	now := s.now()
	ok, err := s.r.MarkApproved(ctx, next.ID, now, true)
	if err != nil || !ok {
		s.restock(ctx, bookID)
		if err != nil {
			return false, err
		}
		s.log.Warn("queue advance lost transition race", "reservation_id", next.ID, "book_id", bookID)
		return false, nil
	}

	s.n.Notify(ctx, next.UserID, notify.ReservationApproved, map[string]any{
		"reservation_id":  next.ID,
		"book_id":         bookID,
		"held":            true,
		"pickup_deadline": now.Add(s.cfg.PickupWindow),
	})
	return true, nil
}
