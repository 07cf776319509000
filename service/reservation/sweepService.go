package reservation

import (
	"context"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"
)

// RunExpirySweep cancels Approved reservations whose pickup window lapsed and
// sends at-most-one pickup reminder per reservation. Safe to run concurrently
// with interactive calls: every mutation is a guarded transition. A tick that
// finds the previous one still running returns immediately (single-flight).
func (s *service) RunExpirySweep(ctx context.Context) (ExpirySweepResult, error) {
	if !s.sweepMu.TryLock() {
		return ExpirySweepResult{Skipped: true}, nil
	}
	defer s.sweepMu.Unlock()

	var out ExpirySweepResult
	now := s.now()

	expired, err := s.r.ListExpiredApproved(ctx, now.Add(-s.cfg.PickupWindow))
	if err != nil {
		return out, err
	}
	for _, res := range expired {
		ok, err := s.r.MarkCancelled(ctx, res.ID, "pickup window expired")
		if err != nil {
			s.log.Error("expiry cancel failed", "reservation_id", res.ID, "err", err)
			continue
		}
		if !ok {
			// picked up or cancelled since we listed it
			continue
		}
		out.Cancelled++

		s.releaseHold(ctx, res.ID, res.BookID)

		s.n.Notify(ctx, res.UserID, notify.ReservationExpired, map[string]any{
			"reservation_id": res.ID,
			"book_id":        res.BookID,
			"reason":         "pickup window expired",
		})

		// Whether or not a hold was released, a copy may be free for this
		// book (no-hold approvals never took one). The advancer no-ops when
		// nothing is available or nobody is waiting.
		advanced, err := s.ApproveNextAndHold(ctx, res.BookID)
		if err != nil {
			s.log.Error("queue advance after expiry failed", "book_id", res.BookID, "err", err)
			continue
		}
		if advanced {
			out.Advanced++
		}
	}

	// Reminders are fire-and-forget and never block cancellation.
	unreminded, err := s.r.ListUnreminded(ctx)
	if err != nil {
		return out, err
	}
	for _, res := range unreminded {
		if res.ApprovalDate == nil {
			continue
		}
		ok, err := s.r.MarkReminderSent(ctx, res.ID)
		if err != nil {
			s.log.Error("reminder mark failed", "reservation_id", res.ID, "err", err)
			continue
		}
		if !ok {
			continue
		}
		s.n.Notify(ctx, res.UserID, notify.PickupReminder, map[string]any{
			"reservation_id":  res.ID,
			"book_id":         res.BookID,
			"pickup_deadline": res.ApprovalDate.Add(s.cfg.PickupWindow),
		})
		out.Reminded++
	}

	return out, nil
}
