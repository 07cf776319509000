package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/model"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"

	"github.com/stretchr/testify/require"
)

// Scenario: an approved-and-held reservation that is never picked up gets
// auto-cancelled, the copy is freed, and the next waitlisted student takes it.
func TestExpirySweep_CancelsAndAdvances(t *testing.T) {
	ctx := context.Background()
	svc, st, n, clk := newTestEngine(t)
	st.addBook(1, 1, 1)

	resA, err := svc.Create(ctx, 100, 1)
	require.NoError(t, err)
	resB, err := svc.Create(ctx, 200, 1)
	require.NoError(t, err)

	advanced, err := svc.ApproveNextAndHold(ctx, 1)
	require.NoError(t, err)
	require.True(t, advanced)
	require.EqualValues(t, 0, st.book(1).AvailableCopies)

	clk.Advance(3 * time.Minute) // past the 2m pickup window

	out, err := svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.False(t, out.Skipped)
	require.Equal(t, 1, out.Cancelled)
	require.Equal(t, 1, out.Advanced)

	gotA := st.reservation(resA.ID)
	require.Equal(t, model.ReservationCancelled, gotA.Status)
	require.False(t, gotA.InventoryHoldActive)

	// the released copy was immediately re-held for B
	gotB := st.reservation(resB.ID)
	require.Equal(t, model.ReservationApproved, gotB.Status)
	require.True(t, gotB.InventoryHoldActive)
	require.EqualValues(t, 0, st.book(1).AvailableCopies)

	require.Equal(t, 1, n.count(notify.ReservationExpired))
}

func TestExpirySweep_RestoresCopyWithoutWaitlist(t *testing.T) {
	ctx := context.Background()
	svc, st, _, clk := newTestEngine(t)
	st.addBook(1, 1, 1)

	res, err := svc.Create(ctx, 100, 1)
	require.NoError(t, err)
	advanced, err := svc.ApproveNextAndHold(ctx, 1)
	require.NoError(t, err)
	require.True(t, advanced)

	clk.Advance(3 * time.Minute)

	out, err := svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Cancelled)
	require.Equal(t, 0, out.Advanced)

	require.Equal(t, model.ReservationCancelled, st.reservation(res.ID).Status)
	require.EqualValues(t, 1, st.book(1).AvailableCopies, "hold must be released back to the shelf")
}

// An interactively approved reservation holds no copy, but its expiry still
// frees the book for the waitlist: the advancer must run after every
// auto-cancel, not only when a hold was released.
func TestExpirySweep_AdvancesAfterNoHoldExpiry(t *testing.T) {
	ctx := context.Background()
	svc, st, _, clk := newTestEngine(t)
	st.addBook(1, 1, 1)

	resA, err := svc.Create(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, resA.ID))
	require.False(t, st.reservation(resA.ID).InventoryHoldActive)
	require.EqualValues(t, 1, st.book(1).AvailableCopies)

	resB, err := svc.Create(ctx, 200, 1)
	require.NoError(t, err)

	clk.Advance(3 * time.Minute)

	out, err := svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Cancelled)
	require.Equal(t, 1, out.Advanced)

	require.Equal(t, model.ReservationCancelled, st.reservation(resA.ID).Status)

	gotB := st.reservation(resB.ID)
	require.Equal(t, model.ReservationApproved, gotB.Status)
	require.True(t, gotB.InventoryHoldActive)
	require.EqualValues(t, 0, st.book(1).AvailableCopies)
}

func TestExpirySweep_LeavesFreshApprovalsAlone(t *testing.T) {
	ctx := context.Background()
	svc, st, _, clk := newTestEngine(t)
	st.addBook(1, 1, 1)

	res, err := svc.Create(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, res.ID))

	clk.Advance(time.Minute) // still inside the window

	out, err := svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, out.Cancelled)
	require.Equal(t, model.ReservationApproved, st.reservation(res.ID).Status)
}

func TestExpirySweep_ReminderSentAtMostOnce(t *testing.T) {
	ctx := context.Background()
	svc, st, n, _ := newTestEngine(t)
	st.addBook(1, 1, 1)

	res, err := svc.Create(ctx, 100, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, res.ID))

	out, err := svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.Reminded)
	require.True(t, st.reservation(res.ID).PickupReminderSent)

	// second tick, no time passed: nothing new
	out, err = svc.RunExpirySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, out.Reminded)
	require.Equal(t, 1, n.count(notify.PickupReminder))
}

func TestExpirySweep_SingleFlight(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestEngine(t)

	svc.sweepMu.Lock()
	out, err := svc.RunExpirySweep(ctx)
	svc.sweepMu.Unlock()

	require.NoError(t, err)
	require.True(t, out.Skipped)
}
