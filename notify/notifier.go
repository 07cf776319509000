// Package notify is the fire-and-forget notification sink. Delivery failures
// are logged and swallowed; they never fail the triggering transition.
package notify

import "context"

type Kind string

const (
	ReservationCreated  Kind = "RESERVATION_CREATED"
	ReservationApproved Kind = "RESERVATION_APPROVED"
	ReservationExpired  Kind = "RESERVATION_EXPIRED"
	BookBorrowed        Kind = "BOOK_BORROWED"
	PickupReminder      Kind = "PICKUP_REMINDER"
	PenaltyIssued       Kind = "PENALTY_ISSUED"
	SuspiciousAlert     Kind = "SUSPICIOUS_ACTIVITY_ALERT"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, kind Kind, payload map[string]any)
	NotifyStaff(ctx context.Context, kind Kind, payload map[string]any)
}
