// model/reservation.go
package model

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationApproved  ReservationStatus = "APPROVED"
	ReservationBorrowed  ReservationStatus = "BORROWED"
	ReservationRejected  ReservationStatus = "REJECTED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationFlagged   ReservationStatus = "FLAGGED"
	ReservationRenewal   ReservationStatus = "RENEWAL_REQUESTED"
	ReservationReturned  ReservationStatus = "RETURNED"
	ReservationDamaged   ReservationStatus = "DAMAGED"
	ReservationLost      ReservationStatus = "LOST"
)

// Active statuses block a second reservation for the same (book, user) pair.
func (s ReservationStatus) Active() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationBorrowed, ReservationRenewal:
		return true
	}
	return false
}

type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "GOOD"
	ConditionDamaged ReturnCondition = "DAMAGED"
	ConditionLost    ReturnCondition = "LOST"
)

type Reservation struct {
	ID                  int64             `json:"id"`
	BookID              int64             `json:"book_id"`
	UserID              int64             `json:"user_id"`
	Status              ReservationStatus `json:"status"`
	ReservationDate     time.Time         `json:"reservation_date"`
	ApprovalDate        *time.Time        `json:"approval_date,omitempty"`
	DueDate             *time.Time        `json:"due_date,omitempty"`
	InventoryHoldActive bool              `json:"inventory_hold_active"`
	PickupReminderSent  bool              `json:"pickup_reminder_sent"`
	IsSuspicious        bool              `json:"is_suspicious"`
	SuspiciousReason    *string           `json:"suspicious_reason,omitempty"`
	SuspiciousAt        *time.Time        `json:"suspicious_detected_at,omitempty"`
	CancelReason        *string           `json:"cancel_reason,omitempty"`
	ReturnedAt          *time.Time        `json:"returned_at,omitempty"`
}
