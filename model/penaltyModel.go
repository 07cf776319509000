package model

import "time"

type PenaltyType string

const (
	PenaltyOverdue PenaltyType = "OVERDUE"
	PenaltyDamage  PenaltyType = "DAMAGE"
	PenaltyLost    PenaltyType = "LOST"
	PenaltyLate    PenaltyType = "LATE"
)

type Penalty struct {
	ID            int64       `json:"id"`
	ReservationID int64       `json:"reservation_id"`
	BookID        int64       `json:"book_id"`
	UserID        int64       `json:"user_id"`
	Type          PenaltyType `json:"penalty_type"`
	Amount        float64     `json:"amount"`
	Description   string      `json:"description"`
	IsPaid        bool        `json:"is_paid"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
