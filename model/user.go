package model

import "time"

type User struct {
	ID                  int64     `json:"id"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Email               string    `json:"email"`
	Username            string    `json:"username"`
	PasswordHash        string    `json:"-"`
	Role                string    `json:"role"`
	IsRestricted        bool      `json:"is_restricted"`
	HasPendingPenalties bool      `json:"has_pending_penalties"`
	PendingPenaltyTotal float64   `json:"pending_penalty_total"`
	CreatedAt           time.Time `json:"created_at"`
}

const (
	RoleMember = "member"
	RoleStaff  = "staff"
)

// RegisterReq represents user registration payload
type RegisterReq struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
}

// LoginReq represents login payload
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
