// model/book.go
package model

type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Category        string `json:"category"`
	IsActive        bool   `json:"is_active"`
	IsReferenceOnly bool   `json:"is_reference_only"`
	TotalCopies     int64  `json:"total_copies"`
	AvailableCopies int64  `json:"available_copies"`
}

// CreateBookReq represents the staff book-creation payload
type CreateBookReq struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	Category        string `json:"category" validate:"required"`
	IsReferenceOnly bool   `json:"is_reference_only"`
	Copies          int    `json:"copies" validate:"gte=0"`
}

type AddCopiesReq struct {
	Copies int `json:"copies" validate:"required,gt=0"`
}
