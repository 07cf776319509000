package reservation

import "github.com/LeeePH/integrated-esys-lib-lms-sub000/model"

type CreateReservationReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

type ReturnReq struct {
	Condition model.ReturnCondition `json:"condition" validate:"required,oneof=GOOD DAMAGED LOST"`
}
