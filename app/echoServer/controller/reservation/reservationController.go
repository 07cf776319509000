// app/echoServer/controller/reservation/reservationController.go
package reservation

import (
	"log/slog"
	"net/http"
	"strconv"

	rs "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/reservation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/reservations
func (h *Controller) Create(c echo.Context) error {
	var req CreateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	res, err := h.Svc.Create(c.Request().Context(), uid, req.BookID)
	if err != nil {
		return h.mapErr(c, err, "reservation create")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"status":         res.Status,
	})
}

// POST /v1/reservations/:id/approve (staff)
func (h *Controller) Approve(c echo.Context) error {
	return h.transition(c, "approve", func(id int64) error {
		return h.Svc.Approve(c.Request().Context(), id)
	})
}

// POST /v1/reservations/:id/borrow (staff)
func (h *Controller) Borrow(c echo.Context) error {
	return h.transition(c, "borrow", func(id int64) error {
		return h.Svc.MarkAsBorrowed(c.Request().Context(), id)
	})
}

// POST /v1/reservations/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	var req CancelReq
	_ = c.Bind(&req) // reason is optional

	uid, _ := c.Get("user_id").(int64)
	role, _ := c.Get("role").(string)
	if role == "staff" {
		uid = 0 // staff may cancel anyone's reservation
	}
	return h.transition(c, "cancel", func(id int64) error {
		return h.Svc.Cancel(c.Request().Context(), id, uid, req.Reason)
	})
}

// POST /v1/reservations/:id/reject (staff)
func (h *Controller) Reject(c echo.Context) error {
	return h.transition(c, "reject", func(id int64) error {
		return h.Svc.Reject(c.Request().Context(), id)
	})
}

// POST /v1/reservations/:id/return (staff)
func (h *Controller) Return(c echo.Context) error {
	var req ReturnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	return h.transition(c, "return", func(id int64) error {
		return h.Svc.ProcessReturn(c.Request().Context(), id, req.Condition)
	})
}

// POST /v1/reservations/:id/renew
func (h *Controller) RequestRenewal(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	return h.transition(c, "renew", func(id int64) error {
		return h.Svc.RequestRenewal(c.Request().Context(), id, uid)
	})
}

// POST /v1/reservations/:id/renew/approve (staff)
func (h *Controller) ApproveRenewal(c echo.Context) error {
	return h.transition(c, "renew approve", func(id int64) error {
		return h.Svc.ApproveRenewal(c.Request().Context(), id)
	})
}

// POST /v1/reservations/:id/renew/reject (staff)
func (h *Controller) RejectRenewal(c echo.Context) error {
	return h.transition(c, "renew reject", func(id int64) error {
		return h.Svc.RejectRenewal(c.Request().Context(), id)
	})
}

// GET /v1/reservations/my
func (h *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.MyReservations(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("my reservations", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

func (h *Controller) transition(c echo.Context, op string, fn func(id int64) error) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := fn(id); err != nil {
		return h.mapErr(c, err, op)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

func (h *Controller) mapErr(c echo.Context, err error, op string) error {
	code := rs.Code(err)
	switch code {
	case rs.ErrRestricted, rs.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"message": err.Error(), "error_code": code})
	case rs.ErrUnpaidPenalties, rs.ErrBookInactive, rs.ErrReferenceOnly,
		rs.ErrDuplicateActive, rs.ErrRenewalNotAllowed:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error(), "error_code": code})
	case rs.ErrNoCopies, rs.ErrInvalidState:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error(), "error_code": code})
	case rs.ErrSuspicious:
		return c.JSON(http.StatusTooManyRequests, echo.Map{"message": "suspicious activity detected", "error_code": code})
	case rs.ErrBookNotFound, rs.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error(), "error_code": code})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
