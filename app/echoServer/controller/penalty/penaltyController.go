// app/echoServer/controller/penalty/penaltyController.go
package penalty

import (
	"log/slog"
	"net/http"
	"strconv"

	ps "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/penalty"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ps.Service
	Log *slog.Logger
}

// GET /v1/penalties/my
func (h *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.MyPenalties(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("my penalties", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/penalties/:id/pay
func (h *Controller) Pay(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.Pay(c.Request().Context(), id, uid); err != nil {
		if ps.Code(err) == ps.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "penalty not found or already paid"})
		}
		h.Log.Error("penalty pay", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "paid"})
}
