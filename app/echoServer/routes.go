package echoServer

import (
	"net/http"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/auth"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/book"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/penalty"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/reservation"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/jwtx"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth        *auth.Controller
	Book        *book.Controller
	Reservation *reservation.Controller
	Penalty     *penalty.Controller
	JWTSecret   string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id + role extraction
	authed.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			if role, err := jwtx.RoleFromContext(ctx); err == nil {
				ctx.Set("role", role)
			}
			return next(ctx)
		}
	})

	staff := RequireStaff()

	// Books
	authed.GET("/books", c.Book.List)
	authed.GET("/books/:id", c.Book.Detail)
	authed.POST("/books", c.Book.Create, staff)
	authed.POST("/books/:id/copies", c.Book.AddCopies, staff)

	// Reservations
	authed.POST("/reservations", c.Reservation.Create)
	authed.GET("/reservations/my", c.Reservation.My)
	authed.POST("/reservations/:id/cancel", c.Reservation.Cancel)
	authed.POST("/reservations/:id/renew", c.Reservation.RequestRenewal)
	authed.POST("/reservations/:id/approve", c.Reservation.Approve, staff)
	authed.POST("/reservations/:id/borrow", c.Reservation.Borrow, staff)
	authed.POST("/reservations/:id/reject", c.Reservation.Reject, staff)
	authed.POST("/reservations/:id/return", c.Reservation.Return, staff)
	authed.POST("/reservations/:id/renew/approve", c.Reservation.ApproveRenewal, staff)
	authed.POST("/reservations/:id/renew/reject", c.Reservation.RejectRenewal, staff)

	// Penalties
	authed.GET("/penalties/my", c.Penalty.My)
	authed.POST("/penalties/:id/pay", c.Penalty.Pay)
}
