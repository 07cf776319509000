package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer"
	authctrl "github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/auth"
	bookctrl "github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/book"
	penaltyctrl "github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/penalty"
	reservationctrl "github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/controller/reservation"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/echoServer/validation"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/app/sweeper"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/config"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/notify"
	authrepo "github.com/LeeePH/integrated-esys-lib-lms-sub000/repository/auth"
	bookrepo "github.com/LeeePH/integrated-esys-lib-lms-sub000/repository/book"
	penaltyrepo "github.com/LeeePH/integrated-esys-lib-lms-sub000/repository/penalty"
	reservationrepo "github.com/LeeePH/integrated-esys-lib-lms-sub000/repository/reservation"
	userrepo "github.com/LeeePH/integrated-esys-lib-lms-sub000/repository/user"
	authsvc "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/auth"
	booksvc "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/book"
	penaltysvc "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/penalty"
	reservationsvc "github.com/LeeePH/integrated-esys-lib-lms-sub000/service/reservation"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func main() {

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// notification sink
	var sink notify.Notifier = &notify.LogNotifier{Log: log}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, notifications go to log only", "err", err)
		} else {
			sink = notify.NewRedis(rdb, log)
		}
	}

	// repos
	ar := authrepo.New(db)
	br := bookrepo.New(db)
	rr := reservationrepo.New(db)
	pr := penaltyrepo.New(db)
	ur := userrepo.New(db)

	// services
	as := authsvc.New(ar, cfg.JWTSecret)
	rs := reservationsvc.New(rr, br, br, ur, pr, sink, log, reservationsvc.Config{
		PickupWindow:        cfg.PickupWindow,
		LoanPeriod:          cfg.LoanPeriod,
		RenewalPeriod:       cfg.RenewalPeriod,
		SuspiciousWindow:    cfg.SuspiciousWindow,
		SuspiciousThreshold: cfg.SuspiciousThreshold,
		OverdueRatePerMin:   cfg.OverdueRatePerMin,
		DamageFee:           cfg.DamageFee,
		LostFee:             cfg.LostFee,
	})
	bs := booksvc.New(br, rs)
	ps := penaltysvc.New(pr, rr, sink, log, cfg.OverdueRatePerMin)

	// background sweeps
	sw := &sweeper.Sweeper{
		Expiry:       rs,
		Accrual:      ps,
		ExpiryEvery:  cfg.ExpirySweepEvery,
		AccrualEvery: cfg.AccrualSweepEvery,
		Log:          log,
	}
	sw.Start(ctx)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	reservationC := &reservationctrl.Controller{Svc: rs, V: v, Log: log}
	penaltyC := &penaltyctrl.Controller{Svc: ps, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	echoServer.Register(e, echoServer.C{
		Auth:        authC,
		Book:        bookC,
		Reservation: reservationC,
		Penalty:     penaltyC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
