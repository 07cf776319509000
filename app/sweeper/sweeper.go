// Package sweeper drives the two periodic sweeps. The services themselves
// are single-flight; the sweeper only owns the tickers.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/LeeePH/integrated-esys-lib-lms-sub000/service/penalty"
	"github.com/LeeePH/integrated-esys-lib-lms-sub000/service/reservation"
)

type ExpiryRunner interface {
	RunExpirySweep(ctx context.Context) (reservation.ExpirySweepResult, error)
}

type AccrualRunner interface {
	RunOverdueAccrualSweep(ctx context.Context) (penalty.AccrualSweepResult, error)
}

type Sweeper struct {
	Expiry       ExpiryRunner
	Accrual      AccrualRunner
	ExpiryEvery  time.Duration
	AccrualEvery time.Duration
	Log          *slog.Logger
}

// Start launches both loops and returns. Each loop runs its sweep once
// immediately, then on every tick until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx, "expiry", s.ExpiryEvery, func() {
		out, err := s.Expiry.RunExpirySweep(ctx)
		if err != nil {
			s.Log.Error("expiry sweep failed", "err", err)
			return
		}
		if out.Cancelled > 0 || out.Reminded > 0 {
			s.Log.Info("expiry sweep",
				"cancelled", out.Cancelled, "reminded", out.Reminded, "advanced", out.Advanced)
		}
	})
	go s.loop(ctx, "accrual", s.AccrualEvery, func() {
		out, err := s.Accrual.RunOverdueAccrualSweep(ctx)
		if err != nil {
			s.Log.Error("accrual sweep failed", "err", err)
			return
		}
		if out.Accrued > 0 {
			s.Log.Info("accrual sweep", "accrued", out.Accrued, "issued", out.Issued)
		}
	})
}

func (s *Sweeper) loop(ctx context.Context, name string, every time.Duration, run func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("sweep loop stopped", "sweep", name)
			return
		case <-ticker.C:
			run()
		}
	}
}
