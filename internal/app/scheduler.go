package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/fincept/terminal/internal/models"
)

// warmConcurrency bounds the number of parallel provider fetches per tick.
const warmConcurrency = 4

// scheduler keeps the cache warm for a configured set of stock symbols so
// interactive requests hit fresh data instead of waiting on providers.
type scheduler struct {
	cron   *cron.Cron
	cancel context.CancelFunc
}

// StartScheduler launches the background refresh job when enabled in
// config. The cron spec defaults to "@every 5m".
func (a *App) StartScheduler() error {
	if !a.Config.Scheduler.Enabled || len(a.Config.Scheduler.Symbols) == 0 {
		a.Logger.Debug().Msg("Scheduler disabled or no symbols configured")
		return nil
	}

	spec := a.Config.Scheduler.Spec
	if spec == "" {
		spec = "@every 5m"
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		a.refreshSymbols(ctx)
	})
	if err != nil {
		cancel()
		return err
	}

	c.Start()
	a.scheduler = &scheduler{cron: c, cancel: cancel}

	a.Logger.Info().
		Str("spec", spec).
		Int("symbols", len(a.Config.Scheduler.Symbols)).
		Msg("Refresh scheduler started")

	return nil
}

// StopScheduler stops the refresh job and waits for an in-flight tick.
func (a *App) StopScheduler() {
	if a.scheduler == nil {
		return
	}
	a.scheduler.cancel()
	stopCtx := a.scheduler.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		a.Logger.Warn().Msg("Scheduler stop timed out")
	}
	a.scheduler = nil
	a.Logger.Info().Msg("Refresh scheduler stopped")
}

// refreshSymbols fetches each configured symbol with bounded concurrency.
// Failures are already folded into Result envelopes by the manager, so the
// tick itself never errors.
func (a *App) refreshSymbols(ctx context.Context) {
	start := time.Now()

	// Drop stale stock entries so every symbol is re-fetched this tick.
	a.DataSources.ClearCache(models.DataTypeStocks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	var failed atomic.Int64
	for _, symbol := range a.Config.Scheduler.Symbols {
		g.Go(func() error {
			res := a.DataSources.GetStockData(gctx, symbol, "1d", "5m")
			if !res.Success {
				failed.Add(1)
				a.Logger.Warn().
					Str("symbol", symbol).
					Str("error", res.Error).
					Msg("Scheduled refresh failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	a.Logger.Info().
		Int("symbols", len(a.Config.Scheduler.Symbols)).
		Int64("failed", failed.Load()).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled refresh complete")
}
