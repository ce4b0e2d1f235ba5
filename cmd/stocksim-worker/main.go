// stocksim-worker drives a standalone market simulation: it advances the
// whole universe on a fixed cadence and logs a tick summary. Useful for
// demos and for watching the walk without the API in front of it.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocksim/internal/config"
	"stocksim/internal/market"
	"stocksim/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var sim *market.Simulator
	if cfg.MarketSeed != 0 {
		sim = market.NewSeeded(logger, cfg.MarketSeed)
	} else {
		sim = market.New(logger)
	}

	if cfg.RunOnce {
		tick(sim, logger)
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.MarketTickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.MarketTickEvery.String(), "universe", sim.UniverseSize())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			tick(sim, logger)
		}
	}
}

func tick(sim *market.Simulator, logger *slog.Logger) {
	stocks := sim.TopStocks()
	indices := sim.Indices(market.Range1H)
	metrics.MarketTicks.Inc()
	if len(stocks) == 0 {
		return
	}
	top := stocks[0]
	logger.Info("market tick complete",
		"stocks", len(stocks),
		"top_symbol", top.Symbol,
		"top_change_pct", top.ChangePercent,
		"nifty50", indices[0].Value,
		"sensex", indices[1].Value,
	)
}
