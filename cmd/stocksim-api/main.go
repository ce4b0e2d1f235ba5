package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocksim/internal/api"
	"stocksim/internal/auth"
	"stocksim/internal/config"
	"stocksim/internal/db"
	"stocksim/internal/game"
	"stocksim/internal/market"
	"stocksim/internal/mentor"
	"stocksim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPI()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var gameStore game.Store
	if cfg.DevMode {
		logger.Warn("dev mode: using in-memory store")
		gameStore = store.NewMemory()
	} else {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
		gameStore = pg
	}

	seed := cfg.MarketSeed
	var sim *market.Simulator
	if seed != 0 {
		sim = market.NewSeeded(logger, seed)
	} else {
		sim = market.New(logger)
	}

	var authClient api.AuthProvider = auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if cfg.DevMode && cfg.SupabaseURL == "" {
		logger.Warn("dev mode: accepting any bearer token")
		authClient = devAuth{}
	}
	mentorClient := mentor.New(cfg.MentorURL, cfg.MentorRatePerMin, logger)
	gameSvc := game.NewService(gameStore, sim, logger)

	server := api.New(cfg, logger, authClient, gameSvc, sim, mentorClient)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stocksim api listening", "addr", cfg.Addr, "universe", sim.UniverseSize())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// devAuth accepts every token and maps it to a single local user. Only
// reachable in dev mode with no Supabase URL configured.
type devAuth struct{}

func (devAuth) SignUp(context.Context, string, string) (auth.Session, error) {
	return devSession(), nil
}

func (devAuth) Login(context.Context, string, string) (auth.Session, error) {
	return devSession(), nil
}

func (devAuth) VerifyAccessToken(context.Context, string) (auth.User, error) {
	return auth.User{ID: "dev", Email: "dev@localhost"}, nil
}

func devSession() auth.Session {
	return auth.Session{
		AccessToken: "dev-token",
		TokenType:   "bearer",
		User:        auth.User{ID: "dev", Email: "dev@localhost"},
	}
}
