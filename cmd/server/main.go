package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"github.com/mmuslimabdulj/goat-rooms/internal/config"
	httpHandler "github.com/mmuslimabdulj/goat-rooms/internal/delivery/http"
	"github.com/mmuslimabdulj/goat-rooms/internal/delivery/ws"
	"github.com/mmuslimabdulj/goat-rooms/internal/middleware"
)

// limiterSweepInterval is how often idle per-IP limiters are pruned
const limiterSweepInterval = time.Minute

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	// Initialize dependencies
	registry := ws.NewRegistry(ws.Options{
		DefaultRoomID:   cfg.DefaultRoomID,
		MaxUsersPerRoom: cfg.MaxUsersPerRoom,
		RoomIdleTTL:     cfg.RoomIdleTTL,
		Logger:          logger,
	})
	tracker := ws.NewTracker(logger)
	handler := httpHandler.NewHandler(cfg, registry, tracker, nil, logger)

	apiLimiter := middleware.NewIPRateLimiter(cfg.APILimit(), cfg.APIBurst)
	wsLimiter := middleware.NewIPRateLimiter(cfg.WSLimit(), cfg.WSBurst)

	background, stopBackground := context.WithCancel(context.Background())
	go registry.RunJanitor(background, cfg.RoomSweepInterval)
	go apiLimiter.Run(background, limiterSweepInterval)
	go wsLimiter.Run(background, limiterSweepInterval)

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(apiLimiter, wsLimiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening",
			"addr", server.Addr, "default_room", cfg.DefaultRoomID, "max_users_per_room", cfg.MaxUsersPerRoom)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			logger.Info("shutting down server")
			return server.Shutdown(ctx)
		},
		"websockets": func(ctx context.Context) error {
			n := tracker.CloseAll()
			logger.Info("closed websocket connections", "count", n)
			return nil
		},
		"background": func(ctx context.Context) error {
			stopBackground()
			return nil
		},
	})

	exitCode := <-wait
	logger.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
}
