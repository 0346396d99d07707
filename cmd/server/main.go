package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/link-shortener/internal/clock"
	"github.com/darkodi/link-shortener/internal/config"
	"github.com/darkodi/link-shortener/internal/events"
	"github.com/darkodi/link-shortener/internal/eviction"
	"github.com/darkodi/link-shortener/internal/handler"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/middleware"
	"github.com/darkodi/link-shortener/internal/reachability"
	"github.com/darkodi/link-shortener/internal/repository"
	"github.com/darkodi/link-shortener/internal/service"
	"github.com/darkodi/link-shortener/internal/store"
	"github.com/darkodi/link-shortener/internal/token"
	"github.com/darkodi/link-shortener/internal/validator"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	fmt.Println("📋 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Storage: %s %s\n", cfg.Storage.Driver, cfg.Storage.Path)
		fmt.Printf("   Base URL: %s\n", cfg.Links.BaseURL)
	}

	// ============================================================
	// Initialize logger
	// ============================================================
	fmt.Println("📝 Initializing logger...")
	log := logger.New(cfg.Log)

	log.Info("starting link-shortener",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ============================================================
	// INITIALIZE STORAGE
	// ============================================================
	fmt.Println("🗄️  Opening storage...")
	repo, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err.Error())
		os.Exit(1)
	}

	clk := clock.System{}
	links := store.New(repo, clk, log)
	if err := links.Load(ctx); err != nil {
		// an unreadable snapshot starts the service empty and read-only on disk
		log.Error("failed to load snapshot, starting empty with saving disabled", "error", err.Error())
	}

	// ============================================================
	// EVICTION AND EVENTS
	// ============================================================
	notifiers := eviction.Notifiers{eviction.NewLogNotifier(log)}

	var redisClient *redis.Client
	if cfg.Events.Enabled {
		log.Info("connecting to Redis for eviction events...", "addr", cfg.Storage.RedisAddr)
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", "error", err.Error())
			os.Exit(1)
		}
		notifiers = append(notifiers, events.NewRedisPublisher(redisClient, cfg.Events.Channel, log))
		log.Info("eviction events enabled", "channel", cfg.Events.Channel)
	}

	engine := eviction.NewEngine(links, clk, notifiers, log)

	// ============================================================
	// INITIALIZE SERVICE
	// ============================================================
	fmt.Println("⚙️  Initializing service...")
	var checker reachability.Checker = reachability.NewHTTPChecker(cfg.Reachability.Timeout, log)
	if cfg.Reachability.CacheTTL > 0 {
		checker = reachability.NewCachedChecker(checker, cfg.Reachability.CacheTTL)
	}

	svc := service.NewLinkService(service.Options{
		Store:   links,
		Sweeper: engine,
		Tokens:  token.NewRandomGenerator(),
		Checker: checker,
		Clock:   clk,
		Policy: service.Policy{
			MaxLifetime: cfg.Links.MaxLifetime,
			VisitFloor:  cfg.Links.VisitFloor,
		},
		BaseURL: cfg.Links.BaseURL,
		Logger:  log,
	})

	fmt.Println("🌐 Setting up HTTP handlers...")
	h := handler.NewLinkHandler(svc, validator.NewURLValidator(), log)
	router := h.SetupRoutes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	middlewares := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logging(log),
	}
	// Add rate limiter if enabled
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			middleware.RateLimiterConfig{
				Rate:     cfg.RateLimit.Rate,
				Burst:    cfg.RateLimit.Burst,
				Interval: cfg.RateLimit.Interval,
				Cleanup:  cfg.RateLimit.Cleanup,
			},
			log,
		)
		go rateLimiter.Run(ctx)
		middlewares = append(middlewares, rateLimiter.Middleware())
		log.Info("rate limiter enabled",
			"rate", cfg.RateLimit.Rate,
			"burst", cfg.RateLimit.Burst,
		)
	}

	wrappedRouter := middleware.Chain(router, middlewares...)

	// ============================================================
	// START BACKGROUND SWEEP
	// ============================================================
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		engine.Run(ctx, cfg.Links.SweepInterval)
	}()

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel to track server errors
	serverErr := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST   /api/users         - Log in or register by name")
			fmt.Println("  POST   /api/links         - Create short link")
			fmt.Println("  GET    /api/links         - List your links")
			fmt.Println("  GET    /api/links/{token} - Link statistics")
			fmt.Println("  PATCH  /api/links/{token} - Edit link")
			fmt.Println("  DELETE /api/links/{token} - Delete link")
			fmt.Println("  GET    /{token}           - Redirect to destination")
			fmt.Println("  GET    /health            - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
		}

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		// Create context with timeout for shutdown
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			// force close if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}
	}

	// stop the sweeper before the storage goes away
	stop()
	<-sweepDone

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close Redis client", "error", err.Error())
		}
	}

	// Close repository (database connection)
	if err := repo.Close(); err != nil {
		log.Error("failed to close storage", "error", err.Error())
	}

	log.Info("server stopped")
}
