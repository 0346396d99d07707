package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/darkodi/link-shortener/internal/clock"
	"github.com/darkodi/link-shortener/internal/config"
	"github.com/darkodi/link-shortener/internal/console"
	"github.com/darkodi/link-shortener/internal/eviction"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/reachability"
	"github.com/darkodi/link-shortener/internal/repository"
	"github.com/darkodi/link-shortener/internal/service"
	"github.com/darkodi/link-shortener/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	// keep log lines out of the interactive prompt
	logCfg := cfg.Log
	logCfg.Output = os.Stderr
	if logCfg.File == "" {
		logCfg.Level = "error"
	}
	log := logger.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to open storage:", err)
		os.Exit(1)
	}
	defer repo.Close()

	clk := clock.System{}
	links := store.New(repo, clk, log)
	if err := links.Load(ctx); err != nil {
		fmt.Println("Saved data could not be read, starting a new session. Changes will not be saved.")
	}

	var checker reachability.Checker = reachability.NewHTTPChecker(cfg.Reachability.Timeout, log)
	if cfg.Reachability.CacheTTL > 0 {
		checker = reachability.NewCachedChecker(checker, cfg.Reachability.CacheTTL)
	}

	svc := service.NewLinkService(service.Options{
		Store: links,
		// expired links are announced on stdout between prompts
		Sweeper: eviction.NewEngine(links, clk, eviction.NotifierFunc(func(_ context.Context, n eviction.Notification) {
			fmt.Printf("Link %s was removed: %s.\n", n.Token, n.Reason)
		}), log),
		Checker: checker,
		Clock:   clk,
		Policy: service.Policy{
			MaxLifetime: cfg.Links.MaxLifetime,
			VisitFloor:  cfg.Links.VisitFloor,
		},
		BaseURL: cfg.Links.BaseURL,
		Logger:  log,
	})

	if err := console.New(svc, os.Stdin, os.Stdout).Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "Input error:", err)
		os.Exit(1)
	}
}
