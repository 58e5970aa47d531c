package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TokenRadar/internal/config"
	"TokenRadar/internal/dexscreener"
	"TokenRadar/internal/ingest"
	"TokenRadar/internal/model"
	"TokenRadar/internal/notifier"
	"TokenRadar/internal/panel"
	"TokenRadar/internal/ratelimit"
	"TokenRadar/internal/recorder"
	"TokenRadar/internal/scheduler"
	"TokenRadar/internal/server"
	"TokenRadar/internal/store"
	"TokenRadar/internal/tracker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] TokenRadar starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init state store
	st, err := store.NewStore(cfg.Database.StateFile, model.Settings{
		InvestAmount: cfg.Simulation.InvestAmount,
		DelayMinutes: cfg.Simulation.DelayMinutes,
	})
	if err != nil {
		log.Fatalf("[FATAL] init store: %v", err)
	}

	// Init rate governor and price gateway
	gov := ratelimit.NewGovernor(
		time.Duration(cfg.DexScreener.RequestSpacingMS)*time.Millisecond,
		time.Duration(cfg.Panels.CooldownSeconds)*time.Second,
	)
	gateway := dexscreener.NewClient(cfg.DexScreener.BaseURL, cfg.DexScreener.Chain, cfg.Proxy, gov)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init classification engine
	eng := tracker.NewEngine(
		cfg.Tracking.MinKeepFDV,
		time.Duration(cfg.Tracking.HoldWindowMin)*time.Minute,
		time.Duration(cfg.Tracking.NoDataGraceHours)*time.Hour,
		time.Duration(cfg.Tracking.MaxAgeHours)*time.Hour,
	)

	// Init rendering pipeline
	rend := panel.NewRenderer()
	rend.ListLimit = cfg.Panels.ListLimit
	rend.DashboardLimit = cfg.Panels.DashboardLimit
	rend.TopLimit = cfg.Panels.TopLimit
	rend.MentionsLimit = cfg.Panels.MentionsLimit
	rend.MinGrowthShow = cfg.Tracking.MinGrowthShow

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.DestinationID, cfg.Proxy)
	recon := panel.NewReconciler(st, tn, gov)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, st, gateway, eng, rend, recon, tn, rec,
		cfg.Telegram.DestinationID, cfg.Tracking.BatchSize)
	if err := sched.RegisterAll(cfg.Tracking.UpdateCron, cfg.Tracking.PurgeCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Start status/ingest HTTP server
	ingestHandler := ingest.NewHandler(st, gateway, rec, cfg.Tracking.MinEntryFDV)
	srv := server.New(cfg.Server.ListenAddr, st, ingestHandler, sched.LastCycle)
	go func() {
		log.Printf("[INFO] HTTP server listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] http server: %v", err)
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing update cycle now")
		go sched.RunCycleNow()
	}

	log.Println("[INFO] TokenRadar is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] TokenRadar stopped")
}
