package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalDesk/internal/alert"
	"SignalDesk/internal/analyzer"
	"SignalDesk/internal/api"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/config"
	"SignalDesk/internal/export"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/notifier"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/scheduler"
	"SignalDesk/internal/strategy"
)

func main() {
	issueToken := flag.String("issue-token", "", "print an API bearer token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of an issued token")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

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

	if *issueToken != "" {
		if cfg.API.JWTSecret == "" {
			log.Fatal("[FATAL] api.jwt_secret is not set")
		}
		tok, err := api.NewJWTManager(cfg.API.JWTSecret).GenerateToken(*issueToken, *tokenTTL)
		if err != nil {
			log.Fatalf("[FATAL] issue token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	log.Println("[INFO] SignalDesk starting...")

	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())

	m := metrics.NewMetrics(nil)

	registry := strategy.NewRegistry()
	registry.SetDefault(cfg.Analysis.DefaultStrategy)

	an := analyzer.New(fetcher, registry, analyzer.Options{
		FetchTimeout: cfg.Analysis.FetchTimeout,
		Crossover:    cfg.Crossover,
		Rules:        cfg.RuleStrategies(),
		Metrics:      m,
	})
	engine := analyzer.NewEngine(an, cfg.Analysis.Workers, m)

	rec := newRecorder(cfg)
	defer rec.Close()

	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[WARN] telegram not configured, notifications disabled")
	}

	var exp *export.Exporter
	if cfg.Analysis.ExportDir != "" {
		exp = export.New(cfg.Analysis.ExportDir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, engine, cfg.Groups, scheduler.Options{
		Recorder:    rec,
		Notifier:    sender,
		Alerts:      alert.NewChecker(cfg.Alerts),
		Exporter:    exp,
		Metrics:     m,
		DefaultCron: cfg.Schedule.DefaultCron,
	})
	if err := sched.RegisterAll(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}

	srv := api.NewServer(sched, an, m, cfg.API.JWTSecret)
	sched.Subscribe(srv.Hub().Broadcast)
	if cfg.API.JWTSecret == "" {
		log.Println("[WARN] api.jwt_secret not set, /api is unauthenticated")
	}

	httpSrv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] API listening on %s", cfg.API.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] api server: %v", err)
		}
	}()

	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] RUN_ON_START enabled, analyzing all groups now")
		go sched.RunAll(ctx)
	}

	log.Println("[INFO] SignalDesk is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] api shutdown: %v", err)
	}
	log.Println("[INFO] SignalDesk stopped")
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	symbols := collector.DefaultSymbolTable()
	switch cfg.DataSource.Provider {
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, symbols)
	case "alpaca":
		return collector.NewAlpacaFetcher(cfg.DataSource.APIKey, cfg.DataSource.APISecret, cfg.DataSource.BaseURL)
	case "mock":
		return &collector.MockFetcher{}
	default:
		return collector.NewYahooFetcher(cfg.Proxy, symbols)
	}
}

// newRecorder opens the configured stores. A store that fails to open is logged
// and skipped so analysis keeps running.
func newRecorder(cfg *config.Config) recorder.Recorder {
	var recs recorder.Multi

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
		if cfg.Database.Driver == "sqlite" {
			if err := ensureDir(cfg.Database.DSN); err != nil {
				log.Printf("[WARN] %v", err)
			}
		}
		sr, err := recorder.NewSQLRecorder(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Printf("[WARN] init %s recorder failed, skipping: %v", cfg.Database.Driver, err)
		} else {
			recs = append(recs, sr)
		}
	}

	if cfg.Redis.Addr != "" {
		rr, err := recorder.NewRedisRecorder(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, cfg.Redis.TTL)
		if err != nil {
			log.Printf("[WARN] init redis recorder failed, skipping: %v", err)
		} else {
			recs = append(recs, rr)
		}
	}

	if len(recs) == 0 {
		return recorder.NewNoopRecorder()
	}
	return recs
}
