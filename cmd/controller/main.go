package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cybergrid-controller/internal/api"
	"cybergrid-controller/internal/bus"
	"cybergrid-controller/internal/detect"
	"cybergrid-controller/internal/ingest"
	"cybergrid-controller/internal/patch"
	"cybergrid-controller/internal/scheduler"
	"cybergrid-controller/internal/storage"
	"cybergrid-controller/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	port := getenv("PORT", "8080")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL must be set")
		os.Exit(1)
	}
	natsURL := os.Getenv("NATS_URL")
	fleetPath := getenv("FLEET_PATH", "fleet.yaml")
	detectCfg := detect.Config{
		DeviationThreshold: getenvFloat("DEVIATION_THRESHOLD", 4.0),
		CooldownSeconds:    getenvInt("COOLDOWN_SECONDS", 120),
		BaselineWindow:     getenvInt("BASELINE_WINDOW", 100),
	}
	patchCfg := patch.Config{
		FailureRate:     getenvFloat("FAILURE_RATE", 0.1),
		ProcessingDelay: time.Duration(getenvInt("PROCESSING_DELAY_MS", 100)) * time.Millisecond,
	}
	ingestInterval := time.Duration(getenvInt("INGEST_INTERVAL_SECONDS", 6)) * time.Second

	ctx := context.Background()
	store, err := storage.NewStore(ctx, dsn)
	if err != nil {
		logger.Error("failed to connect to db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	repo := storage.NewRepository(store)

	var publisher *bus.Publisher
	if natsURL != "" {
		publisher, err = bus.NewPublisher(natsURL)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer publisher.Close()
	} else {
		logger.Warn("NATS_URL not set, running without event bus")
	}
	var alertBus detect.Notifier
	var patchBus patch.Notifier
	if publisher != nil {
		alertBus = publisher
		patchBus = publisher
	}

	eng := detect.NewEngine(repo, alertBus, logger.With(slog.String("component", "detect")), detectCfg)
	patcher := patch.NewManager(repo, patchBus, logger.With(slog.String("component", "patch")), patchCfg)

	nodes, err := telemetry.LoadFleet(fleetPath)
	if err != nil {
		logger.Warn("failed to load fleet, ingest will idle",
			slog.String("path", fleetPath),
			slog.String("error", err.Error()))
	}
	sim := telemetry.NewSimulator(nodes, nil)
	runner := &ingest.Runner{Sim: sim, Engine: eng, Log: logger.With(slog.String("component", "ingest"))}

	sched := scheduler.New(logger.With(slog.String("component", "scheduler")), time.Second)
	sched.Register(scheduler.Job{Name: "ingest_telemetry", Interval: ingestInterval, Run: runner.Run})
	sched.Start()
	defer sched.Stop()

	handler := &api.Handler{
		Repo:    repo,
		Engine:  eng,
		Patcher: patcher,
		Sched:   sched,
		Ingest:  runner.Run,
		Timeout: 5 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("cybergrid-controller listening",
		slog.String("port", port),
		slog.Int("fleet_nodes", len(nodes)))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("error", err.Error()))
	}
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(val); err == nil {
		return parsed
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := strconv.ParseFloat(val, 64); err == nil {
		return parsed
	}
	return fallback
}
