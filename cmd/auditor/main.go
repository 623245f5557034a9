package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/models"
	"github.com/your-org/faceauth/internal/observability"
	"github.com/your-org/faceauth/internal/queue"
	"github.com/your-org/faceauth/internal/storage"
)

// The auditor persists every auth event from the AUTH stream into
// auth_events. Redelivered events are ignored by id.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	workers := flag.Int("workers", 4, "number of concurrent event writers")
	metricsAddr := flag.String("metrics-addr", ":8082", "metrics and health listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting faceauth auditor", "workers", *workers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewPostgresStore(ctx, cfg.Database, cfg.Face.EmbeddingDim)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Error("ensure nats streams", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	err = consumer.ConsumeAuthEvents(ctx, queue.ConsumerOptions{
		Name:    "auditor",
		Workers: *workers,
	}, func(ctx context.Context, ev models.AuthEvent) error {
		if err := db.InsertAuthEvent(ctx, ev); err != nil {
			return fmt.Errorf("store auth event %s: %w", ev.ID, err)
		}
		observability.AuthEventsStored.WithLabelValues(string(ev.Kind)).Inc()
		return nil
	})
	if err != nil {
		slog.Error("start auth event consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := consumer.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"nats disconnected"}`))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("auditor metrics listening", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report stream size
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := producer.Pending(ctx)
				if err == nil {
					observability.AuthStreamMessages.Set(float64(n))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down auditor...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("auditor stopped")
}
