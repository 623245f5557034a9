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

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"

	"github.com/your-org/faceauth/internal/api"
	"github.com/your-org/faceauth/internal/api/handlers"
	"github.com/your-org/faceauth/internal/api/ws"
	"github.com/your-org/faceauth/internal/auth"
	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/internal/models"
	"github.com/your-org/faceauth/internal/observability"
	"github.com/your-org/faceauth/internal/queue"
	"github.com/your-org/faceauth/internal/storage"
	"github.com/your-org/faceauth/internal/vision"
	"github.com/your-org/faceauth/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	gin.SetMode(gin.ReleaseMode)

	slog.Info("starting faceauth API", "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
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

	checks := map[string]handlers.Check{"postgres": db.Ping}
	deps := faceid.Deps{
		Store: db,
		Matcher: faceid.MatcherConfig{
			EmbeddingDim:         cfg.Face.EmbeddingDim,
			DuplicateThreshold:   cfg.Face.DuplicateThreshold,
			RecognitionThreshold: cfg.Face.RecognitionThreshold,
		},
		FaceTokenTTL:     cfg.Auth.TokenTTL,
		PasswordTokenTTL: cfg.Auth.PasswordTokenTTL,
	}

	// MinIO keeps enrollment photos. Optional.
	var photos handlers.PhotoReader
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Warn("minio unavailable, enrollment photos will not be stored", "error", err)
	} else {
		if err := minioStore.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		deps.Images = minioStore
		photos = minioStore
		checks["minio"] = minioStore.Ping
	}

	// NATS carries auth events to the auditor and the live feed. Optional.
	hub := ws.NewHub()
	go hub.Run(ctx)

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, auth events will not be published", "error", err)
	} else {
		defer producer.Close()
		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		deps.Events = producer
		checks["nats"] = func(context.Context) error { return producer.Ping() }

		startLiveFeed(ctx, cfg.NATS.URL, hub)
	}

	// The extractor is optional at startup: without it face endpoints answer
	// 503 and password login keeps working.
	if err := vision.InitRuntime(cfg.Vision.ONNXLibPath); err != nil {
		slog.Warn("onnx runtime init failed, face endpoints unavailable", "error", err)
	} else {
		defer vision.DestroyRuntime()
		pool, err := vision.NewPool(cfg.Vision, cfg.Face.EmbeddingDim)
		if err != nil {
			slog.Warn("vision pool init failed, face endpoints unavailable", "error", err)
		} else {
			defer pool.Close()
			deps.Extractor = pool
		}
	}

	tokens := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	deps.Tokens = tokens
	svc := faceid.NewService(deps)

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(30).Seconds().Do(func() { refreshEnrolledGauge(ctx, db) }); err != nil {
		slog.Warn("schedule enrolled gauge refresh", "error", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	router := api.NewRouter(api.RouterConfig{
		APIKey:  cfg.Server.APIKey,
		Service: svc,
		Store:   db,
		Tokens:  tokens,
		Photos:  photos,
		Events:  db,
		Hub:     hub,
		Checks:  checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// startLiveFeed relays new auth events from the AUTH stream to websocket
// clients.
func startLiveFeed(ctx context.Context, natsURL string, hub *ws.Hub) {
	consumer, err := queue.NewConsumer(natsURL)
	if err != nil {
		slog.Warn("create live feed consumer", "error", err)
		return
	}
	go func() {
		<-ctx.Done()
		consumer.Close()
	}()

	err = consumer.ConsumeAuthEvents(ctx, queue.ConsumerOptions{
		Name:      "api-live-feed",
		Workers:   1,
		Ephemeral: true,
	}, func(ctx context.Context, ev models.AuthEvent) error {
		hub.Broadcast(&dto.WSEvent{Type: "auth_event", Data: handlers.ToAuthEventResponse(ev)})
		return nil
	})
	if err != nil {
		slog.Warn("start live feed consumer", "error", err)
	}
}

func refreshEnrolledGauge(ctx context.Context, store faceid.EmployeeStore) {
	n, err := store.CountEnrolled(ctx)
	if err != nil {
		slog.Warn("count enrolled identities", "error", err)
		return
	}
	observability.EnrolledIdentities.Set(float64(n))
}
