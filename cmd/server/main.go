package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/config"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/notify"
	"github.com/mmynk/tableside/internal/service"
	"github.com/mmynk/tableside/internal/settlement"
	"github.com/mmynk/tableside/internal/storage/sqlite"
	"github.com/mmynk/tableside/internal/tables"
	"github.com/mmynk/tableside/pkg/api"
	"github.com/mmynk/tableside/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	tracker := tables.NewTracker(tables.WithGuestTTL(cfg.GuestTTL))
	go tracker.Run(ctx, cfg.GuestSweepInterval)

	var publisher notify.Publisher = notify.LogPublisher{}
	if cfg.NATSURL != "" {
		p, err := notify.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		publisher = p
		slog.Info("Publishing notifications to NATS", "url", cfg.NATSURL)
	}
	defer publisher.Close()

	secret := cfg.JWTSecret
	if secret == "" {
		// No staff configured; tokens only need to outlive this process.
		secret = uuid.NewString()
		slog.Warn("JWT_SECRET not set, staff tokens will not survive a restart")
	}
	jwtManager := auth.NewJWTManager(secret, cfg.StaffTokenTTL)
	m := metrics.New(tracker)

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		m.Interceptor(),
		middleware.Participant(),
		middleware.OptionalStaffAuth(jwtManager),
	)

	orders := service.NewOrders(store, tracker, publisher)

	mux := http.NewServeMux()

	// Register Connect services
	orderPath, orderHandler := api.NewOrderServiceHandler(service.NewOrderService(orders), interceptors)
	mux.Handle(orderPath, orderHandler)

	settlementPath, settlementHandler := api.NewSettlementServiceHandler(
		service.NewSettlementService(orders, settlement.NewEngine(store), m), interceptors)
	mux.Handle(settlementPath, settlementHandler)

	tablePath, tableHandler := api.NewTableServiceHandler(service.NewTableService(tracker, publisher, m), interceptors)
	mux.Handle(tablePath, tableHandler)

	staffPath, staffHandler := api.NewStaffServiceHandler(
		service.NewStaffService(auth.NewPINAuthenticator(cfg.Staff), jwtManager, slog.Default()), interceptors)
	mux.Handle(staffPath, staffHandler)

	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Authorization",
			middleware.ParticipantHeader,
		},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms", apperr.CodeHeader},
	}).Handler(mux)

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsHandler), &http2.Server{})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
