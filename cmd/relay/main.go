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

	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/wa-relay/internal/api"
	"github.com/LeventeLantos/wa-relay/internal/auth"
	"github.com/LeventeLantos/wa-relay/internal/cache"
	"github.com/LeventeLantos/wa-relay/internal/client"
	"github.com/LeventeLantos/wa-relay/internal/config"
	"github.com/LeventeLantos/wa-relay/internal/logger"
	"github.com/LeventeLantos/wa-relay/internal/metrics"
	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
	"github.com/LeventeLantos/wa-relay/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(cfg.Log.Level))

	if err := run(cfg); err != nil {
		slog.Error("relay stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Migrate(ctx, db); err != nil {
		return err
	}

	records := repo.NewSQLRecordStore(db)
	users := repo.NewSQLUserStore(db)

	dashboard := service.NewDashboard(records)
	var revoker auth.Revoker = auth.NoopRevoker{}
	var sent cache.SentStore
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		revoker = cache.NewRedisSessionRevoker(rdb)
		sentCache := cache.NewRedisCache(rdb, cfg.Redis.TTL)
		sent = sentCache
		dashboard.WithSentLookup(sentCache)
	}

	sender := service.NewSender(client.NewWhatsAppClient(cfg.WhatsApp), records, cfg.WhatsApp.SenderPhone).
		WithHooks(onSent(sent), onFailed)

	h := api.NewHandler(api.Deps{
		Sender:    sender,
		Inbound:   service.NewInbound(cfg.Webhook.VerifyToken, records),
		Dashboard: dashboard,
		Authn:     auth.NewAuthenticator(users),
		Sessions:  auth.NewSessionManager(cfg.Session, revoker),
		Users:     users,
	})

	metrics.Init()
	refresher, err := metrics.NewRefresher(cfg.Metrics.RefreshInterval, records)
	if err != nil {
		return err
	}
	refresher.Start()
	defer refresher.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.Router(h, loggingMiddleware),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The send route waits on the provider.
		WriteTimeout: cfg.WhatsApp.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay listening",
			"addr", cfg.Server.Address,
			"provider_timeout", cfg.WhatsApp.Timeout.String(),
			"redis", cfg.Redis.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// onSent counts the send and remembers the provider message id when a cache
// is configured.
func onSent(sent cache.SentStore) func(ctx context.Context, rec model.Record, providerMessageID string) {
	return func(ctx context.Context, rec model.Record, providerMessageID string) {
		metrics.OutboundMessages.WithLabelValues(string(model.Sent)).Inc()

		if sent == nil || rec.ID == 0 || providerMessageID == "" {
			return
		}
		if err := sent.StoreSent(ctx, rec.ID, providerMessageID, rec.Timestamp); err != nil {
			slog.Warn("cache sent message failed", "record_id", rec.ID, "err", err)
		}
	}
}

func onFailed(ctx context.Context, rec model.Record, reason string) {
	metrics.OutboundMessages.WithLabelValues(string(model.Failed)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
