package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/cache"
	"github.com/shepherdcrm/authcore/httpapi"
	"github.com/shepherdcrm/authcore/jwt"
	"github.com/shepherdcrm/authcore/metrics"
	"github.com/shepherdcrm/authcore/notify"
	"github.com/shepherdcrm/authcore/store/postgres"
	"github.com/shepherdcrm/authcore/tenant"
)

var version = "0.3.0"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", "authd"), zap.String("version", version))

	metrics.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dsn := os.Getenv("AUTHD_PG_DSN")
	if dsn == "" {
		logger.Fatal("AUTHD_PG_DSN is required")
	}
	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer pool.Close()

	redisAddr := os.Getenv("AUTHD_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("AUTHD_REDIS_PASSWORD"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	cfg := authcore.DefaultConfig()
	secret := os.Getenv("AUTHD_JWT_SECRET")
	if secret == "" {
		logger.Fatal("AUTHD_JWT_SECRET is required")
	}
	cfg.JWT.SigningMethod = jwt.MethodHS256
	cfg.JWT.PrivateKey = []byte(secret)
	cfg.JWT.Issuer = "shepherdcrm"

	store := postgres.NewUserStore(pool)
	c := cache.NewRedis(rdb, "authcore:")

	opts := []authcore.Option{authcore.WithLogger(logger)}
	if host := os.Getenv("AUTHD_SMTP_HOST"); host != "" {
		mailer := notify.NewSMTP(notify.SMTPConfig{
			Host:        host,
			Username:    os.Getenv("AUTHD_SMTP_USER"),
			Password:    os.Getenv("AUTHD_SMTP_PASSWORD"),
			FromAddress: os.Getenv("AUTHD_SMTP_FROM"),
		}, logger)
		opts = append(opts, authcore.WithMailer(mailer))
	}

	svc, err := authcore.New(cfg, store, c, opts...)
	if err != nil {
		logger.Fatal("service", zap.Error(err))
	}

	resolver := tenant.NewResolver(postgres.NewTenantStore(pool), c,
		tenant.DefaultResolverConfig(), logger)

	api := httpapi.New(svc, resolver, logger, httpapi.Config{
		Ready: func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			if err := pool.Ping(pingCtx); err != nil {
				return err
			}
			return rdb.Ping(pingCtx).Err()
		},
	})
	defer api.Close()

	addr := os.Getenv("AUTHD_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
