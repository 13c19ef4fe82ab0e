package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"bytehub/internal/app"
	"bytehub/internal/config"
	"bytehub/internal/notify"
	"bytehub/internal/server"
	"bytehub/internal/session"
	"bytehub/internal/storage"
	"bytehub/internal/util"
	"bytehub/internal/verify"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to reach redis: %v", err)
	}
	cancel()

	sessions, err := session.NewStore(cfg.JWTSecret, cfg.JWTIssuer, sessionTTL, session.NewRedisTokenRevoker(redisClient))
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	objects, err := storage.NewMinioStore(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioUseSSL,
		cfg.MinioPublicURL,
	)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	notifier, err := notify.NewNotifier(redisClient, notify.Config{})
	if err != nil {
		log.Fatalf("failed to init notifier: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		Sessions:    sessions,
		Objects:     objects,
		Notifier:    notifier,
		Verifier:    verify.NewStore(redisClient),
		Mailer:      app.NewLogMailer(),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	notifier.Start(context.Background(), 2, appCore.DeliverNotification)

	var trusted *util.TrustedProxies
	if len(cfg.TrustedProxyCIDRs) > 0 {
		trusted, err = util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
		if err != nil {
			log.Fatalf("failed to parse trusted proxies: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		TrustedProxies:           trusted,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		SigninRateLimitPerMinute: cfg.SigninRateLimitPerMinute,
		UploadRateLimitPerMinute: cfg.UploadRateLimitPerMinute,
		VerifyRateLimitPerMinute: cfg.VerifyRateLimitPerMinute,
		MaxUploadBytes:           cfg.MaxUploadBytes,
		AllowedExtensions:        cfg.AllowedExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init http server: %v", err)
	}

	handler := util.WithRequestID(util.WithRequestLog("bytehub", httpServer.Router()))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
