package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/suenolabs/sueno-api/pkg/achievements"
	"github.com/suenolabs/sueno-api/pkg/api"
	"github.com/suenolabs/sueno-api/pkg/auth"
	"github.com/suenolabs/sueno-api/pkg/captcha"
	"github.com/suenolabs/sueno-api/pkg/chatbot"
	"github.com/suenolabs/sueno-api/pkg/config"
	"github.com/suenolabs/sueno-api/pkg/googleauth"
	"github.com/suenolabs/sueno-api/pkg/habits"
	"github.com/suenolabs/sueno-api/pkg/mailer"
	"github.com/suenolabs/sueno-api/pkg/middleware"
	"github.com/suenolabs/sueno-api/pkg/observability"
	"github.com/suenolabs/sueno-api/pkg/supabase"
	"github.com/suenolabs/sueno-api/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	// Redis backs reset codes and rate limits when configured; otherwise
	// both fall back to in-memory stores swept by cron.
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, continuing")
		}
	}

	store := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Timeout, metrics)
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	var resetCodes auth.ResetCodeStore
	var memoryResetCodes *auth.MemoryResetCodeStore
	if rdb != nil {
		resetCodes = auth.NewRedisResetCodeStore(rdb)
	} else {
		memoryResetCodes = auth.NewMemoryResetCodeStore()
		resetCodes = memoryResetCodes
	}

	var sendMail mailer.Mailer
	if cfg.SMTP.Host != "" {
		sendMail = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger)
	} else {
		logger.Warn("SMTP not configured, reset codes will only be logged")
		sendMail = mailer.NewNoopMailer(logger)
	}

	var google googleauth.Verifier
	if cfg.Google.ClientID != "" {
		verifier, err := googleauth.NewOIDCVerifier(context.Background(), cfg.Google.ClientID)
		if err != nil {
			logger.WithError(err).Warn("google sign-in disabled, OIDC discovery failed")
		} else {
			google = verifier
		}
	}

	userSvc := users.NewService(store, tokens, resetCodes, sendMail, cfg.Auth.ResetCodeTTL, logger, metrics)

	// In-memory limiters are collected so the janitor can sweep them.
	var memoryLimiters []*middleware.SlidingWindowLimiter
	newLimiter := func(limitCfg middleware.RateLimitConfig, route string) middleware.Limiter {
		if rdb != nil {
			return middleware.NewRedisLimiter(rdb, limitCfg, "sueno:ratelimit:"+route)
		}
		limiter := middleware.NewSlidingWindowLimiter(limitCfg)
		memoryLimiters = append(memoryLimiters, limiter)
		return limiter
	}

	server := api.NewServer(api.Config{
		Logger:         logger,
		Metrics:        metrics,
		Tokens:         tokens,
		Users:          userSvc,
		Habits:         habits.NewService(store),
		Achievements:   achievements.NewService(store),
		Chatbot:        chatbot.NewClient(cfg.Chatbot.APIKey, cfg.Chatbot.Model, cfg.Chatbot.BaseURL, cfg.Chatbot.Timeout),
		Captcha:        captcha.NewRecaptchaVerifier(cfg.Captcha.Secret, cfg.IsProduction(), cfg.Captcha.Timeout, logger),
		Google:         google,
		NewLimiter:     newLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := newHealthServer(cfg, store, rdb, metrics)

	janitor := cron.New()
	if rdb == nil {
		// Redis expires its own keys; the in-memory stores need sweeping.
		_, err := janitor.AddFunc("@every 5m", func() {
			removed := memoryResetCodes.Sweep()
			for _, limiter := range memoryLimiters {
				removed += limiter.Cleanup()
			}
			if removed > 0 {
				logger.WithField("entries", removed).Debug("swept expired in-memory state")
			}
		})
		if err != nil {
			log.Fatalf("Failed to schedule janitor: %v", err)
		}
	}
	janitor.Start()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopped := janitor.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if rdb != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return rdb.Close()
		})
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}

// newHealthServer serves the k8s probes and metrics on a separate port so
// they stay reachable even when the API port is saturated.
func newHealthServer(cfg *config.Config, store *supabase.Client, rdb *redis.Client, metrics *observability.Metrics) *http.Server {
	checker := observability.NewHealthChecker(store, rdb)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
