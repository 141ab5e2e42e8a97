package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	adminauth "onboard-gateway/internal/admin/auth"
	adminhandler "onboard-gateway/internal/admin/handler"
	applicanthandler "onboard-gateway/internal/applicant/handler"
	applicantmetrics "onboard-gateway/internal/applicant/metrics"
	applicantservice "onboard-gateway/internal/applicant/service"
	applicantstore "onboard-gateway/internal/applicant/store"
	"onboard-gateway/internal/audit"
	credentialhandler "onboard-gateway/internal/credential/handler"
	credentialservice "onboard-gateway/internal/credential/service"
	"onboard-gateway/internal/credential/tokens"
	notifymetrics "onboard-gateway/internal/notify/metrics"
	notifyservice "onboard-gateway/internal/notify/service"
	notifystore "onboard-gateway/internal/notify/store"
	"onboard-gateway/internal/platform/config"
	"onboard-gateway/internal/platform/database"
	"onboard-gateway/internal/platform/health"
	"onboard-gateway/internal/platform/httpserver"
	"onboard-gateway/internal/platform/kafka/producer"
	"onboard-gateway/internal/platform/logger"
	"onboard-gateway/internal/platform/middleware"
	"onboard-gateway/internal/platform/redis"
	"onboard-gateway/internal/provider"
	screeningcache "onboard-gateway/internal/screening/cache"
	screeningclient "onboard-gateway/internal/screening/client"
	screeningmetrics "onboard-gateway/internal/screening/metrics"
	"onboard-gateway/internal/screening/policy"
	screeningservice "onboard-gateway/internal/screening/service"
	"onboard-gateway/internal/webhook"
)

// notificationLog joins the dispatcher's replay operation with the delivery
// log reads the admin surface needs.
type notificationLog struct {
	*notifyservice.Dispatcher
	notifystore.Store
}

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing onboard-gateway", "addr", cfg.Addr)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	var applicants applicantstore.Store
	var deliveries notifystore.Store
	if db != nil {
		applicants = applicantstore.NewPostgres(db.DB())
		deliveries = notifystore.NewPostgres(db.DB())
	} else {
		log.Warn("no database configured, using in-memory stores")
		applicants = applicantstore.NewMemory()
		deliveries = notifystore.NewMemory()
	}

	var auditProducer producer.Publisher
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         5,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		auditProducer = kafkaProducer
	} else {
		log.Warn("no kafka brokers configured, audit trail disabled")
		auditProducer = producer.NewNoopProducer()
	}
	auditor := audit.NewPublisher(auditProducer, cfg.Kafka.Topic, log)

	var enricher applicantservice.Enricher
	if cfg.Provider.AppToken != "" {
		enricher = provider.NewClient(
			cfg.Provider.BaseURL, cfg.Provider.AppToken, cfg.Provider.SecretKey, cfg.Provider.Timeout)
	} else {
		log.Warn("no provider credentials configured, profile enrichment disabled")
	}

	var redisClient *goredis.Client
	if rdb != nil {
		redisClient = rdb.Client
	}
	screener := screeningservice.NewService(
		screeningclient.New(cfg.Screening.BaseURL, cfg.Screening.APIKey, cfg.Screening.Timeout),
		screeningcache.New(redisClient, cfg.Screening.CacheTTL),
		policy.New(cfg.Screening.HardBlockCategories, cfg.Screening.ReviewRiskLevels),
		log,
		screeningservice.WithMetrics(screeningmetrics.New()),
	)

	dispatcher := notifyservice.NewDispatcher(
		cfg.Notify.WebhookURL,
		notifyservice.NewBuilder(cfg.Notify.BaseURL),
		deliveries,
		log,
		notifyservice.WithMetrics(notifymetrics.New()),
		notifyservice.WithMaxAttempts(cfg.Notify.MaxAttempts),
		notifyservice.WithTimeout(cfg.Notify.Timeout),
	)

	tokenCfg := tokens.Config{
		ContractTTL: cfg.Tokens.ContractTTL,
		WalletTTL:   cfg.Tokens.WalletTTL,
		ReuseWindow: cfg.Tokens.ReuseWindow,
	}

	applicantSvc := applicantservice.NewService(applicants, enricher, dispatcher, auditor, log,
		applicantservice.WithMetrics(applicantmetrics.New()),
		applicantservice.WithTokenConfig(tokenCfg),
	)
	credentialSvc := credentialservice.NewService(applicants, screener, dispatcher, auditor, log,
		credentialservice.WithTokenConfig(tokenCfg),
	)
	sessions := adminauth.NewSessionService(
		cfg.Admin.Username, cfg.Admin.PasswordHash, cfg.Admin.JWTSigningKey, cfg.Admin.SessionTTL)

	healthHandler := health.New(os.Getenv("ONBOARD_ENV"))
	if db != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Health(ctx)
		})
	}
	if rdb != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	applicanthandler.New(applicantSvc, webhook.NewAuthenticator(cfg.WebhookSecret), log).Register(router)
	credentialhandler.New(credentialSvc, log).Register(router)
	adminhandler.New(sessions, applicantSvc, applicants, credentialSvc,
		&notificationLog{Dispatcher: dispatcher, Store: deliveries}, auditor, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	// Let in-flight notification goroutines finish before closing resources.
	dispatcher.Wait()

	if err := auditProducer.Close(); err != nil {
		log.Error("kafka producer close failed", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("database close failed", "error", err)
		}
	}

	log.Info("server stopped")
}
