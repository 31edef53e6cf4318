package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/subsync/subsync/internal/api"
	v1 "github.com/subsync/subsync/internal/api/v1"
	"github.com/subsync/subsync/internal/cache"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/email"
	"github.com/subsync/subsync/internal/idempotency"
	"github.com/subsync/subsync/internal/integration/stripe"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/notification"
	"github.com/subsync/subsync/internal/observability"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/pubsub"
	"github.com/subsync/subsync/internal/pubsub/memory"
	pubsubRouter "github.com/subsync/subsync/internal/pubsub/router"
	"github.com/subsync/subsync/internal/repository"
	"github.com/subsync/subsync/internal/sentry"
	"github.com/subsync/subsync/internal/service"
	"github.com/subsync/subsync/internal/types"
	"github.com/subsync/subsync/internal/webhook"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			provideCache,
			provideMetrics,

			// Messaging
			memory.NewPubSub,
			pubsubRouter.NewRouter,

			// Processor and email
			provideProcessor,
			provideSender,

			idempotency.NewGenerator,
			idempotency.NewStore,
			notification.NewNotifier,
			notification.NewConsumer,
		),
		postgres.Module(),
		repository.Module,
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewSubscriptionService,
			service.NewSynchronizer,
			service.NewPlanService,
			service.NewUserService,
			service.NewRefundService,
		),
		webhook.Module,
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			runMigrations,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideCache(cfg *config.Configuration) cache.Cache {
	return cache.NewInMemoryCache(cfg)
}

func provideMetrics() (*observability.Metrics, prometheus.Gatherer, error) {
	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, err
	}
	return metrics, prometheus.DefaultGatherer, nil
}

func provideProcessor(cfg *config.Configuration, log *logger.Logger, metrics *observability.Metrics) processor.Client {
	return stripe.NewClient(cfg, log, metrics)
}

func provideSender(cfg *config.Configuration, log *logger.Logger) notification.Sender {
	return email.NewEmailClient(cfg, log)
}

func provideHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	subscriptionService service.SubscriptionService,
	planService service.PlanService,
	userService service.UserService,
	refundService service.RefundService,
	eventRouter *webhook.Router,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(db, log),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, refundService, log),
		Plan:         v1.NewPlanHandler(planService, log),
		User:         v1.NewUserHandler(userService, log),
		Webhook:      v1.NewWebhookHandler(eventRouter, cfg, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, log *logger.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	return api.NewRouter(handlers, cfg, log, gatherer)
}

func runMigrations(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return postgres.Migrate(cfg, log, "up")
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	ps pubsub.PubSub,
	consumer *notification.Consumer,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeProduction:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, ps, consumer, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	subscriber pubsub.Subscriber,
	consumer *notification.Consumer,
	log *logger.Logger,
) {
	// Register handlers before starting the router
	consumer.RegisterHandler(router, subscriber)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting message router")
			go func() {
				if err := router.Run(context.Background()); err != nil {
					log.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping message router")
			return router.Close()
		},
	})
}
