package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v1 "github.com/subsync/subsync/internal/api/v1"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Subscription *v1.SubscriptionHandler
	Plan         *v1.PlanHandler
	User         *v1.UserHandler
	Webhook      *v1.WebhookHandler
}

// NewRouter builds the gin engine. gatherer backs the /metrics endpoint.
func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Stripe signs the raw body, the handler reads it untouched
	router.POST("/webhook/stripe", handlers.Webhook.HandleStripeWebhook)

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
		subscriptions.GET("/:id/refunds", handlers.Subscription.ListRefunds)
		subscriptions.GET("/customer/:customerId/active", handlers.Subscription.GetActiveSubscription)
		subscriptions.PATCH("/cancel/:id", handlers.Subscription.CancelSubscription)
		subscriptions.PATCH("/upgrade/:id", handlers.Subscription.UpgradeSubscription)
		subscriptions.PATCH("/downgrade/:id", handlers.Subscription.ScheduleDowngrade)
	}

	plans := router.Group("/plans")
	{
		plans.GET("", handlers.Plan.GetPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.POST("/sync", handlers.Plan.SyncPlans)
	}

	users := router.Group("/users")
	{
		users.POST("", handlers.User.CreateUser)
		users.GET("", handlers.User.ListUsers)
		users.GET("/:id", handlers.User.GetUser)
		users.PUT("/:id", handlers.User.UpdateUser)
		users.DELETE("/:id", handlers.User.DeleteUser)
	}

	logger.Debugw("api routes registered", "routes", len(router.Routes()))
	return router
}
