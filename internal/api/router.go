package api

import (
	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/api/cron"
	v1 "github.com/masjid-suite/billing/internal/api/v1"
	"github.com/masjid-suite/billing/internal/config"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/rest/middleware"
)

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Subscription     *v1.SubscriptionHandler
	Payment          *v1.PaymentHandler
	LocalAdmin       *v1.LocalAdminHandler
	Tier             *v1.TierHandler
	SubscriptionCron *cron.SubscriptionCronHandler
}

// NewRouter builds the gin engine with the standard middleware chain and all
// v1 routes mounted.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.IdentityMiddleware(),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/v1")

	// Public catalog and feature gate reads
	apiV1.GET("/tiers", handlers.Tier.ListTiers)
	apiV1.GET("/tiers/:id", handlers.Tier.GetTier)
	apiV1.GET("/features/access", handlers.Tier.CheckFeatureAccess)

	// Gateway webhook, authenticated by signature rather than identity
	apiV1.POST("/payments/callback/toyyibpay", handlers.Payment.HandleToyyibPayCallback)

	// Billing operations for masjid admins and super admins
	billing := apiV1.Group("", middleware.RequireBillingRole())
	{
		billing.POST("/subscriptions", handlers.Subscription.CreateSubscription)
		billing.GET("/subscriptions", handlers.Subscription.ListSubscriptions)
		billing.GET("/subscriptions/:id", handlers.Subscription.GetSubscription)
		billing.POST("/subscriptions/:id/transition", handlers.Subscription.TransitionSubscription)
		billing.POST("/subscriptions/:id/cancel", handlers.Subscription.CancelSubscription)
		billing.GET("/masjids/:masjid_id/subscription", handlers.Subscription.GetSubscriptionByMasjid)

		billing.POST("/payments", handlers.Payment.CreatePayment)
		billing.GET("/payments", handlers.Payment.ListPayments)
		billing.GET("/payments/:id", handlers.Payment.GetPayment)

		billing.GET("/masjids/:masjid_id/local-admin", handlers.LocalAdmin.GetAssignment)
	}

	// Pool management for super admins only
	admin := apiV1.Group("", middleware.RequireSuperAdmin())
	{
		admin.POST("/local-admins", handlers.LocalAdmin.CreateLocalAdmin)
		admin.GET("/local-admins", handlers.LocalAdmin.ListLocalAdmins)
		admin.GET("/local-admins/:id", handlers.LocalAdmin.GetLocalAdmin)
		admin.PUT("/local-admins/:id/availability", handlers.LocalAdmin.UpdateAvailability)
		admin.GET("/local-admins/:id/earnings", handlers.LocalAdmin.GetEarnings)
		admin.POST("/local-admins/assignments", handlers.LocalAdmin.AssignLocalAdmin)
		admin.DELETE("/masjids/:masjid_id/local-admin", handlers.LocalAdmin.UnassignLocalAdmin)

		admin.POST("/payments/manual", handlers.Payment.RecordManualPayment)

		admin.POST("/cron/subscriptions/sweep", handlers.SubscriptionCron.ProcessDueTransitions)
	}

	return router
}
