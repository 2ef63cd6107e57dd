package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/service"
)

// SubscriptionCronHandler exposes the timed lifecycle sweep as an endpoint
// for the platform scheduler. Expired trials cancel, expired grace periods
// soft-lock; the sweep is safe to run concurrently with live traffic because
// every transition re-checks under the version CAS.
type SubscriptionCronHandler struct {
	subscriptionService service.SubscriptionService
	logger              *logger.Logger
}

// NewSubscriptionCronHandler creates a new subscription cron handler
func NewSubscriptionCronHandler(
	subscriptionService service.SubscriptionService,
	logger *logger.Logger,
) *SubscriptionCronHandler {
	return &SubscriptionCronHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// ProcessDueTransitions runs one sweep pass over due subscriptions
func (h *SubscriptionCronHandler) ProcessDueTransitions(c *gin.Context) {
	h.logger.Infow("starting subscription sweep", "time", time.Now().UTC().Format(time.RFC3339))

	moved, err := h.subscriptionService.ProcessDueTransitions(c.Request.Context())
	if err != nil {
		h.logger.Errorw("subscription sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed subscription sweep", "transitioned", moved)
	c.JSON(http.StatusOK, gin.H{"status": "success", "transitioned": moved})
}
