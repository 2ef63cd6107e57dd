package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/service"
	"github.com/masjid-suite/billing/internal/types"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type TierHandler struct {
	service service.FeatureGateService
	log     *logger.Logger
}

func NewTierHandler(service service.FeatureGateService, log *logger.Logger) *TierHandler {
	return &TierHandler{service: service, log: log}
}

// @Summary List tier definitions
// @Tags Tiers
// @Produce json
// @Success 200 {object} dto.ListTiersResponse
// @Router /tiers [get]
func (h *TierHandler) ListTiers(c *gin.Context) {
	resp, err := h.service.ListTiers(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a tier definition
// @Tags Tiers
// @Produce json
// @Param id path string true "Tier ID"
// @Success 200 {object} dto.TierResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /tiers/{id} [get]
func (h *TierHandler) GetTier(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Tier ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetTier(c.Request.Context(), types.TierID(id))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Check feature access for a masjid
// @Description Answers whether the masjid's subscription grants the feature
// @Tags Features
// @Produce json
// @Param masjid_id query string true "Masjid ID"
// @Param feature query string true "Feature key"
// @Success 200 {object} dto.FeatureAccessResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /features/access [get]
func (h *TierHandler) CheckFeatureAccess(c *gin.Context) {
	var req dto.FeatureAccessRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CanUse(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
