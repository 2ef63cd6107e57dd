package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/gateway/toyyibpay"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/service"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

// @Summary Initiate a payment
// @Description Create a ledger row and, for gateway payments, a hosted checkout bill
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body dto.CreatePaymentRequest true "Payment request"
// @Success 201 {object} dto.PaymentResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a payment by ID
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List payments
// @Tags Payments
// @Produce json
// @Success 200 {object} dto.ListPaymentsResponse
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var req dto.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListPayments(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary ToyyibPay payment callback
// @Description Settle a gateway webhook. Retried callbacks are idempotent.
// @Tags Payments
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} dto.PaymentResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Router /payments/callback/toyyibpay [post]
func (h *PaymentHandler) HandleToyyibPayCallback(c *gin.Context) {
	var payload toyyibpay.CallbackPayload
	if err := c.ShouldBind(&payload); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid callback format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.HandleGatewayCallback(c.Request.Context(), &payload)
	if err != nil {
		h.log.Errorw("failed to process gateway callback",
			"refno", payload.RefNo,
			"billcode", payload.BillCode,
			"error", err,
		)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Record a manual payment
// @Description Settle an out-of-band payment with full lifecycle side effects
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body dto.RecordManualPaymentRequest true "Manual payment"
// @Success 200 {object} dto.PaymentResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /payments/manual [post]
func (h *PaymentHandler) RecordManualPayment(c *gin.Context) {
	var req dto.RecordManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordManualPayment(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to record manual payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
