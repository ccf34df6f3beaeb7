package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swiftbus/booking-backend/internal/middleware"
	"github.com/swiftbus/booking-backend/internal/models"
	"github.com/swiftbus/booking-backend/internal/services"
)

// PaymentHandler exposes the settlement endpoints: the synchronous demo
// payment and the provider webhook.
type PaymentHandler struct {
	settlementSvc *services.SettlementService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(settlementSvc *services.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementSvc: settlementSvc}
}

// InitiatePayment handles POST /api/v1/payments/initiate.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.settlementSvc.InitiateDemoPayment(c.Request.Context(), userCtx.UserID, &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": result.Payment,
		"tickets": result.Tickets,
	})
}

// Webhook handles POST /api/v1/payments/webhook. Replayed transaction ids
// are acknowledged with 200 so the provider stops retrying; nothing in
// the ledger changes on a replay.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var payload models.PaymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.settlementSvc.ProcessWebhook(c.Request.Context(), &payload, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settled":   result.Settled,
		"duplicate": result.Duplicate,
	})
}
