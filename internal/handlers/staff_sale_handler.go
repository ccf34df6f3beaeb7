package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swiftbus/booking-backend/internal/middleware"
	"github.com/swiftbus/booking-backend/internal/models"
	"github.com/swiftbus/booking-backend/internal/services"
)

// StaffSaleHandler exposes the counter and replacement sale endpoints.
// All routes require a staff token; the cashier PIN in the payload is
// verified again per sale.
type StaffSaleHandler struct {
	saleSvc *services.CounterSaleService
}

// NewStaffSaleHandler creates a new StaffSaleHandler
func NewStaffSaleHandler(saleSvc *services.CounterSaleService) *StaffSaleHandler {
	return &StaffSaleHandler{saleSvc: saleSvc}
}

// CreateCounterSale handles POST /api/v1/staff/trips/:id/sales.
func (h *StaffSaleHandler) CreateCounterSale(c *gin.Context) {
	staffID, ok := staffIDFrom(c)
	if !ok {
		return
	}

	var req models.CounterSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.saleSvc.CreateCounterSale(c.Request.Context(), staffID, c.Param("id"), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking":        result.Booking,
		"tickets":        result.Tickets,
		"manifest_ready": result.ManifestReady,
	})
}

// CreateReplacementSale handles POST /api/v1/staff/trips/:id/replacements.
func (h *StaffSaleHandler) CreateReplacementSale(c *gin.Context) {
	staffID, ok := staffIDFrom(c)
	if !ok {
		return
	}

	var req models.ReplacementSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.saleSvc.CreateReplacementSale(c.Request.Context(), staffID, c.Param("id"), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking": result.Booking,
		"tickets": result.Tickets,
	})
}

// staffIDFrom pulls the staff identity off the token, writing the error
// response itself when absent.
func staffIDFrom(c *gin.Context) (string, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok || userCtx.StaffID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "staff credentials required"})
		return "", false
	}
	return userCtx.StaffID, true
}
