package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swiftbus/booking-backend/internal/services"
)

// TripAdminHandler exposes the admin trip controls: manual halt, resume,
// and departure.
type TripAdminHandler struct {
	tripSvc *services.TripService
}

// NewTripAdminHandler creates a new TripAdminHandler
func NewTripAdminHandler(tripSvc *services.TripService) *TripAdminHandler {
	return &TripAdminHandler{tripSvc: tripSvc}
}

// HaltBooking handles POST /api/v1/admin/trips/:id/halt.
func (h *TripAdminHandler) HaltBooking(c *gin.Context) {
	if err := h.tripSvc.HaltBooking(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "online booking halted"})
}

// ResumeBooking handles POST /api/v1/admin/trips/:id/resume.
func (h *TripAdminHandler) ResumeBooking(c *gin.Context) {
	if err := h.tripSvc.ResumeBooking(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "online booking resumed"})
}

// DepartTrip handles POST /api/v1/staff/trips/:id/depart.
func (h *TripAdminHandler) DepartTrip(c *gin.Context) {
	if err := h.tripSvc.DepartTrip(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "trip departed"})
}

// GetTrip handles GET /api/v1/trips/:id.
func (h *TripAdminHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripSvc.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}
