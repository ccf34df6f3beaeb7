package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swiftbus/booking-backend/internal/models"
	"github.com/swiftbus/booking-backend/internal/services"
)

// BoardingHandler exposes the post-departure gate endpoints.
type BoardingHandler struct {
	boardingSvc *services.BoardingService
	tripSvc     *services.TripService
}

// NewBoardingHandler creates a new BoardingHandler
func NewBoardingHandler(boardingSvc *services.BoardingService, tripSvc *services.TripService) *BoardingHandler {
	return &BoardingHandler{boardingSvc: boardingSvc, tripSvc: tripSvc}
}

type boardRequest struct {
	ShortCode string `json:"short_code" binding:"required"`
}

// BoardPassenger handles POST /api/v1/staff/trips/:id/board.
func (h *BoardingHandler) BoardPassenger(c *gin.Context) {
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verification, err := h.boardingSvc.BoardPassenger(c.Request.Context(), req.ShortCode, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": verification})
}

// MarkNoShows handles POST /api/v1/staff/trips/:id/no-shows.
func (h *BoardingHandler) MarkNoShows(c *gin.Context) {
	var req models.MarkNoShowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes, err := h.boardingSvc.MarkNoShows(c.Request.Context(), c.Param("id"), &req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	marked := 0
	for _, o := range outcomes {
		if o.Marked {
			marked++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"outcomes": outcomes,
		"marked":   marked,
		"skipped":  len(outcomes) - marked,
	})
}

// Manifest handles GET /api/v1/staff/trips/:id/manifest.
func (h *BoardingHandler) Manifest(c *gin.Context) {
	entries, err := h.tripSvc.Manifest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest": entries, "count": len(entries)})
}
