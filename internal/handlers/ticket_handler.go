package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swiftbus/booking-backend/internal/services"
)

// TicketHandler exposes the public QR verification endpoint.
type TicketHandler struct {
	boardingSvc *services.BoardingService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(boardingSvc *services.BoardingService) *TicketHandler {
	return &TicketHandler{boardingSvc: boardingSvc}
}

// VerifyTicket handles GET /api/v1/tickets/:code/verify. Read-only: the
// ticket is not consumed, so anyone scanning the QR sees its state.
func (h *TicketHandler) VerifyTicket(c *gin.Context) {
	verification, err := h.boardingSvc.VerifyTicket(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": verification})
}
