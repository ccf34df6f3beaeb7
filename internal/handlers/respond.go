package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swiftbus/booking-backend/internal/middleware"
	"github.com/swiftbus/booking-backend/internal/models"
	"github.com/swiftbus/booking-backend/internal/services"
)

// respondError maps domain errors onto HTTP responses. Capacity and
// policy conflicts are 409, authenticity failures are 401, lookups are
// 404. Anything unrecognized is a 500 with a generic body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrInsufficientSeats),
		errors.Is(err, models.ErrSeatAlreadyTaken),
		errors.Is(err, models.ErrInsufficientReleasedSeats),
		errors.Is(err, models.ErrBookingHalted),
		errors.Is(err, models.ErrTripNotBookable),
		errors.Is(err, models.ErrTripNotDeparted),
		errors.Is(err, models.ErrTicketAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrAmountMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrInvalidWebhookSignature),
		errors.Is(err, models.ErrStaleWebhook),
		errors.Is(err, models.ErrInvalidPIN):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrTripNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrPassengerNotFound),
		errors.Is(err, models.ErrTicketNotFound),
		errors.Is(err, models.ErrStaffNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requestMeta builds the audit context for the current request.
func requestMeta(c *gin.Context) services.RequestMeta {
	meta := services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if userCtx, ok := middleware.GetUserContext(c); ok {
		actorID := userCtx.UserID
		meta.ActorID = &actorID
	}
	return meta
}
