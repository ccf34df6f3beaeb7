package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/models"
	"github.com/swiftbus/booking-backend/pkg/sms"
)

// NotificationService sends passenger SMS and records operational
// follow-up tasks. Everything here is fire-and-forget: delivery failures
// are logged, never returned to the calling flow.
type NotificationService struct {
	sender sms.Sender
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(sender sms.Sender, db *sqlx.DB, logger *logrus.Logger) *NotificationService {
	return &NotificationService{sender: sender, db: db, logger: logger}
}

// NotifyTicketsIssued texts each passenger with a phone number their
// ticket short code after a successful settlement.
func (s *NotificationService) NotifyTicketsIssued(booking *models.Booking, tickets []models.Ticket) {
	codeBySeat := make(map[string]string, len(tickets))
	for _, t := range tickets {
		codeBySeat[t.PassengerID] = t.ShortCode
	}

	for _, p := range booking.Passengers {
		if p.Phone == nil || *p.Phone == "" {
			continue
		}
		code := codeBySeat[p.ID]
		message := fmt.Sprintf("Your ticket %s is confirmed. Seat %d. Show this code at boarding.", code, p.SeatNumber)
		s.dispatch(*p.Phone, message)
	}
}

// NotifyBookingCancelled texts passengers that payment failed and their
// seats were released.
func (s *NotificationService) NotifyBookingCancelled(booking *models.Booking) {
	for _, p := range booking.Passengers {
		if p.Phone == nil || *p.Phone == "" {
			continue
		}
		s.dispatch(*p.Phone, "Your booking payment did not complete and the reservation was cancelled. Seats have been released.")
	}
}

func (s *NotificationService) dispatch(phone, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.sender.Send(ctx, phone, message); err != nil {
			s.logger.WithError(err).WithField("phone", phone).Warn("Failed to send SMS")
		}
	}()
}

// RecordLowSeatTask files a follow-up task when a trip auto-halts, so
// operations staff review remaining capacity. Best effort.
func (s *NotificationService) RecordLowSeatTask(ctx context.Context, tripID string, availableSlots int) {
	note := fmt.Sprintf("Trip auto-halted with %d seats remaining; review counter allocation", availableSlots)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO follow_up_tasks (id, trip_id, task_type, note, status)
		VALUES ($1, $2, 'low_seat_review', $3, 'open')`,
		uuid.New().String(), tripID, note)
	if err != nil {
		s.logger.WithError(err).WithField("trip_id", tripID).Warn("Failed to record follow-up task")
	}
}
