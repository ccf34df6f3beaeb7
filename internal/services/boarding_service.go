package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/models"
)

// BoardingService handles the post-departure gate workflow.
type BoardingService struct {
	boardingRepo *database.BoardingRepository
	ticketRepo   *database.TicketRepository
	auditSvc     *AuditService
	logger       *logrus.Logger
}

// NewBoardingService creates a new BoardingService
func NewBoardingService(
	boardingRepo *database.BoardingRepository,
	ticketRepo *database.TicketRepository,
	auditSvc *AuditService,
	logger *logrus.Logger,
) *BoardingService {
	return &BoardingService{
		boardingRepo: boardingRepo,
		ticketRepo:   ticketRepo,
		auditSvc:     auditSvc,
		logger:       logger,
	}
}

// BoardPassenger marks a ticket used at the gate. Boarding is terminal.
func (s *BoardingService) BoardPassenger(ctx context.Context, shortCode string, meta RequestMeta) (*models.TicketVerification, error) {
	verification, err := s.boardingRepo.BoardPassenger(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"short_code": shortCode,
		"trip_id":    verification.TripID,
		"seat":       verification.SeatNumber,
	}).Info("Passenger boarded")

	s.auditSvc.Record(ctx, "trip", verification.TripID, models.BoardingAuditDetails{
		TripID: verification.TripID,
		Kind:   models.AuditActionPassengerBoarded,
	}, meta)
	return verification, nil
}

// MarkNoShows flags passengers who did not board, releasing their seats
// into the replacement pool. Skipped passengers are reported, not errored.
func (s *BoardingService) MarkNoShows(ctx context.Context, tripID string, req *models.MarkNoShowsRequest, meta RequestMeta) ([]models.NoShowOutcome, error) {
	if len(req.PassengerIDs) == 0 {
		return []models.NoShowOutcome{}, nil
	}

	outcomes, err := s.boardingRepo.MarkNoShows(ctx, tripID, req.PassengerIDs)
	if err != nil {
		return nil, err
	}

	marked := 0
	for _, o := range outcomes {
		if o.Marked {
			marked++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"trip_id": tripID,
		"marked":  marked,
		"skipped": len(outcomes) - marked,
	}).Info("No-shows processed")

	if marked > 0 {
		s.auditSvc.Record(ctx, "trip", tripID, models.BoardingAuditDetails{
			TripID:       tripID,
			PassengerIDs: req.PassengerIDs,
			Marked:       marked,
			Skipped:      len(outcomes) - marked,
			Kind:         models.AuditActionNoShowMarked,
		}, meta)
	}
	return outcomes, nil
}

// VerifyTicket returns the gate-facing view of a ticket without mutating
// it. Used by the public QR verification endpoint.
func (s *BoardingService) VerifyTicket(ctx context.Context, shortCode string) (*models.TicketVerification, error) {
	return s.ticketRepo.GetByShortCode(ctx, shortCode)
}
