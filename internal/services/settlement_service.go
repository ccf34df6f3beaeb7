package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/config"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/models"
)

// SettlementService turns pending bookings into paid or cancelled ones.
// Both the synchronous demo path and the provider webhook converge on the
// same repository transactions, so tickets, commissions, and seat releases
// are atomic with the payment record either way.
type SettlementService struct {
	bookingRepo    *database.BookingRepository
	paymentRepo    *database.PaymentRepository
	commissionRepo *database.CommissionRepository
	tripRepo       *database.TripRepository
	auditSvc       *AuditService
	notifier       *NotificationService
	cfg            config.PaymentConfig
	logger         *logrus.Logger

	// now is swappable for freshness-window tests.
	now func() time.Time
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	commissionRepo *database.CommissionRepository,
	tripRepo *database.TripRepository,
	auditSvc *AuditService,
	notifier *NotificationService,
	cfg config.PaymentConfig,
	logger *logrus.Logger,
) *SettlementService {
	return &SettlementService{
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		commissionRepo: commissionRepo,
		tripRepo:       tripRepo,
		auditSvc:       auditSvc,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

// InitiateDemoPayment settles a pending booking synchronously. The amount
// is recomputed from the trip price and must match what the booking
// stored; a mismatch aborts before any money state changes.
func (s *SettlementService) InitiateDemoPayment(ctx context.Context, userID string, req *models.InitiatePaymentRequest, meta RequestMeta) (*database.SettlementResult, error) {
	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, models.ErrBookingNotFound
	}

	trip, err := s.tripRepo.GetByID(ctx, booking.TripID)
	if err != nil {
		return nil, err
	}

	expected := PricingFor(trip.PricePerSeat, CalculateCommission)(booking.SeatCount)
	if !expected.TotalAmount.Equal(booking.TotalAmount) ||
		!expected.Commission.Equal(booking.Commission) ||
		!expected.CommissionVAT.Equal(booking.CommissionVAT) {
		s.auditSvc.Record(ctx, "booking", booking.ID, models.SettlementAuditDetails{
			BookingID: booking.ID,
			Amount:    booking.TotalAmount,
			Kind:      models.AuditActionAmountMismatch,
		}, meta)
		return nil, models.ErrAmountMismatch
	}

	method := models.PaymentMethod(req.Method)
	if method == "" {
		method = models.PaymentMethodDemo
	}

	allocations, err := s.allocationsFor(ctx, booking)
	if err != nil {
		return nil, err
	}

	transactionID := fmt.Sprintf("DEMO-%s", uuid.New().String())
	result, err := s.paymentRepo.SettleSuccess(ctx, booking.ID, transactionID, method, booking.TotalAmount, allocations)
	if err != nil {
		return nil, err
	}

	s.afterSuccess(ctx, booking, result, meta)
	return result, nil
}

// ProcessWebhook handles the asynchronous provider callback. Order
// matters: authenticity first, then freshness, then idempotency, then
// settlement. A replayed transaction id is acknowledged without touching
// any state.
func (s *SettlementService) ProcessWebhook(ctx context.Context, payload *models.PaymentWebhookPayload, meta RequestMeta) (*WebhookResult, error) {
	if err := s.VerifyWebhook(payload); err != nil {
		s.logger.WithError(err).WithField("transaction_id", payload.TransactionID).Warn("Webhook rejected")
		return nil, err
	}

	existing, err := s.paymentRepo.GetByTransactionID(ctx, payload.TransactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == models.PaymentStatusSuccess {
		s.auditSvc.Record(ctx, "payment", existing.ID, models.SettlementAuditDetails{
			BookingID:     existing.BookingID,
			TransactionID: payload.TransactionID,
			Amount:        existing.Amount,
			Method:        existing.Method,
			Kind:          models.AuditActionWebhookReplayed,
		}, meta)
		return &WebhookResult{Duplicate: true}, nil
	}

	booking, err := s.bookingRepo.GetByID(ctx, payload.OutTradeNo)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook amount %q: %w", payload.Amount, err)
	}

	switch payload.Status {
	case models.WebhookStatusSuccess:
		if !amount.Equal(booking.TotalAmount) {
			s.auditSvc.Record(ctx, "booking", booking.ID, models.SettlementAuditDetails{
				BookingID:     booking.ID,
				TransactionID: payload.TransactionID,
				Amount:        amount,
				Kind:          models.AuditActionAmountMismatch,
			}, meta)
			return nil, models.ErrAmountMismatch
		}

		allocations, err := s.allocationsFor(ctx, booking)
		if err != nil {
			return nil, err
		}
		result, err := s.paymentRepo.SettleSuccess(ctx, booking.ID, payload.TransactionID, models.PaymentMethodMobileMoney, amount, allocations)
		if errors.Is(err, models.ErrPaymentAlreadyProcessed) {
			// Lost a race with a concurrent delivery of the same webhook.
			return &WebhookResult{Duplicate: true}, nil
		}
		if err != nil {
			return nil, err
		}
		s.afterSuccess(ctx, booking, result, meta)
		return &WebhookResult{Settled: true}, nil

	case models.WebhookStatusFailed:
		payment, err := s.paymentRepo.SettleFailure(ctx, booking.ID, payload.TransactionID, models.PaymentMethodMobileMoney, amount)
		if errors.Is(err, models.ErrPaymentAlreadyProcessed) {
			return &WebhookResult{Duplicate: true}, nil
		}
		if err != nil {
			return nil, err
		}

		s.auditSvc.Record(ctx, "payment", payment.ID, models.SettlementAuditDetails{
			BookingID:     booking.ID,
			TransactionID: payload.TransactionID,
			Amount:        amount,
			Method:        payment.Method,
			SeatsReleased: booking.SeatCount,
			Kind:          models.AuditActionPaymentFailed,
		}, meta)
		s.notifier.NotifyBookingCancelled(booking)
		return &WebhookResult{Settled: true}, nil

	default:
		return nil, fmt.Errorf("unknown webhook status %q", payload.Status)
	}
}

// WebhookResult reports what a webhook delivery did.
type WebhookResult struct {
	Settled   bool `json:"settled"`
	Duplicate bool `json:"duplicate"`
}

// VerifyWebhook checks the payload signature and timestamp. The signature
// is HMAC-SHA256 over "transactionId|outTradeNo|status|amount|timestamp"
// with the shared secret.
func (s *SettlementService) VerifyWebhook(payload *models.PaymentWebhookPayload) error {
	age := s.now().Unix() - payload.Timestamp
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > s.cfg.WebhookFreshness {
		return models.ErrStaleWebhook
	}

	expected := s.signPayload(payload)
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return models.ErrInvalidWebhookSignature
	}
	return nil
}

func (s *SettlementService) signPayload(payload *models.PaymentWebhookPayload) string {
	base := fmt.Sprintf("%s|%s|%s|%s|%d",
		payload.TransactionID, payload.OutTradeNo, payload.Status, payload.Amount, payload.Timestamp)
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignWebhookPayload computes the signature a provider would attach. Used
// by the demo provider and tests.
func (s *SettlementService) SignWebhookPayload(payload *models.PaymentWebhookPayload) string {
	return s.signPayload(payload)
}

// allocationsFor resolves the purchasing user's referral split for a
// booking. Counter sales carry zero commission and get no allocations.
func (s *SettlementService) allocationsFor(ctx context.Context, booking *models.Booking) ([]models.CommissionAllocation, error) {
	if booking.Commission.IsZero() {
		return nil, nil
	}
	link, err := s.commissionRepo.GetActiveReferral(ctx, booking.UserID)
	if err != nil {
		return nil, err
	}
	return SplitCommission(booking.Commission, link), nil
}

func (s *SettlementService) afterSuccess(ctx context.Context, booking *models.Booking, result *database.SettlementResult, meta RequestMeta) {
	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"transaction_id": result.Payment.TransactionID,
		"amount":         result.Payment.Amount,
		"tickets":        len(result.Tickets),
	}).Info("Payment settled; tickets issued")

	s.auditSvc.Record(ctx, "payment", result.Payment.ID, models.SettlementAuditDetails{
		BookingID:     booking.ID,
		TransactionID: result.Payment.TransactionID,
		Amount:        result.Payment.Amount,
		Method:        result.Payment.Method,
		TicketsIssued: len(result.Tickets),
		Kind:          models.AuditActionPaymentSucceeded,
	}, meta)
	s.notifier.NotifyTicketsIssued(booking, result.Tickets)
}
