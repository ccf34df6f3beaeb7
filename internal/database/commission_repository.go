package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/swiftbus/booking-backend/internal/models"
)

// CommissionRepository handles referral lookups and the sales-commission
// ledger. Rows are written only inside a settlement transaction.
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository creates a new CommissionRepository
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// GetActiveReferral returns the purchasing user's active referral link, or
// nil when the user was not referred. The link is an immutable input to
// the deterministic commission split.
func (r *CommissionRepository) GetActiveReferral(ctx context.Context, userID string) (*models.ReferralLink, error) {
	var link models.ReferralLink
	query := `
		SELECT id, user_id, sales_person_id, recruiter_id, status, created_at
		FROM referral_links
		WHERE user_id = $1 AND status = 'active'`
	err := r.db.GetContext(ctx, &link, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	return &link, nil
}

// insertCommissions persists the split allocations inside the caller's
// settlement transaction.
func insertCommissions(ctx context.Context, tx *sqlx.Tx, bookingID string, allocations []models.CommissionAllocation) error {
	query := `
		INSERT INTO sales_commissions (id, booking_id, beneficiary_id, role, amount, payout_status)
		VALUES ($1, $2, $3, $4, $5, 'pending')`
	for _, alloc := range allocations {
		if _, err := tx.ExecContext(ctx, query,
			uuid.New().String(), bookingID, alloc.BeneficiaryID, alloc.Role, alloc.Amount,
		); err != nil {
			return fmt.Errorf("failed to record sales commission: %w", err)
		}
	}
	return nil
}

// ListByBooking returns the commission rows recorded for a booking.
func (r *CommissionRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.SalesCommission, error) {
	commissions := []models.SalesCommission{}
	query := `
		SELECT id, booking_id, beneficiary_id, role, amount, payout_status, created_at
		FROM sales_commissions WHERE booking_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &commissions, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	return commissions, nil
}
