package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/swiftbus/booking-backend/internal/models"
)

// StaffRepository handles counter staff lookups.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// GetByID returns an active staff user.
func (r *StaffRepository) GetByID(ctx context.Context, staffID string) (*models.StaffUser, error) {
	var staff models.StaffUser
	query := `
		SELECT id, company_id, full_name, role, pin_hash, is_active, created_at
		FROM staff_users
		WHERE id = $1 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &staff, query, staffID); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &staff, nil
}
