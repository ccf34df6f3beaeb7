package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/models"
)

// AuditRepository appends audit rows. Entries carry typed payloads that
// are serialized to JSONB only here, at the persistence boundary.
type AuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB, logger *logrus.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Log appends one audit entry. Callers treat this as best-effort: the
// service layer logs failures and never propagates them into the
// transaction being audited.
func (r *AuditRepository) Log(ctx context.Context, actorID *string, entityType, entityID string, details models.AuditDetails, ipAddress, userAgent string) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to serialize audit details: %w", err)
	}

	entry := models.AuditLog{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Action:     details.Action(),
		EntityType: entityType,
		EntityID:   entityID,
		Details:    payload,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Details, entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}
