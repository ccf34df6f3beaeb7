package services

import (
	"context"
	"fmt"

	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/models"
)

// RequestMeta carries the request-scoped context attached to audit rows.
type RequestMeta struct {
	ActorID   *string
	IPAddress string
	UserAgent string
}

// AuditService appends audit entries for every booking, settlement, and
// boarding event. Writes are best-effort: a failed insert is logged and
// never fails the operation being audited.
type AuditService struct {
	repo    *database.AuditRepository
	logger  *logrus.Logger
	enabled bool
}

// NewAuditService creates a new AuditService
func NewAuditService(repo *database.AuditRepository, logger *logrus.Logger, enabled bool) *AuditService {
	return &AuditService{repo: repo, logger: logger, enabled: enabled}
}

// Record appends one audit entry for an entity.
func (s *AuditService) Record(ctx context.Context, entityType, entityID string, details models.AuditDetails, meta RequestMeta) {
	if !s.enabled {
		return
	}
	err := s.repo.Log(ctx, meta.ActorID, entityType, entityID, details, meta.IPAddress, deviceSummary(meta.UserAgent))
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":      details.Action(),
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Warn("Failed to write audit log entry")
	}
}

// deviceSummary condenses a raw User-Agent header into the short
// browser/OS form stored alongside audit rows.
func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := user_agent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	summary := fmt.Sprintf("%s %s on %s", name, version, ua.OS())
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}
