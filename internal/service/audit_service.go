package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
)

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// RequestMeta identifies the client behind a request for the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta stores client metadata on ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the metadata stored by WithRequestMeta.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// AuditService appends audit trail entries. Write failures are logged and
// never surface to the business action that triggered them.
type AuditService struct {
	repo   auditWriter
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditWriter, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record stores one entry. oldValues and newValues are JSON encoded when set.
func (s *AuditService) Record(ctx context.Context, actorID, action, resource, resourceID string, oldValues, newValues interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	meta := RequestMetaFrom(ctx)
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: s.encode(oldValues),
		NewValues: s.encode(newValues),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}

func (s *AuditService) encode(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode audit payload", zap.Error(err))
		return nil
	}
	return raw
}
