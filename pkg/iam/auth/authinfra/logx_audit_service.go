package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

var _ auth.AuditService = (*LogxAuditService)(nil)

func (s *LogxAuditService) LogSessionResolved(ctx context.Context, cuil kernel.Cuil, source string, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "session_resolved",
		"cuil":        cuil,
		"source":      source,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: session resolved")
}

func (s *LogxAuditService) LogTokenRefresh(ctx context.Context, cuil kernel.Cuil, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "token_refresh",
		"cuil":        cuil,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: token refresh")
}

func (s *LogxAuditService) LogLogout(ctx context.Context, cuil kernel.Cuil, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "logout",
		"cuil":        cuil,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: logout")
}

func (s *LogxAuditService) LogAuthFailure(ctx context.Context, reason string, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "auth_failure",
		"reason":      reason,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Warn("Audit: authentication failed")
}
