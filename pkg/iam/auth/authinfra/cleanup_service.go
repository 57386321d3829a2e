package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/logx"
)

// ExpiredTokenPurger borra refresh tokens vencidos
type ExpiredTokenPurger interface {
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// CleanupService borra periódicamente los refresh tokens vencidos. La
// validación ya los ignora; esto solo evita que la tabla crezca.
type CleanupService struct {
	purger   ExpiredTokenPurger
	interval time.Duration
}

func NewCleanupService(purger ExpiredTokenPurger, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupService{purger: purger, interval: interval}
}

// Start corre hasta que ctx se cancela
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logx.Info("IAM cleanup service stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce hace una pasada de limpieza
func (s *CleanupService) RunOnce(ctx context.Context) int64 {
	n, err := s.purger.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		logx.WithError(err).Error("Failed to clean expired refresh tokens")
		return 0
	}
	if n > 0 {
		logx.WithField("deleted", n).Info("Expired refresh tokens cleaned")
	}
	return n
}
