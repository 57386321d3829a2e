package auth

import (
	"context"

	"github.com/Abraxas-365/cidigate/pkg/iam/user"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

// SessionStore es la parte del repositorio de usuarios que usa el emisor de tokens
type SessionStore interface {
	FindByCuil(ctx context.Context, cuil kernel.Cuil) (*user.LocalUser, error)
	SaveRefreshToken(ctx context.Context, cuil kernel.Cuil, token string) error
	ValidateRefreshToken(ctx context.Context, token string) (kernel.Cuil, error)
}

// TokenService emite y valida las credenciales locales
type TokenService interface {
	IssueTokens(ctx context.Context, identity ReconciledIdentity) (TokenPair, error)
	ExtractIdentity(accessToken string) (*ReconciledIdentity, bool)
	RefreshSession(ctx context.Context, refreshToken string) (*ReconciledIdentity, TokenPair, error)
}

// AccessTokenValidator es lo único que necesita el middleware
type AccessTokenValidator interface {
	ValidateAccessToken(accessToken string) (*AccessClaims, error)
}

// AuditService defines the contract for authentication audit logging
type AuditService interface {
	LogSessionResolved(ctx context.Context, cuil kernel.Cuil, source string, ip string)
	LogTokenRefresh(ctx context.Context, cuil kernel.Cuil, ip string)
	LogLogout(ctx context.Context, cuil kernel.Cuil, ip string)
	LogAuthFailure(ctx context.Context, reason string, ip string)
}
