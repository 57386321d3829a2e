package user

import (
	"context"

	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

// Repository es el almacén local de usuarios, roles y refresh tokens
type Repository interface {
	// FindByCuil incluye el rol. No encontrado devuelve (nil, nil).
	FindByCuil(ctx context.Context, cuil kernel.Cuil) (*LocalUser, error)
	ListAll(ctx context.Context) ([]LocalUser, error)

	// SaveRefreshToken da de alta al usuario si no existe y reemplaza su
	// refresh token, todo en una transacción. El error se propaga siempre.
	SaveRefreshToken(ctx context.Context, cuil kernel.Cuil, token string) error

	// ValidateRefreshToken devuelve el CUIL dueño si el token existe y
	// no venció; si no, "" sin error.
	ValidateRefreshToken(ctx context.Context, token string) (kernel.Cuil, error)

	// DeleteRefreshToken es idempotente
	DeleteRefreshToken(ctx context.Context, token string) error

	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}
