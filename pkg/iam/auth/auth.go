package auth

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

// Nombres de cookie de las credenciales locales
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Claims propios del access token. El rol siempre va en "rol", en mayúsculas.
const (
	ClaimUsuario = "usuario"
	ClaimRol     = "rol"
)

// refreshTokenBytes es el largo del refresh token antes de codificarlo
const refreshTokenBytes = 64

// ============================================================================
// Token Types
// ============================================================================

// ReconciledIdentity es la identidad de CiDi combinada con el rol local:
// {cuil, nombre, apellido, rol}. Es lo que viaja serializado en el access token.
type ReconciledIdentity struct {
	Cuil     kernel.Cuil `json:"cuil"`
	Nombre   string      `json:"nombre"`
	Apellido string      `json:"apellido"`
	Rol      kernel.Role `json:"rol"`
}

// AuthContext arma el contexto de request para el token con id jti
func (r *ReconciledIdentity) AuthContext(jti string) *kernel.AuthContext {
	return &kernel.AuthContext{
		Cuil:     r.Cuil,
		Nombre:   r.Nombre,
		Apellido: r.Apellido,
		Rol:      kernel.NormalizeRole(r.Rol.String()),
		TokenID:  jti,
	}
}

// TokenPair son las credenciales que la capa HTTP escribe como cookies
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"-"`
	TokenID          string    `json:"jti"`
	AccessExpiresAt  time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"-"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeInvalidRefreshToken   = ErrRegistry.Register("INVALID_REFRESH_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid refresh token")
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
	CodeTokenValidationFailed = ErrRegistry.Register("TOKEN_VALIDATION_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "Token validation failed")
	CodeUnauthorized          = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Authentication required")
	CodeAccessDenied          = ErrRegistry.Register("ACCESS_DENIED", errx.TypeAuthorization, http.StatusForbidden, "Access denied")
	CodeInvalidIdentity       = ErrRegistry.Register("INVALID_IDENTITY", errx.TypeValidation, http.StatusBadRequest, "Identity has no CUIL")
)

// Helper functions
func ErrInvalidRefreshToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidRefreshToken)
}

func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}

func ErrTokenValidationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenValidationFailed)
}

func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

func ErrAccessDenied() *errx.Error {
	return ErrRegistry.New(CodeAccessDenied)
}

func ErrInvalidIdentity() *errx.Error {
	return ErrRegistry.New(CodeInvalidIdentity)
}
