// Package session decide, para cada request, quién es el usuario: primero
// con las credenciales locales y, si no alcanzan, con la cookie de CiDi.
package session

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/iam/user"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

// Origen de la identidad resuelta
const (
	SourceAccessToken  = "access_token"
	SourceRefreshToken = "refresh_token"
	SourceCidi         = "cidi"
	SourceNone         = "none"
)

// Valores de FuenteDatos del perfil completo
const (
	FuenteCache  = "cache"
	FuenteCidi   = "cidi"
	FuenteBasica = "basica"
)

// ============================================================================
// Ports
// ============================================================================

// IdentityProvider canjea el hash de la cookie de CiDi por la identidad
type IdentityProvider interface {
	FetchIdentity(ctx context.Context, cookieHash string) (*cidi.Identity, error)
}

// LogoutURLProvider arma la URL de cierre de sesión en CiDi
type LogoutURLProvider interface {
	LogoutURL(returnURL string) string
}

// LoginURLProvider arma la URL de inicio de sesión en CiDi
type LoginURLProvider interface {
	LoginURL(returnURL string) string
}

// UserStore es la parte del repositorio local que usa el orquestador
type UserStore interface {
	FindByCuil(ctx context.Context, cuil kernel.Cuil) (*user.LocalUser, error)
	ValidateRefreshToken(ctx context.Context, token string) (kernel.Cuil, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// ============================================================================
// Types
// ============================================================================

// Credentials son las credenciales que trajo el request
type Credentials struct {
	AccessToken  string
	RefreshToken string
	CookieHash   string
	IP           string
}

// Result es el resultado de ResolveSession. Si Tokens no es nil hay que
// escribirlos como cookies; si ClearCookies es true hay que borrarlas.
type Result struct {
	Identity     *auth.ReconciledIdentity
	Tokens       *auth.TokenPair
	ClearCookies bool
	Source       string
}

func (r *Result) Authenticated() bool {
	return r != nil && r.Identity != nil && !r.Identity.Cuil.IsEmpty()
}

// FullIdentity es el perfil de CiDi más el rol local. Con FuenteBasica el
// perfil solo trae los datos de la sesión (CUIL, nombre y apellido).
type FullIdentity struct {
	Session     *Result
	Perfil      *cidi.Identity
	Rol         kernel.Role
	FuenteDatos string
}

// LogoutResult es lo que queda después de cerrar la sesión local
type LogoutResult struct {
	Cuil      kernel.Cuil
	LogoutURL string
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("SESSION")

var (
	CodeNotAuthenticated  = ErrRegistry.Register("NOT_AUTHENTICATED", errx.TypeAuthorization, http.StatusUnauthorized, "Not authenticated")
	CodePersistence       = ErrRegistry.Register("PERSISTENCE", errx.TypeInternal, http.StatusInternalServerError, "Session could not be established")
	CodeMissingCookieHash = ErrRegistry.Register("MISSING_COOKIE_HASH", errx.TypeValidation, http.StatusBadRequest, "CiDi cookie hash is required")
)

func ErrNotAuthenticated() *errx.Error {
	return ErrRegistry.New(CodeNotAuthenticated)
}

func ErrSessionPersistence(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodePersistence, cause)
}

func ErrMissingCookieHash() *errx.Error {
	return ErrRegistry.New(CodeMissingCookieHash)
}
