package user

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

// RefreshTokenTTL es la vigencia de un refresh token desde que se guarda
const RefreshTokenTTL = 7 * 24 * time.Hour

// ============================================================================
// Domain Types
// ============================================================================

// LocalUser es el registro local de una persona, por CUIL. Se crea solo (con
// nombre vacío y rol USUARIO) la primera vez que se guarda un refresh token.
type LocalUser struct {
	ID            int64       `json:"id_usuario"`
	Cuil          kernel.Cuil `json:"cuil"`
	Nombre        string      `json:"nombre"`
	Apellido      string      `json:"apellido"`
	Activo        bool        `json:"activo"`
	FechaCreacion *time.Time  `json:"fecha_creacion,omitempty"`
	FechaBaja     *time.Time  `json:"fecha_baja,omitempty"`
	RoleID        *int64      `json:"id_rol,omitempty"`
	Rol           kernel.Role `json:"rol"`
}

// RoleOrDefault devuelve el rol normalizado; sin rol asignado es USUARIO
func (u *LocalUser) RoleOrDefault() kernel.Role {
	if u == nil {
		return kernel.DefaultRole
	}
	return kernel.NormalizeRole(string(u.Rol))
}

// RefreshToken es la fila persistida. A lo sumo uno vigente por CUIL.
type RefreshToken struct {
	ID         int64       `db:"id"`
	Cuil       kernel.Cuil `db:"cuil"`
	Token      string      `db:"refresh_token"`
	Expiration time.Time   `db:"expiration"`
}

// IsExpiredAt indica si el token ya no sirve en now (expiration <= now)
func (r *RefreshToken) IsExpiredAt(now time.Time) bool {
	return !r.Expiration.After(now)
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeQueryFailed       = ErrRegistry.Register("QUERY_FAILED", errx.TypeInternal, http.StatusInternalServerError, "User store query failed")
	CodeTransactionFailed = ErrRegistry.Register("TRANSACTION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Could not persist refresh token")
	CodeInvalidCuil       = ErrRegistry.Register("INVALID_CUIL", errx.TypeValidation, http.StatusBadRequest, "CUIL is empty or malformed")
)

func ErrQueryFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeQueryFailed, cause)
}

func ErrTransactionFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeTransactionFailed, cause)
}

func ErrInvalidCuil() *errx.Error {
	return ErrRegistry.New(CodeInvalidCuil)
}
