package kernel

// ============================================================================
// Context Types
// ============================================================================

// AuthContext es la identidad reconciliada que se inyecta en cada request
// autenticado: datos de CiDi + rol local.
type AuthContext struct {
	Cuil     Cuil   `json:"cuil"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Rol      Role   `json:"rol"`
	TokenID  string `json:"jti,omitempty"`
}

func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.Cuil.IsEmpty()
}

func (ac *AuthContext) Satisfies(p Policy) bool {
	return ac.IsValid() && p.Allows(ac.Rol)
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// AuthContextKey guarda *AuthContext en fiber Locals / context.Context
	AuthContextKey ContextKey = "auth"

	// CidiHashKey guarda el hash de la cookie CiDi en los Locals del request
	CidiHashKey ContextKey = "CiDi"

	RequestIDKey ContextKey = "request_id"
)

func (k ContextKey) String() string { return string(k) }
