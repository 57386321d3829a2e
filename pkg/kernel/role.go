package kernel

import "strings"

// Role es el rol local que se embebe en los tokens. Siempre en mayúsculas.
type Role string

const (
	RoleUsuario Role = "USUARIO"
	RoleEmpresa Role = "EMPRESA"
	RoleAdmin   Role = "ADMIN"

	// DefaultRole se asigna a CUILs sin registro local
	DefaultRole = RoleUsuario
)

// NormalizeRole pasa a mayúsculas; vacío devuelve DefaultRole
func NormalizeRole(r string) Role {
	r = strings.ToUpper(strings.TrimSpace(r))
	if r == "" {
		return DefaultRole
	}
	return Role(r)
}

func (r Role) String() string { return string(r) }

// ============================================================================
// Policies
// ============================================================================

// Policy es un conjunto de roles aceptados
type Policy struct {
	Name  string
	Roles []Role
}

var (
	AdminPolicy   = Policy{Name: "AdminPolicy", Roles: []Role{RoleAdmin}}
	EmpresaPolicy = Policy{Name: "EmpresaPolicy", Roles: []Role{RoleEmpresa}}
	UsuarioPolicy = Policy{Name: "UsuarioPolicy", Roles: []Role{RoleUsuario, RoleEmpresa, RoleAdmin}}
)

// Allows compara con el rol normalizado
func (p Policy) Allows(r Role) bool {
	r = NormalizeRole(string(r))
	for _, allowed := range p.Roles {
		if allowed == r {
			return true
		}
	}
	return false
}
