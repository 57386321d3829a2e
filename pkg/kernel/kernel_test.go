package kernel_test

import (
	"testing"

	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

func TestNormalizeRole(t *testing.T) {
	if got := kernel.NormalizeRole(" admin "); got != kernel.RoleAdmin {
		t.Fatalf("expected ADMIN, got %q", got)
	}
	if got := kernel.NormalizeRole(""); got != kernel.RoleUsuario {
		t.Fatalf("expected default USUARIO, got %q", got)
	}
}

func TestPolicies(t *testing.T) {
	cases := []struct {
		policy kernel.Policy
		role   kernel.Role
		want   bool
	}{
		{kernel.AdminPolicy, kernel.RoleAdmin, true},
		{kernel.AdminPolicy, kernel.RoleUsuario, false},
		{kernel.EmpresaPolicy, kernel.RoleEmpresa, true},
		{kernel.EmpresaPolicy, kernel.RoleAdmin, false},
		{kernel.UsuarioPolicy, kernel.RoleEmpresa, true},
		{kernel.UsuarioPolicy, "admin", true},
		{kernel.UsuarioPolicy, "INVITADO", false},
	}
	for _, tc := range cases {
		if got := tc.policy.Allows(tc.role); got != tc.want {
			t.Fatalf("%s.Allows(%s) = %v, want %v", tc.policy.Name, tc.role, got, tc.want)
		}
	}
}

func TestCuil(t *testing.T) {
	c := kernel.NewCuil("20-12345678-9")
	if c != "20123456789" || !c.IsWellFormed() {
		t.Fatalf("unexpected cuil %q", c)
	}
	if kernel.Cuil("2012345678X").IsWellFormed() {
		t.Fatal("non numeric cuil accepted")
	}
	ac := &kernel.AuthContext{Cuil: c, Rol: kernel.RoleEmpresa}
	if !ac.Satisfies(kernel.UsuarioPolicy) || ac.Satisfies(kernel.AdminPolicy) {
		t.Fatal("unexpected policy evaluation")
	}
}
