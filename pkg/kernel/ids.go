package kernel

import "strings"

// Cuil es el identificador tributario de 11 dígitos de una persona.
// Es la clave estable entre CiDi y los usuarios locales.
type Cuil string

func NewCuil(s string) Cuil    { return Cuil(strings.TrimSpace(strings.ReplaceAll(s, "-", ""))) }
func (c Cuil) String() string { return string(c) }
func (c Cuil) IsEmpty() bool  { return strings.TrimSpace(string(c)) == "" }

// IsWellFormed verifica 11 dígitos numéricos (no valida el dígito verificador)
func (c Cuil) IsWellFormed() bool {
	if len(c) != 11 {
		return false
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
