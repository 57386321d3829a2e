package errx

import "net/http"

// Type clasifica el error y define el status HTTP por defecto
type Type string

const (
	TypeInternal      Type = "INTERNAL"
	TypeValidation    Type = "VALIDATION"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeExternal      Type = "EXTERNAL"
	// TypeConfiguration marca errores de arranque: el proceso no debe iniciar
	TypeConfiguration Type = "CONFIGURATION"
)

func (t Type) String() string { return string(t) }

// HTTPStatus devuelve el status sugerido para el tipo
func (t Type) HTTPStatus() int {
	switch t {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuthorization:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
