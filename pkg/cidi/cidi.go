// Package cidi es el cliente de la API de cuentas de Ciudadano Digital
// (CiDi), el proveedor de identidad del Gobierno de Córdoba.
package cidi

import (
	"encoding/json"
	"net/http"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
)

// ============================================================================
// Identity
// ============================================================================

// Identity es la foto del perfil de la persona en CiDi. Nunca se muta: una
// consulta nueva la reemplaza. Los nombres de campo siguen el JSON de CiDi;
// el decode es case-insensitive.
type Identity struct {
	CUIL               string          `json:"CUIL"`
	CuilFormateado     string          `json:"CuilFormateado,omitempty"`
	NroDocumento       string          `json:"NroDocumento,omitempty"`
	Apellido           string          `json:"Apellido"`
	Nombre             string          `json:"Nombre"`
	NombreFormateado   string          `json:"NombreFormateado,omitempty"`
	FechaNacimiento    string          `json:"FechaNacimiento,omitempty"`
	IdSexo             string          `json:"Id_Sexo,omitempty"`
	PaiCodPais         string          `json:"PaiCodPais,omitempty"`
	IdNumero           int             `json:"Id_Numero,omitempty"`
	IdEstado           *int            `json:"Id_Estado,omitempty"`
	Estado             string          `json:"Estado,omitempty"`
	Email              string          `json:"Email,omitempty"`
	TelArea            string          `json:"TelArea,omitempty"`
	TelNro             string          `json:"TelNro,omitempty"`
	TelFormateado      string          `json:"TelFormateado,omitempty"`
	CelArea            string          `json:"CelArea,omitempty"`
	CelNro             string          `json:"CelNro,omitempty"`
	CelFormateado      string          `json:"CelFormateado,omitempty"`
	Empleado           string          `json:"Empleado,omitempty"`
	IdEmpleado         string          `json:"Id_Empleado,omitempty"`
	FechaRegistro      string          `json:"FechaRegistro,omitempty"`
	FechaBloqueo       string          `json:"FechaBloqueo,omitempty"`
	IdAplicacionOrigen string          `json:"IdAplicacionOrigen,omitempty"`
	TieneRepresentados string          `json:"TieneRepresentados,omitempty"`
	Domicilio          json.RawMessage `json:"Domicilio,omitempty"` // tal cual lo devuelve CiDi
}

// Cuil devuelve el CUIL normalizado
func (i *Identity) Cuil() kernel.Cuil {
	if i == nil {
		return ""
	}
	return kernel.NewCuil(i.CUIL)
}

// IsUsable indica si la identidad trae CUIL. Sin CUIL no se puede reconciliar.
func (i *Identity) IsUsable() bool {
	return i != nil && !i.Cuil().IsEmpty()
}

// Clone devuelve una copia independiente
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.IdEstado != nil {
		v := *i.IdEstado
		c.IdEstado = &v
	}
	if i.Domicilio != nil {
		c.Domicilio = append(json.RawMessage(nil), i.Domicilio...)
	}
	return &c
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CIDI")

var (
	CodeNonASCIIInput       = ErrRegistry.Register("NON_ASCII_INPUT", errx.TypeValidation, http.StatusBadRequest, "Signature input must be ASCII")
	CodeProviderStatus      = ErrRegistry.Register("PROVIDER_STATUS", errx.TypeExternal, http.StatusBadGateway, "CiDi returned a non-success status")
	CodeProviderUnavailable = ErrRegistry.Register("PROVIDER_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "CiDi is unreachable")
	CodeProviderTimeout     = ErrRegistry.Register("PROVIDER_TIMEOUT", errx.TypeExternal, http.StatusGatewayTimeout, "CiDi did not answer in time")
	CodeInvalidResponse     = ErrRegistry.Register("INVALID_RESPONSE", errx.TypeExternal, http.StatusBadGateway, "CiDi response could not be decoded")
)

func ErrNonASCIIInput() *errx.Error {
	return ErrRegistry.New(CodeNonASCIIInput)
}

func ErrProviderStatus(status int, body string) *errx.Error {
	return ErrRegistry.New(CodeProviderStatus).
		WithDetail("status_code", status).
		WithDetail("body", body)
}

func ErrProviderUnavailable(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeProviderUnavailable, cause)
}

func ErrProviderTimeout(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeProviderTimeout, cause)
}

func ErrInvalidResponse(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeInvalidResponse, cause)
}

// IsProviderError indica un error del proveedor externo (status, red, timeout
// o respuesta ilegible).
func IsProviderError(err error) bool {
	return errx.HasCode(err, CodeProviderStatus) ||
		errx.HasCode(err, CodeProviderUnavailable) ||
		errx.HasCode(err, CodeProviderTimeout) ||
		errx.HasCode(err, CodeInvalidResponse)
}
