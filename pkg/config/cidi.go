package config

import (
	"strings"
	"time"
)

// CidiConfig son las credenciales de la aplicación ante Ciudadano Digital
type CidiConfig struct {
	IdAplicacion int
	ClientSecret string
	ClientKey    string
	Environment  string

	// Endpoints
	UrlApiCuenta  string
	IniciarSesion string
	CerrarSesion  string

	Timeout time.Duration
	MaxRPS  float64
	Burst   int
}

// cidiPortals es el portal de login de CiDi por CIDI_ENVIRONMENT
var cidiPortals = map[string]string{
	"test": "https://cidi.test.cba.gov.ar",
	"prod": "https://cidi.cba.gov.ar",
}

func loadCidiConfig() CidiConfig {
	env := strings.ToLower(getEnv("CIDI_ENVIRONMENT", "test"))
	portal := cidiPortals[env]

	return CidiConfig{
		IdAplicacion:  getEnvInt("CIDI_ID_APLICACION", 0),
		ClientSecret:  getEnv("CIDI_CLIENT_SECRET", ""),
		ClientKey:     getEnv("CIDI_CLIENT_KEY", ""),
		Environment:   env,
		UrlApiCuenta:  strings.TrimRight(getEnv("CIDI_URL_API_CUENTA", ""), "/"),
		IniciarSesion: getEnv("CIDI_URL_INICIAR_SESION", portal+"/Cuenta/Login"),
		CerrarSesion:  getEnv("CIDI_URL_CERRAR_SESION", portal+"/Cuenta/CerrarSesion"),
		Timeout:       getEnvDuration("CIDI_TIMEOUT", 5*time.Second),
		MaxRPS:        getEnvFloat("CIDI_MAX_RPS", 0),
		Burst:         getEnvInt("CIDI_BURST", 10),
	}
}

func (c CidiConfig) validate() error {
	if _, ok := cidiPortals[c.Environment]; !ok {
		return ErrInvalidValue("CIDI_ENVIRONMENT", "must be test or prod")
	}
	if c.UrlApiCuenta == "" {
		return ErrMissingValue("CIDI_URL_API_CUENTA")
	}
	if !strings.HasPrefix(c.UrlApiCuenta, "http://") && !strings.HasPrefix(c.UrlApiCuenta, "https://") {
		return ErrInvalidValue("CIDI_URL_API_CUENTA", "must be an absolute http(s) url")
	}
	if c.IdAplicacion <= 0 {
		return ErrMissingValue("CIDI_ID_APLICACION")
	}
	if c.ClientSecret == "" {
		return ErrMissingValue("CIDI_CLIENT_SECRET")
	}
	if c.ClientKey == "" {
		return ErrMissingValue("CIDI_CLIENT_KEY")
	}
	if c.Timeout <= 0 {
		return ErrInvalidValue("CIDI_TIMEOUT", "must be positive")
	}
	return nil
}
