package session

import "strings"

// Fuentes del hash de la cookie de CiDi
const (
	CidiCookieName  = "CiDi"
	CidiHeaderName  = "CiDi"
	CidiTokenHeader = "X-CiDi-Token"
	CidiLocalKey    = "CiDi"
	CidiQueryParam  = "cidiToken"
)

// RequestView es la vista de solo lectura del request que necesita la extracción
type RequestView interface {
	Cookie(name string) string
	Header(name string) string
	Local(key string) string
	Query(name string) string
}

// ExtractExternalCookieHash devuelve el primer valor no vacío, en este orden:
// cookie CiDi, header CiDi, header X-CiDi-Token, local CiDi, query cidiToken.
func ExtractExternalCookieHash(r RequestView) string {
	if r == nil {
		return ""
	}
	sources := []func() string{
		func() string { return r.Cookie(CidiCookieName) },
		func() string { return r.Header(CidiHeaderName) },
		func() string { return r.Header(CidiTokenHeader) },
		func() string { return r.Local(CidiLocalKey) },
		func() string { return r.Query(CidiQueryParam) },
	}
	for _, source := range sources {
		if v := strings.TrimSpace(source()); v != "" {
			return v
		}
	}
	return ""
}
