// Package sessioncache guarda identidades de CiDi para no repetir consultas
// al proveedor. Las entradas se indexan por CUIL y por hash de cookie.
package sessioncache

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/logx"
)

// Prefijos de clave
const (
	IdentityPrefix = "identity:"
	CookiePrefix   = "cookie:"
)

func IdentityKey(cuil string) string { return IdentityPrefix + cuil }
func CookieKey(hash string) string   { return CookiePrefix + hash }

// Cache es un almacén concurrente con dos clases de expiración.
// Get decodifica en dst (un puntero) y devuelve false si no hay entrada vigente.
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, static bool)
	Remove(ctx context.Context, key string)
}

// Policy son los plazos de expiración
type Policy struct {
	// Entradas de usuario: vencen a UserAbsolute de creadas o a UserSliding
	// del último acceso, lo que ocurra primero.
	UserAbsolute time.Duration
	UserSliding  time.Duration
	// Entradas estáticas: solo vencimiento absoluto
	Static time.Duration
}

// DefaultPolicy: usuario 6h absoluto / 1h deslizante; estáticas 24h
func DefaultPolicy() Policy {
	return Policy{
		UserAbsolute: 6 * time.Hour,
		UserSliding:  time.Hour,
		Static:       24 * time.Hour,
	}
}

// Normalize completa los plazos no configurados
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	if p.UserAbsolute <= 0 {
		p.UserAbsolute = d.UserAbsolute
	}
	if p.UserSliding <= 0 {
		p.UserSliding = d.UserSliding
	}
	if p.Static <= 0 {
		p.Static = d.Static
	}
	return p
}

// Deadlines devuelve el vencimiento absoluto y el inicial de una entrada nueva
func (p Policy) Deadlines(now time.Time, static bool) (absolute, current time.Time) {
	if static {
		absolute = now.Add(p.Static)
		return absolute, absolute
	}
	absolute = now.Add(p.UserAbsolute)
	return absolute, minTime(absolute, now.Add(p.UserSliding))
}

// Touch extiende una entrada de usuario en un acceso, sin pasar del absoluto
func (p Policy) Touch(now, absolute time.Time, static bool) time.Time {
	if static {
		return absolute
	}
	return minTime(absolute, now.Add(p.UserSliding))
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// SkipSet indica un Set que no debe hacer nada (clave vacía o valor nil)
func SkipSet(key string, value any) bool {
	if key == "" {
		logx.Warn("session cache: set ignorado, clave vacía")
		return true
	}
	if isNil(value) {
		logx.WithField("key_prefix", keyPrefix(key)).Warn("session cache: set ignorado, valor nil")
		return true
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// keyPrefix evita loguear hashes de cookie completos
func keyPrefix(key string) string {
	for _, p := range []string{IdentityPrefix, CookiePrefix} {
		if len(key) >= len(p) && key[:len(p)] == p {
			return p
		}
	}
	return "other"
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CACHE")

var (
	CodeEncodeFailed = ErrRegistry.Register("ENCODE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Cache value could not be encoded")
	CodeDecodeFailed = ErrRegistry.Register("DECODE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Cache value could not be decoded")
	CodeBackend      = ErrRegistry.Register("BACKEND_ERROR", errx.TypeInternal, http.StatusInternalServerError, "Cache backend error")
)

func ErrEncodeFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeEncodeFailed, cause)
}

func ErrDecodeFailed(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeDecodeFailed, cause)
}

func ErrBackend(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeBackend, cause)
}
