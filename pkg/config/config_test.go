package config_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CIDI_URL_API_CUENTA", "https://cuentacidi.test.cba.gov.ar/")
	t.Setenv("CIDI_ID_APLICACION", "123")
	t.Setenv("CIDI_CLIENT_SECRET", "secret")
	t.Setenv("CIDI_CLIENT_KEY", "key")
	t.Setenv("JWT_SECRET", validSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://cuentacidi.test.cba.gov.ar", cfg.Cidi.UrlApiCuenta)
	assert.Equal(t, 5*time.Second, cfg.Cidi.Timeout)
	assert.Equal(t, "test", cfg.Cidi.Environment)
	assert.Equal(t, "https://cidi.test.cba.gov.ar/Cuenta/Login", cfg.Cidi.IniciarSesion)
	assert.Equal(t, "https://cidi.test.cba.gov.ar/Cuenta/CerrarSesion", cfg.Cidi.CerrarSesion)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, 6*time.Hour, cfg.Cache.UserAbsoluteTTL)
	assert.Equal(t, time.Hour, cfg.Cache.UserSlidingTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.StaticTTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.True(t, cfg.Server.CookieSecure)
}

func TestLoad_ProdEnvironmentPortal(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CIDI_ENVIRONMENT", "PROD")
	t.Setenv("CIDI_URL_CERRAR_SESION", "https://sso.example.com/salir")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Cidi.Environment)
	assert.Equal(t, "https://cidi.cba.gov.ar/Cuenta/Login", cfg.Cidi.IniciarSesion)
	assert.Equal(t, "https://sso.example.com/salir", cfg.Cidi.CerrarSesion)
}

func TestLoad_UnknownEnvironmentIsFatal(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CIDI_ENVIRONMENT", "staging")

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, config.CodeInvalidValue))
}

func TestLoad_MissingBaseURLIsFatal(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CIDI_URL_API_CUENTA", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, config.CodeMissingValue))
	assert.True(t, errx.IsType(err, errx.TypeConfiguration))
}

func TestLoad_ShortSecretIsFatal(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JWT_SECRET", strings.Repeat("x", 31))

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errx.HasCode(err, config.CodeInvalidValue))
}

func TestJWTConfig_SigningKeyBase64(t *testing.T) {
	raw := []byte("a-very-long-signing-key-with-32-bytes!!")
	cfg := config.JWTConfig{Secret: base64.StdEncoding.EncodeToString(raw), SecretBase64: true}

	key, err := cfg.SigningKey()
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	cfg.Secret = "%%%not-base64%%%-but-long-enough-to-pass"
	_, err = cfg.SigningKey()
	assert.Error(t, err)
}

func TestLoad_RedisCacheRequiresRedis(t *testing.T) {
	setValidEnv(t)
	t.Setenv("CACHE_BACKEND", "redis")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("REDIS_ENABLED", "true")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}
