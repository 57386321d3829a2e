package config

import (
	"encoding/base64"
	"time"
)

// MinSecretLength es el largo mínimo del secreto de firma
const MinSecretLength = 32

// JWTConfig configura la emisión de tokens locales
type JWTConfig struct {
	Secret string
	// SecretBase64 indica que Secret viene codificado en base64 estándar
	SecretBase64    bool
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

func loadJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:          getEnv("JWT_SECRET", ""),
		SecretBase64:    getEnvBool("JWT_SECRET_BASE64", false),
		Issuer:          getEnv("JWT_ISSUER", "cidigate"),
		Audience:        getEnv("JWT_AUDIENCE", "cidigate-web"),
		AccessTokenTTL:  time.Duration(getEnvInt("JWT_ACCESS_MINUTES", 15)) * time.Minute,
		RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
	}
}

// SigningKey devuelve los bytes de la clave simétrica
func (c JWTConfig) SigningKey() ([]byte, error) {
	if !c.SecretBase64 {
		return []byte(c.Secret), nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Secret)
	if err != nil {
		return nil, ErrInvalidValue("JWT_SECRET", "not valid base64").WithCause(err)
	}
	return key, nil
}

func (c JWTConfig) validate() error {
	if c.Secret == "" {
		return ErrMissingValue("JWT_SECRET")
	}
	if len(c.Secret) < MinSecretLength {
		return ErrInvalidValue("JWT_SECRET", "must be at least 32 characters")
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}
	if c.AccessTokenTTL <= 0 {
		return ErrInvalidValue("JWT_ACCESS_MINUTES", "must be positive")
	}
	return nil
}
