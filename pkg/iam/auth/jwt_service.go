package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService emite access tokens HS256 y refresh tokens opacos.
// Implementa TokenService y AccessTokenValidator.
type JWTService struct {
	secretKey       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	issuer          string
	audience        string
	store           SessionStore
	now             func() time.Time
}

type Option func(*JWTService)

// WithClock reemplaza el reloj (emisión y validación usan el mismo)
func WithClock(now func() time.Time) Option {
	return func(j *JWTService) { j.now = now }
}

// NewJWTService crea una nueva instancia del servicio JWT
func NewJWTService(secretKey []byte, accessTokenTTL, refreshTokenTTL time.Duration, issuer, audience string, store SessionStore, opts ...Option) *JWTService {
	if accessTokenTTL == 0 {
		accessTokenTTL = 15 * time.Minute // Por defecto 15 minutos
	}
	if refreshTokenTTL == 0 {
		refreshTokenTTL = 7 * 24 * time.Hour // Por defecto 7 días
	}
	if issuer == "" {
		issuer = "cidigate"
	}
	if audience == "" {
		audience = "cidigate-web"
	}

	j := &JWTService{
		secretKey:       secretKey,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		issuer:          issuer,
		audience:        audience,
		store:           store,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// NewJWTServiceFromConfig usa la configuración validada en el arranque
func NewJWTServiceFromConfig(cfg config.JWTConfig, store SessionStore, opts ...Option) (*JWTService, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	return NewJWTService(key, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.Issuer, cfg.Audience, store, opts...), nil
}

var (
	_ TokenService         = (*JWTService)(nil)
	_ AccessTokenValidator = (*JWTService)(nil)
)

// AccessClaims son los claims del access token
type AccessClaims struct {
	Usuario string `json:"usuario"`
	Rol     string `json:"rol"`
	jwt.RegisteredClaims
}

// Identity decodifica el claim usuario. El rol sale siempre del claim rol.
func (c *AccessClaims) Identity() (*ReconciledIdentity, error) {
	var identity ReconciledIdentity
	if err := json.Unmarshal([]byte(c.Usuario), &identity); err != nil {
		return nil, err
	}
	if identity.Cuil.IsEmpty() {
		identity.Cuil = kernel.NewCuil(c.Subject)
	}
	identity.Rol = kernel.NormalizeRole(c.Rol)
	return &identity, nil
}

// IssueTokens firma un access token nuevo y persiste un refresh token nuevo,
// que reemplaza al anterior del mismo CUIL. Si no se puede persistir no se
// devuelve nada.
func (j *JWTService) IssueTokens(ctx context.Context, identity ReconciledIdentity) (TokenPair, error) {
	if identity.Cuil.IsEmpty() {
		return TokenPair{}, ErrInvalidIdentity()
	}
	identity.Rol = kernel.NormalizeRole(identity.Rol.String())

	accessToken, jti, expiresAt, err := j.GenerateAccessToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := j.GenerateRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	if err := j.store.SaveRefreshToken(ctx, identity.Cuil, refreshToken); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenID:          jti,
		AccessExpiresAt:  expiresAt,
		RefreshExpiresAt: j.now().Add(j.refreshTokenTTL),
	}, nil
}

// GenerateAccessToken genera un token de acceso JWT
func (j *JWTService) GenerateAccessToken(identity ReconciledIdentity) (string, string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.accessTokenTTL)

	usuario, err := json.Marshal(identity)
	if err != nil {
		return "", "", time.Time{}, ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}

	jti := uuid.NewString()
	claims := AccessClaims{
		Usuario: string(usuario),
		Rol:     identity.Rol.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    j.issuer,
			Subject:   identity.Cuil.String(),
			Audience:  []string{j.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", "", time.Time{}, ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}

	return tokenString, jti, expiresAt, nil
}

// GenerateRefreshToken genera 64 bytes aleatorios en base64 estándar
func (j *JWTService) GenerateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ValidateAccessToken valida firma, algoritmo, issuer, audience y vigencia sin tolerancia
func (j *JWTService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
	}

	if !token.Valid {
		return nil, ErrTokenValidationFailed().WithDetail("error", "token is invalid")
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrTokenValidationFailed().WithDetail("error", "invalid claims type")
	}
	return claims, nil
}

// ExtractIdentity devuelve la identidad de un access token válido. Un token
// vencido o mal firmado es lo normal, así que solo se loguea en debug.
func (j *JWTService) ExtractIdentity(accessToken string) (*ReconciledIdentity, bool) {
	if accessToken == "" {
		return nil, false
	}

	claims, err := j.ValidateAccessToken(accessToken)
	if err != nil {
		logx.WithError(err).Debug("access token rechazado")
		return nil, false
	}

	identity, err := claims.Identity()
	if err != nil || identity.Cuil.IsEmpty() {
		logx.WithField("jti", claims.ID).Debug("access token sin identidad utilizable")
		return nil, false
	}
	return identity, true
}

// RefreshSession canjea un refresh token vigente por un par nuevo. La
// identidad se rearma desde el registro local; el token viejo queda reemplazado.
func (j *JWTService) RefreshSession(ctx context.Context, refreshToken string) (*ReconciledIdentity, TokenPair, error) {
	if refreshToken == "" {
		return nil, TokenPair{}, ErrInvalidRefreshToken()
	}

	cuil, err := j.store.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if cuil.IsEmpty() {
		return nil, TokenPair{}, ErrInvalidRefreshToken()
	}

	local, err := j.store.FindByCuil(ctx, cuil)
	if err != nil {
		return nil, TokenPair{}, err
	}

	identity := ReconciledIdentity{Cuil: cuil, Rol: kernel.DefaultRole}
	if local != nil {
		identity.Nombre = local.Nombre
		identity.Apellido = local.Apellido
		identity.Rol = local.RoleOrDefault()
	}

	pair, err := j.IssueTokens(ctx, identity)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return &identity, pair, nil
}
