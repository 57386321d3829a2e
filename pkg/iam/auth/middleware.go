package auth

import (
	"strings"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// TokenMiddleware middleware para autenticación JWT con Fiber
type TokenMiddleware struct {
	validator AccessTokenValidator
}

// NewAuthMiddleware crea un nuevo middleware de autenticación
func NewAuthMiddleware(validator AccessTokenValidator) *TokenMiddleware {
	return &TokenMiddleware{
		validator: validator,
	}
}

// Authenticate middleware que valida tokens JWT
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerOrCookie(c)
		if token == "" {
			return respond(c, ErrUnauthorized())
		}

		claims, err := am.validator.ValidateAccessToken(token)
		if err != nil {
			return respond(c, ErrUnauthorized())
		}

		identity, err := claims.Identity()
		if err != nil || identity.Cuil.IsEmpty() {
			return respond(c, ErrUnauthorized())
		}

		c.Locals(kernel.AuthContextKey.String(), identity.AuthContext(claims.ID))
		return c.Next()
	}
}

// RequireRole deja pasar solo a los roles indicados
func (am *TokenMiddleware) RequireRole(roles ...kernel.Role) fiber.Handler {
	return am.RequirePolicy(kernel.Policy{Name: "roles", Roles: roles})
}

// RequirePolicy middleware que valida el rol contra una política
func (am *TokenMiddleware) RequirePolicy(policy kernel.Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := GetAuthContext(c)
		if !ok {
			return respond(c, ErrUnauthorized())
		}

		if !authContext.Satisfies(policy) {
			return respond(c, ErrAccessDenied().WithDetail("policy", policy.Name))
		}

		return c.Next()
	}
}

// BearerOrCookie toma el token del header Authorization o, si no hay uno
// bien formado, de la cookie access_token.
func BearerOrCookie(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1]
		}
	}
	return c.Cookies(AccessTokenCookie)
}

// GetAuthContext devuelve el contexto que dejó Authenticate
func GetAuthContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authContext, ok := c.Locals(kernel.AuthContextKey.String()).(*kernel.AuthContext)
	if !ok || !authContext.IsValid() {
		return nil, false
	}
	return authContext, true
}

func respond(c *fiber.Ctx, e *errx.Error) error {
	requestID, _ := c.Locals(kernel.RequestIDKey.String()).(string)
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse(requestID))
}
