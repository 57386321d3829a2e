package sessionapi

import (
	"time"

	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/gofiber/fiber/v2"
)

// CookieConfig controla los atributos de las cookies de sesión
type CookieConfig struct {
	Secure bool
	Domain string
}

// expiredAt es la fecha con la que se borra una cookie
var expiredAt = time.Unix(0, 0).UTC()

// writeTokens escribe access_token y refresh_token como cookies HttpOnly
func (cc CookieConfig) writeTokens(c *fiber.Ctx, pair *auth.TokenPair) {
	if pair == nil {
		return
	}
	c.Cookie(cc.cookie(auth.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	if pair.RefreshToken != "" {
		c.Cookie(cc.cookie(auth.RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
	}
}

// clearTokens borra las dos cookies locales. La cookie CiDi no se toca.
func (cc CookieConfig) clearTokens(c *fiber.Ctx) {
	c.Cookie(cc.cookie(auth.AccessTokenCookie, "", expiredAt))
	c.Cookie(cc.cookie(auth.RefreshTokenCookie, "", expiredAt))
}

func (cc CookieConfig) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cc.Domain,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cc.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
