package sessionapi

import (
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/session"
	"github.com/gofiber/fiber/v2"
)

// fiberRequest adapta *fiber.Ctx a session.RequestView
type fiberRequest struct {
	c *fiber.Ctx
}

func (r fiberRequest) Cookie(name string) string {
	return r.c.Cookies(name)
}

func (r fiberRequest) Header(name string) string {
	return r.c.Get(name)
}

func (r fiberRequest) Local(key string) string {
	v, _ := r.c.Locals(key).(string)
	return v
}

func (r fiberRequest) Query(name string) string {
	return r.c.Query(name)
}

// CidiCookieMiddleware deja el hash de CiDi en los Locals del request, venga
// de la cookie, de un header o del query string.
func CidiCookieMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash := session.ExtractExternalCookieHash(fiberRequest{c}); hash != "" {
			c.Locals(kernel.CidiHashKey.String(), hash)
		}
		return c.Next()
	}
}

// credentialsFrom junta todas las credenciales del request
func credentialsFrom(c *fiber.Ctx) session.Credentials {
	return session.Credentials{
		AccessToken:  auth.BearerOrCookie(c),
		RefreshToken: c.Cookies(auth.RefreshTokenCookie),
		CookieHash:   session.ExtractExternalCookieHash(fiberRequest{c}),
		IP:           c.IP(),
	}
}

// fail escribe cualquier error como errx JSON con el request id
func fail(c *fiber.Ctx, err error) error {
	e := errx.FromError(err)
	requestID, _ := c.Locals(kernel.RequestIDKey.String()).(string)
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse(requestID))
}
