// Package sessionapi expone la sesión por HTTP con fiber: resolución,
// perfil completo, refresh, logout y las rutas de administración.
package sessionapi

import (
	"context"
	"strings"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/iam/user"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/session"
	"github.com/gofiber/fiber/v2"
)

// CookieHashHeader es el header explícito de iniciar-sesion
const CookieHashHeader = "cookieHash"

// UserLister es lo que necesita el listado de administración
type UserLister interface {
	ListAll(ctx context.Context) ([]user.LocalUser, error)
}

type Handlers struct {
	orchestrator *session.Orchestrator
	users        UserLister
	cookies      CookieConfig
}

func NewHandlers(orchestrator *session.Orchestrator, users UserLister, cookies CookieConfig) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		users:        users,
		cookies:      cookies,
	}
}

// RegisterRoutes registra /api/User y /api/Cidi
func (h *Handlers) RegisterRoutes(app fiber.Router, mw *auth.TokenMiddleware) {
	users := app.Group("/api/User", CidiCookieMiddleware())
	users.Get("/obtener-usuario", h.GetUser)
	users.Get("/obtener-usuario-completo", h.GetFullUser)
	users.Get("/cerrar-sesion", h.SignOut)
	users.Post("/refresh", h.Refresh)
	users.Get("/admin/listar-usuarios", mw.Authenticate(), mw.RequirePolicy(kernel.AdminPolicy), h.ListUsers)
	users.Get("/debug/claims", mw.Authenticate(), h.DebugClaims)

	cidiGroup := app.Group("/api/Cidi", CidiCookieMiddleware())
	cidiGroup.Get("/login", h.CidiLogin)
	cidiGroup.Get("/iniciar-sesion", h.StartSession)
	cidiGroup.Post("/iniciar-sesion", h.StartSession)
	cidiGroup.Get("/logout", h.CidiLogout)
	cidiGroup.Post("/logout", h.CidiLogout)
}

// ============================================================================
// Responses
// ============================================================================

type sessionResponse struct {
	Usuario *auth.ReconciledIdentity `json:"usuario"`
	Token   string                   `json:"token"`
}

type fullUserResponse struct {
	Usuario     *auth.ReconciledIdentity `json:"usuario"`
	Perfil      *cidi.Identity           `json:"perfil"`
	Rol         kernel.Role              `json:"rol"`
	FuenteDatos string                   `json:"fuenteDatos"`
	Token       string                   `json:"token"`
}

type logoutResponse struct {
	LogoutURL string `json:"logoutUrl"`
	Message   string `json:"message"`
}

// accessToken devuelve el token recién emitido o, si no hubo rotación, el
// que ya traía el request.
func accessToken(res *session.Result, current string) string {
	if res.Tokens != nil {
		return res.Tokens.AccessToken
	}
	return current
}

// ============================================================================
// Handlers
// ============================================================================

// GetUser GET /api/User/obtener-usuario
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	creds := credentialsFrom(c)

	res, err := h.establish(c, creds)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(sessionResponse{
		Usuario: res.Identity,
		Token:   accessToken(res, creds.AccessToken),
	})
}

// GetFullUser GET /api/User/obtener-usuario-completo
func (h *Handlers) GetFullUser(c *fiber.Ctx) error {
	creds := credentialsFrom(c)

	// solo falla si la sesión no se pudo autenticar; con sesión válida
	// siempre hay que escribir la rotación aunque el perfil sea básico
	full, err := h.orchestrator.FullIdentity(c.UserContext(), creds)
	if err != nil {
		return fail(c, h.rejected(c, err))
	}
	h.cookies.writeTokens(c, full.Session.Tokens)

	return c.JSON(fullUserResponse{
		Usuario:     full.Session.Identity,
		Perfil:      full.Perfil,
		Rol:         full.Rol,
		FuenteDatos: full.FuenteDatos,
		Token:       accessToken(full.Session, creds.AccessToken),
	})
}

// StartSession GET|POST /api/Cidi/iniciar-sesion. Siempre va contra CiDi
// con el hash recibido, aunque haya credenciales locales.
func (h *Handlers) StartSession(c *fiber.Ctx) error {
	hash := strings.TrimSpace(c.Get(CookieHashHeader))
	if hash == "" {
		hash = session.ExtractExternalCookieHash(fiberRequest{c})
	}
	if hash == "" {
		return fail(c, session.ErrMissingCookieHash())
	}

	res, err := h.establish(c, session.Credentials{CookieHash: hash, IP: c.IP()})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(sessionResponse{
		Usuario: res.Identity,
		Token:   accessToken(res, ""),
	})
}

// Refresh POST /api/User/refresh rota el par usando solo la cookie refresh_token
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(auth.RefreshTokenCookie)
	if token == "" {
		return fail(c, auth.ErrInvalidRefreshToken())
	}

	res, err := h.establish(c, session.Credentials{RefreshToken: token, IP: c.IP()})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(sessionResponse{
		Usuario: res.Identity,
		Token:   accessToken(res, ""),
	})
}

// SignOut GET /api/User/cerrar-sesion. El frontend redirige a logoutUrl.
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	result, err := h.orchestrator.Logout(c.UserContext(), credentialsFrom(c), c.BaseURL())
	h.cookies.clearTokens(c)
	if err != nil {
		return fail(c, err)
	}

	logx.WithContext(c.UserContext()).WithField("cuil", result.Cuil).Info("Sesión cerrada")
	return c.JSON(logoutResponse{
		LogoutURL: result.LogoutURL,
		Message:   "Sesión cerrada correctamente",
	})
}

// CidiLogin GET /api/Cidi/login redirige al login de CiDi. returnUrl es
// adonde vuelve CiDi; por defecto, este mismo servicio.
func (h *Handlers) CidiLogin(c *fiber.Ctx) error {
	returnURL := c.Query("returnUrl")
	if returnURL == "" {
		returnURL = c.BaseURL()
	}

	loginURL := h.orchestrator.LoginURL(returnURL)
	if loginURL == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect(loginURL, fiber.StatusFound)
}

// CidiLogout GET|POST /api/Cidi/logout borra las cookies y redirige a CiDi
func (h *Handlers) CidiLogout(c *fiber.Ctx) error {
	result, err := h.orchestrator.Logout(c.UserContext(), credentialsFrom(c), "")
	h.cookies.clearTokens(c)
	if err != nil {
		// el usuario igual quiere salir
		logx.WithContext(c.UserContext()).WithError(err).Warn("Logout local incompleto")
	}

	if result == nil || result.LogoutURL == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect(result.LogoutURL, fiber.StatusFound)
}

// ListUsers GET /api/User/admin/listar-usuarios (AdminPolicy)
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if users == nil {
		users = []user.LocalUser{}
	}
	return c.JSON(users)
}

// DebugClaims GET /api/User/debug/claims
func (h *Handlers) DebugClaims(c *fiber.Ctx) error {
	authContext, ok := auth.GetAuthContext(c)
	if !ok {
		return fail(c, auth.ErrUnauthorized())
	}
	return c.JSON(authContext)
}

// establish resuelve la sesión y sincroniza las cookies con el resultado.
// Sin identidad es siempre ErrNotAuthenticated y las cookies se borran.
func (h *Handlers) establish(c *fiber.Ctx, creds session.Credentials) (*session.Result, error) {
	res, err := h.orchestrator.ResolveSession(c.UserContext(), creds)
	if err == nil && !res.Authenticated() {
		err = session.ErrNotAuthenticated()
	}
	if err != nil {
		return nil, h.rejected(c, err)
	}

	h.cookies.writeTokens(c, res.Tokens)
	return res, nil
}

// rejected borra las cookies si la sesión no está autenticada y agrega
// login_url para que el frontend mande al usuario a CiDi.
func (h *Handlers) rejected(c *fiber.Ctx, err error) error {
	if !errx.HasCode(err, session.CodeNotAuthenticated) {
		return err
	}
	h.cookies.clearTokens(c)

	e := errx.FromError(err)
	if loginURL := h.orchestrator.LoginURL(c.BaseURL()); loginURL != "" {
		e = e.WithDetail("login_url", loginURL)
	}
	return e
}
