package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedApp(t *testing.T, svc *auth.JWTService) *fiber.App {
	t.Helper()
	mw := auth.NewAuthMiddleware(svc)

	app := fiber.New()
	app.Get("/me", mw.Authenticate(), func(c *fiber.Ctx) error {
		ac, _ := auth.GetAuthContext(c)
		return c.JSON(ac)
	})
	app.Get("/admin", mw.Authenticate(), mw.RequirePolicy(kernel.AdminPolicy), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/empresa", mw.Authenticate(), mw.RequireRole(kernel.RoleEmpresa), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	svc, _, _ := newService(t)
	app := newProtectedApp(t, svc)

	pair, err := svc.IssueTokens(context.Background(), ana)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ac kernel.AuthContext
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &ac))
	assert.Equal(t, ana.Cuil, ac.Cuil)
	assert.Equal(t, kernel.RoleUsuario, ac.Rol)
	assert.Equal(t, pair.TokenID, ac.TokenID)
}

func TestAuthenticate_AccessTokenCookie(t *testing.T) {
	svc, _, _ := newService(t)
	app := newProtectedApp(t, svc)

	pair, err := svc.IssueTokens(context.Background(), ana)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: pair.AccessToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticate_MissingOrInvalid(t *testing.T) {
	svc, _, _ := newService(t)
	app := newProtectedApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body errx.HTTPErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "AUTH_UNAUTHORIZED", body.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer basura")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequirePolicy(t *testing.T) {
	svc, _, _ := newService(t)
	app := newProtectedApp(t, svc)
	ctx := context.Background()

	usuario, err := svc.IssueTokens(ctx, ana)
	require.NoError(t, err)
	admin, err := svc.IssueTokens(ctx, auth.ReconciledIdentity{Cuil: "20999999990", Rol: "admin"})
	require.NoError(t, err)

	cases := []struct {
		path   string
		token  string
		status int
	}{
		{"/admin", usuario.AccessToken, http.StatusForbidden},
		{"/admin", admin.AccessToken, http.StatusOK},
		{"/empresa", admin.AccessToken, http.StatusForbidden},
		{"/empresa", usuario.AccessToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
	}
}
