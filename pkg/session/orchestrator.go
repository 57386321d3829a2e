package session

import (
	"context"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/metrics"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
)

// Orchestrator aplica la precedencia access token → refresh token → cookie
// de CiDi → nada. Solo el último paso sale a la red.
type Orchestrator struct {
	resolver *Resolver
	tokens   auth.TokenService
	users    UserStore
	cache    *sessioncache.Identities
	logout   LogoutURLProvider
	login    LoginURLProvider
	audit    auth.AuditService
	metrics  *metrics.Metrics
}

// Deps son las dependencias del Orchestrator. Logout, Login, Audit y Metrics
// son opcionales.
type Deps struct {
	Resolver *Resolver
	Tokens   auth.TokenService
	Users    UserStore
	Cache    *sessioncache.Identities
	Logout   LogoutURLProvider
	Login    LoginURLProvider
	Audit    auth.AuditService
	Metrics  *metrics.Metrics
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		resolver: deps.Resolver,
		tokens:   deps.Tokens,
		users:    deps.Users,
		cache:    deps.Cache,
		logout:   deps.Logout,
		login:    deps.Login,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
	}
}

// ResolveSession devuelve la identidad del request. Un resultado sin
// identidad y sin error significa que no había credenciales utilizables.
func (o *Orchestrator) ResolveSession(ctx context.Context, creds Credentials) (*Result, error) {
	// 1. access token local
	if creds.AccessToken != "" {
		if identity, ok := o.tokens.ExtractIdentity(creds.AccessToken); ok {
			o.metrics.SessionResolved(SourceAccessToken, "success")
			return &Result{Identity: identity, Source: SourceAccessToken}, nil
		}
	}

	// 2. refresh token local
	if creds.RefreshToken != "" {
		identity, pair, err := o.tokens.RefreshSession(ctx, creds.RefreshToken)
		switch {
		case err == nil:
			o.metrics.SessionResolved(SourceRefreshToken, "success")
			o.auditRefresh(ctx, identity.Cuil, creds.IP)
			return &Result{Identity: identity, Tokens: &pair, Source: SourceRefreshToken}, nil
		case errx.HasCode(err, auth.CodeInvalidRefreshToken):
			logx.WithContext(ctx).Debug("refresh token inválido o vencido")
		default:
			o.metrics.SessionResolved(SourceRefreshToken, "error")
			logx.WithContext(ctx).WithError(err).Error("No se pudo renovar la sesión")
			return nil, ErrSessionPersistence(err)
		}
	}

	// 3. cookie de CiDi
	if creds.CookieHash != "" {
		return o.resolveWithCidi(ctx, creds)
	}

	// 4. nada
	o.metrics.SessionResolved(SourceNone, "anonymous")
	return &Result{ClearCookies: true, Source: SourceNone}, nil
}

func (o *Orchestrator) resolveWithCidi(ctx context.Context, creds Credentials) (*Result, error) {
	external, err := o.resolver.ResolveIdentity(ctx, creds.CookieHash)
	if err != nil {
		o.metrics.SessionResolved(SourceCidi, "provider_error")
		o.auditFailure(ctx, "cidi_unavailable", creds.IP)
		return nil, ErrNotAuthenticated().WithCause(err)
	}
	if !external.IsUsable() {
		o.metrics.SessionResolved(SourceCidi, "unusable_identity")
		o.auditFailure(ctx, "cidi_identity_without_cuil", creds.IP)
		return nil, ErrNotAuthenticated().WithDetail("reason", "identity without CUIL")
	}

	identity, err := o.reconcile(ctx, external)
	if err != nil {
		o.metrics.SessionResolved(SourceCidi, "error")
		return nil, ErrSessionPersistence(err)
	}

	pair, err := o.tokens.IssueTokens(ctx, *identity)
	if err != nil {
		o.metrics.SessionResolved(SourceCidi, "error")
		logx.WithContext(ctx).WithError(err).WithField("cuil", identity.Cuil).Error("No se pudieron emitir las credenciales")
		return nil, ErrSessionPersistence(err)
	}

	o.metrics.SessionResolved(SourceCidi, "success")
	if o.audit != nil {
		o.audit.LogSessionResolved(ctx, identity.Cuil, SourceCidi, creds.IP)
	}
	return &Result{Identity: identity, Tokens: &pair, Source: SourceCidi}, nil
}

// reconcile combina la identidad de CiDi con el rol local (USUARIO si no hay registro)
func (o *Orchestrator) reconcile(ctx context.Context, external *cidi.Identity) (*auth.ReconciledIdentity, error) {
	cuil := external.Cuil()

	local, err := o.users.FindByCuil(ctx, cuil)
	if err != nil {
		return nil, err
	}

	return &auth.ReconciledIdentity{
		Cuil:     cuil,
		Nombre:   external.Nombre,
		Apellido: external.Apellido,
		Rol:      local.RoleOrDefault(),
	}, nil
}

// FullIdentity devuelve el perfil de CiDi de la sesión actual: del caché por
// CUIL o, si no está, con la cookie de CiDi. Una vez autenticada la sesión
// nunca falla; si no hay perfil devuelve los datos básicos (FuenteBasica) y
// Session.Tokens conserva una posible rotación que hay que escribir.
func (o *Orchestrator) FullIdentity(ctx context.Context, creds Credentials) (*FullIdentity, error) {
	res, err := o.ResolveSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	if !res.Authenticated() {
		return nil, ErrNotAuthenticated()
	}

	full := &FullIdentity{Session: res, Rol: kernel.NormalizeRole(res.Identity.Rol.String())}

	if profile, ok := o.cache.GetIdentity(ctx, res.Identity.Cuil); ok {
		full.Perfil = profile
		full.FuenteDatos = FuenteCache
		return full, nil
	}

	if profile := o.profileFromCookie(ctx, res.Identity.Cuil, creds.CookieHash); profile != nil {
		full.Perfil = profile
		full.FuenteDatos = FuenteCidi
		return full, nil
	}

	full.Perfil = basicProfile(res.Identity)
	full.FuenteDatos = FuenteBasica
	return full, nil
}

// profileFromCookie consulta CiDi con la cookie; nil si no hay cookie, si
// CiDi falla o si la cookie es de otra persona.
func (o *Orchestrator) profileFromCookie(ctx context.Context, cuil kernel.Cuil, cookieHash string) *cidi.Identity {
	if cookieHash == "" {
		return nil
	}

	log := logx.WithContext(ctx).WithField("cuil", cuil)

	profile, err := o.resolver.ResolveIdentity(ctx, cookieHash)
	if err != nil {
		log.WithError(err).Warn("Perfil de CiDi no disponible, se devuelven datos básicos")
		return nil
	}
	if profile.Cuil() != cuil {
		log.Warn("La cookie de CiDi no corresponde a la sesión")
		return nil
	}
	return profile
}

func basicProfile(identity *auth.ReconciledIdentity) *cidi.Identity {
	return &cidi.Identity{
		CUIL:     identity.Cuil.String(),
		Nombre:   identity.Nombre,
		Apellido: identity.Apellido,
	}
}

// LoginURL devuelve la URL de inicio de sesión de CiDi, o "" si no hay
// proveedor configurado.
func (o *Orchestrator) LoginURL(returnURL string) string {
	if o.login == nil {
		return ""
	}
	return o.login.LoginURL(returnURL)
}

// Logout borra lo que se sabe de la sesión: caché por CUIL y por cookie y el
// refresh token. Devuelve la URL de cierre de sesión de CiDi.
func (o *Orchestrator) Logout(ctx context.Context, creds Credentials, returnURL string) (*LogoutResult, error) {
	cuil := o.cuilForLogout(ctx, creds)

	if !cuil.IsEmpty() {
		o.cache.RemoveIdentity(ctx, cuil)
	}
	if creds.CookieHash != "" {
		o.cache.RemoveByCookie(ctx, creds.CookieHash)
	}

	result := &LogoutResult{Cuil: cuil}
	if o.logout != nil {
		result.LogoutURL = o.logout.LogoutURL(returnURL)
	}

	if creds.RefreshToken != "" {
		if err := o.users.DeleteRefreshToken(ctx, creds.RefreshToken); err != nil {
			logx.WithContext(ctx).WithError(err).Error("No se pudo borrar el refresh token")
			return result, ErrSessionPersistence(err)
		}
	}

	if o.audit != nil {
		o.audit.LogLogout(ctx, cuil, creds.IP)
	}
	return result, nil
}

// cuilForLogout solo usa lo que sale barato: access token, caché o refresh token
func (o *Orchestrator) cuilForLogout(ctx context.Context, creds Credentials) kernel.Cuil {
	if creds.AccessToken != "" {
		if identity, ok := o.tokens.ExtractIdentity(creds.AccessToken); ok {
			return identity.Cuil
		}
	}
	if creds.CookieHash != "" {
		if identity, ok := o.cache.GetByCookie(ctx, creds.CookieHash); ok {
			return identity.Cuil()
		}
	}
	if creds.RefreshToken != "" {
		if cuil, err := o.users.ValidateRefreshToken(ctx, creds.RefreshToken); err == nil {
			return cuil
		}
	}
	return ""
}

func (o *Orchestrator) auditRefresh(ctx context.Context, cuil kernel.Cuil, ip string) {
	if o.audit != nil {
		o.audit.LogTokenRefresh(ctx, cuil, ip)
	}
}

func (o *Orchestrator) auditFailure(ctx context.Context, reason, ip string) {
	if o.audit != nil {
		o.audit.LogAuthFailure(ctx, reason, ip)
	}
}
