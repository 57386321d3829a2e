package iamcontainer

import (
	"context"
	"io"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/cidigate/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/metrics"
	"github.com/Abraxas-365/cidigate/pkg/session"
	"github.com/Abraxas-365/cidigate/pkg/session/sessionapi"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache/cacheredis"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// Redis is nil when REDIS_ENABLED=false; Metrics may be nil.
// ---------------------------------------------------------------------------

type Deps struct {
	DB      *sqlx.DB
	Redis   redis.UniversalClient
	Cfg     *config.Config
	Metrics *metrics.Metrics
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what cmd/ actually needs.
// ---------------------------------------------------------------------------

type Container struct {
	// Services
	UserRepository *userinfra.PostgresUserRepository
	TokenService   *auth.JWTService
	CidiClient     *cidi.Client
	Orchestrator   *session.Orchestrator

	// Handlers: needed by cmd/ to register routes
	SessionHandlers *sessionapi.Handlers

	// Middleware: needed by cmd/ to protect route groups
	AuthMiddleware *auth.TokenMiddleware

	// Background services
	CleanupService *authinfra.CleanupService

	cacheCloser io.Closer
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) (*Container, error) {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	c.UserRepository = userinfra.NewPostgresUserRepository(
		deps.DB,
		userinfra.WithRefreshTTL(deps.Cfg.JWT.RefreshTokenTTL),
	)

	// ── Session cache ────────────────────────────────────────────────────

	policy := sessioncache.Policy{
		UserAbsolute: deps.Cfg.Cache.UserAbsoluteTTL,
		UserSliding:  deps.Cfg.Cache.UserSlidingTTL,
		Static:       deps.Cfg.Cache.StaticTTL,
	}

	var backend sessioncache.Cache
	if deps.Cfg.Cache.Backend == "redis" && deps.Redis != nil {
		backend = cacheredis.New(deps.Redis, policy, cacheredis.WithPrefix(deps.Cfg.Cache.RedisPrefix))
		logx.Info("  ✅ Using Redis session cache")
	} else {
		memory := sessioncache.NewMemory(policy, sessioncache.WithJanitor(deps.Cfg.Cache.JanitorInterval))
		backend = memory
		c.cacheCloser = memory
		logx.Warn("  ⚠️  Using in-memory session cache (single instance only)")
	}
	identities := sessioncache.NewIdentities(backend, deps.Metrics)

	// ── Infrastructure services ──────────────────────────────────────────

	tokens, err := auth.NewJWTServiceFromConfig(deps.Cfg.JWT, c.UserRepository)
	if err != nil {
		return nil, errx.Wrap(err, "IAM: invalid JWT signing key", errx.TypeConfiguration)
	}
	c.TokenService = tokens

	c.CidiClient = cidi.NewClient(deps.Cfg.Cidi)
	if deps.Cfg.Cidi.MaxRPS > 0 {
		logx.Infof("  ✅ CiDi rate limit: %.1f rps (burst %d)", deps.Cfg.Cidi.MaxRPS, deps.Cfg.Cidi.Burst)
	}

	// ── Audit service ────────────────────────────────────────────────────

	auditService := authinfra.NewLogxAuditService()

	// ── Session services ─────────────────────────────────────────────────

	resolver := session.NewResolver(
		c.CidiClient,
		identities,
		session.WithFetchTimeout(deps.Cfg.Cidi.Timeout),
		session.WithMetrics(deps.Metrics),
	)

	c.Orchestrator = session.NewOrchestrator(session.Deps{
		Resolver: resolver,
		Tokens:   c.TokenService,
		Users:    c.UserRepository,
		Cache:    identities,
		Logout:   c.CidiClient,
		Login:    c.CidiClient,
		Audit:    auditService,
		Metrics:  deps.Metrics,
	})

	// ── API handlers ─────────────────────────────────────────────────────

	c.SessionHandlers = sessionapi.NewHandlers(
		c.Orchestrator,
		c.UserRepository,
		sessionapi.CookieConfig{Secure: deps.Cfg.Server.CookieSecure},
	)

	// ── Middleware ────────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewAuthMiddleware(c.TokenService)

	// ── Background services ──────────────────────────────────────────────

	if deps.Cfg.Cleanup.Enabled {
		c.CleanupService = authinfra.NewCleanupService(c.UserRepository, deps.Cfg.Cleanup.Interval)
	}

	logx.Info("✅ IAM container initialized")
	return c, nil
}

// StartBackgroundServices starts IAM-specific background workers.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	if c.CleanupService == nil {
		logx.Info("  ⏭️  Refresh token cleanup disabled")
		return
	}
	go c.CleanupService.Start(ctx)
	logx.Info("  ✅ IAM cleanup service started")
}

// Close libera el caché en memoria si se usó
func (c *Container) Close() error {
	if c.cacheCloser != nil {
		return c.cacheCloser.Close()
	}
	return nil
}
