// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, metrics registry) and
// composes bounded-context containers. This is the only place that knows about ALL modules.
package main

import (
	"context"

	"github.com/Abraxas-365/cidigate/pkg/asyncx"
	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/Abraxas-365/cidigate/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/metrics"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB       *sqlx.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, metrics
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis (solo si el caché de sesión lo usa)
	if c.Config.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		logx.Info("  ✅ Redis connected")
	} else {
		logx.Info("  ⏭️  Redis disabled")
	}

	// 3. Metrics
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.New(c.Registry)
	logx.Info("  ✅ Metrics registry ready")

	logx.Info("✅ Infrastructure initialized")
}

// ---------------------------------------------------------------------------
// Module composition: each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	deps := iamcontainer.Deps{
		DB:      c.DB,
		Cfg:     c.Config,
		Metrics: c.Metrics,
	}
	// evita guardar un *redis.Client nil dentro de la interfaz
	if c.Redis != nil {
		deps.Redis = c.Redis
	}

	iam, err := iamcontainer.New(deps)
	if err != nil {
		logx.Fatalf("Failed to initialize IAM module: %v", err)
	}
	c.IAM = iam
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")
	c.IAM.StartBackgroundServices(ctx)
}

// Ping verifica la base y, si está habilitado, Redis
func (c *Container) Ping(ctx context.Context) (dbErr, redisErr error) {
	checks := []func(context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "db", c.DB.PingContext(ctx) },
	}
	if c.Redis != nil {
		checks = append(checks, func(ctx context.Context) (string, error) {
			return "redis", c.Redis.Ping(ctx).Err()
		})
	}

	for _, r := range asyncx.AllSettled(ctx, checks...) {
		switch r.Value {
		case "db":
			dbErr = r.Err
		case "redis":
			redisErr = r.Err
		}
	}
	return dbErr, redisErr
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.IAM != nil {
		if err := c.IAM.Close(); err != nil {
			logx.Errorf("Error closing session cache: %v", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}

func repeatString(s string, count int) string {
	result := ""
	for range count {
		result += s
	}
	return result
}
