package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

func main() {
	// 1. Initialize Logger
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	logx.Infof("🚀 Starting %s %s...", cfg.Server.AppName, cfg.Server.AppVersion)

	// 3. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	// 4. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               cfg.Server.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(cfg.Server.Debug),
		IdleTimeout:           120 * time.Second,
	})

	// 5. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  generateRequestID,
		ContextKey: kernel.RequestIDKey.String(),
	}))
	app.Use(requestContext)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, CiDi, X-CiDi-Token, cookieHash",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: cfg.Server.CORSOrigins != "*",
		ExposeHeaders:    "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Use(container.Metrics.Middleware())

	// 6. Health Check & Metrics Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(container.Registry, promhttp.HandlerOpts{})))

	// 7. Register Routes

	// ========================================================================
	// Session Routes
	// ========================================================================
	// /api/User/*, /api/Cidi/*
	container.IAM.SessionHandlers.RegisterRoutes(app, container.IAM.AuthMiddleware)
	logx.Info("✓ Session routes registered")

	// 8. 404 Handler
	app.Use(notFoundHandler)

	// 9. Print Route Summary
	printRouteSummary()

	// 10. Start Server with Graceful Shutdown
	startServer(app, cfg.Server.Port, cancel)
}

// ============================================================================
// Middleware & Handler Functions
// ============================================================================

// requestContext pasa el request id al context.Context del request para que
// logx.WithContext lo agregue a cada línea.
func requestContext(c *fiber.Ctx) error {
	if id, ok := c.Locals(kernel.RequestIDKey.String()).(string); ok && id != "" {
		c.SetUserContext(logx.ContextWithRequestID(c.UserContext(), id))
	}
	return c.Next()
}

// healthCheckHandler returns a health check handler
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		dbErr, redisErr := container.Ping(ctx)

		status, health := healthReport(container.Config.Server, container.Redis != nil, dbErr, redisErr)
		return c.Status(status).JSON(health)
	}
}

// healthReport arma el cuerpo de /health. Los errores crudos de la base y de
// Redis solo se exponen con DEBUG.
func healthReport(server config.ServerConfig, redisEnabled bool, dbErr, redisErr error) (int, fiber.Map) {
	health := fiber.Map{
		"status":  "healthy",
		"service": server.AppName,
		"version": server.AppVersion,
	}

	if dbErr != nil {
		health["db"] = "unhealthy"
		health["status"] = "degraded"
		if server.Debug {
			health["db_error"] = dbErr.Error()
		}
	} else {
		health["db"] = "healthy"
	}

	switch {
	case !redisEnabled:
		health["redis"] = "disabled"
	case redisErr != nil:
		health["redis"] = "unhealthy"
		health["status"] = "degraded"
		if server.Debug {
			health["redis_error"] = redisErr.Error()
		}
	default:
		health["redis"] = "healthy"
	}

	if health["status"] == "degraded" {
		return fiber.StatusServiceUnavailable, health
	}
	return fiber.StatusOK, health
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist",
		"request_id": requestID(c),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses
func globalErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logx.WithContext(c.UserContext()).WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		}).Errorf("Request error: %v", err)

		// If it's a Fiber error
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":      fe.Message,
				"code":       "FIBER_ERROR",
				"status":     fe.Code,
				"request_id": requestID(c),
			})
		}

		e := errx.FromError(err)
		if debug && e.Err != nil {
			e = e.WithDetail("underlying_error", e.Err.Error())
		}
		return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse(requestID(c)))
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

// generateRequestID genera ids ordenables por tiempo
func generateRequestID() string {
	return ulid.Make().String()
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(kernel.RequestIDKey.String()).(string)
	return id
}

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Session: /api/User/obtener-usuario, /api/User/obtener-usuario-completo, /api/User/refresh")
	logx.Info("   ├─ Logout: /api/User/cerrar-sesion, /api/Cidi/logout")
	logx.Info("   ├─ CiDi: /api/Cidi/login, /api/Cidi/iniciar-sesion")
	logx.Info("   ├─ Admin: /api/User/admin/listar-usuarios, /api/User/debug/claims")
	logx.Info("   ├─ Health: /health")
	logx.Info("   └─ Metrics: /metrics")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, port string, stopBackground context.CancelFunc) {
	// Run server in a goroutine
	go func() {
		logx.Info("=" + repeatString("=", 60))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Infof("📈 Metrics: http://localhost:%s/metrics", port)
		logx.Info("=" + repeatString("=", 60))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	gracefulShutdown(app, stopBackground)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	stopBackground()

	// Shutdown the server with timeout
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
