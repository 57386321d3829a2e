package main

import (
	"errors"
	"testing"

	"github.com/Abraxas-365/cidigate/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

var errRefused = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func TestHealthReport_HidesRawErrorsOutsideDebug(t *testing.T) {
	server := config.ServerConfig{AppName: "cidigate", AppVersion: "1.0.0"}

	status, health := healthReport(server, true, errRefused, errRefused)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "unhealthy", health["db"])
	assert.Equal(t, "unhealthy", health["redis"])
	assert.NotContains(t, health, "db_error")
	assert.NotContains(t, health, "redis_error")
}

func TestHealthReport_DebugIncludesRawErrors(t *testing.T) {
	server := config.ServerConfig{AppName: "cidigate", Debug: true}

	status, health := healthReport(server, true, errRefused, errRefused)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, errRefused.Error(), health["db_error"])
	assert.Equal(t, errRefused.Error(), health["redis_error"])
}

func TestHealthReport_Healthy(t *testing.T) {
	status, health := healthReport(config.ServerConfig{AppName: "cidigate"}, false, nil, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "healthy", health["db"])
	assert.Equal(t, "disabled", health["redis"])
}
