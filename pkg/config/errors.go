package config

import (
	"net/http"

	"github.com/Abraxas-365/cidigate/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("CONFIG")

var (
	CodeMissingValue = ErrRegistry.Register("MISSING_VALUE", errx.TypeConfiguration, http.StatusInternalServerError, "Required configuration value is missing")
	CodeInvalidValue = ErrRegistry.Register("INVALID_VALUE", errx.TypeConfiguration, http.StatusInternalServerError, "Configuration value is invalid")
)

func ErrMissingValue(key string) *errx.Error {
	return ErrRegistry.New(CodeMissingValue).WithDetail("key", key)
}

func ErrInvalidValue(key, reason string) *errx.Error {
	return ErrRegistry.New(CodeInvalidValue).WithDetail("key", key).WithDetail("reason", reason)
}
