package config

import (
	"fmt"
	"time"
)

// Config es la configuración completa del proceso, leída del entorno
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cidi     CidiConfig
	JWT      JWTConfig
	Cache    CacheConfig
	Cleanup  CleanupConfig
}

type ServerConfig struct {
	Port        string
	AppName     string
	AppVersion  string
	CORSOrigins string
	Debug       bool
	// CookieSecure sólo se apaga en desarrollo local sin TLS
	CookieSecure bool
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN arma el connection string de lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig define el backend y las políticas de expiración del caché de sesión
type CacheConfig struct {
	Backend         string // memory | redis
	UserAbsoluteTTL time.Duration
	UserSlidingTTL  time.Duration
	StaticTTL       time.Duration
	JanitorInterval time.Duration
	RedisPrefix     string
}

// CleanupConfig controla el borrado periódico de refresh tokens vencidos
type CleanupConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load lee el entorno y valida. Un error acá es fatal para el arranque.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			AppName:      getEnv("APP_NAME", "cidigate"),
			AppVersion:   getEnv("APP_VERSION", "1.0.0"),
			CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
			Debug:        getEnvBool("DEBUG", false),
			CookieSecure: getEnvBool("COOKIE_SECURE", true),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "cidigate"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cidi: loadCidiConfig(),
		JWT:  loadJWTConfig(),
		Cache: CacheConfig{
			Backend:         getEnv("CACHE_BACKEND", "memory"),
			UserAbsoluteTTL: getEnvDuration("CACHE_USER_ABSOLUTE_TTL", 6*time.Hour),
			UserSlidingTTL:  getEnvDuration("CACHE_USER_SLIDING_TTL", time.Hour),
			StaticTTL:       getEnvDuration("CACHE_STATIC_TTL", 24*time.Hour),
			JanitorInterval: getEnvDuration("CACHE_JANITOR_INTERVAL", 10*time.Minute),
			RedisPrefix:     getEnv("CACHE_REDIS_PREFIX", "cidigate:cache:"),
		},
		Cleanup: CleanupConfig{
			Enabled:  getEnvBool("REFRESH_CLEANUP_ENABLED", true),
			Interval: getEnvDuration("REFRESH_CLEANUP_INTERVAL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifica los valores sin los cuales el proceso no puede atender
func (c *Config) Validate() error {
	if err := c.Cidi.validate(); err != nil {
		return err
	}
	if err := c.JWT.validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return ErrInvalidValue("CACHE_BACKEND", "redis backend requires REDIS_ENABLED=true")
		}
	default:
		return ErrInvalidValue("CACHE_BACKEND", "use 'memory' or 'redis'")
	}

	if c.Cache.UserSlidingTTL <= 0 || c.Cache.UserAbsoluteTTL < c.Cache.UserSlidingTTL {
		return ErrInvalidValue("CACHE_USER_SLIDING_TTL", "must be positive and not exceed the absolute ttl")
	}
	return nil
}
