// Package cacheredis es el backend de sessioncache sobre Redis, para cuando
// varias instancias comparten el caché.
package cacheredis

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const DefaultPrefix = "cidigate:cache:"

// Cache implementa sessioncache.Cache. El TTL de Redis sigue al vencimiento
// vigente; el absoluto viaja en el sobre y se vuelve a chequear al leer.
type Cache struct {
	rdb    redis.UniversalClient
	prefix string
	policy sessioncache.Policy
	now    func() time.Time
}

type Option func(*Cache)

func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

var _ sessioncache.Cache = (*Cache)(nil)

func New(rdb redis.UniversalClient, policy sessioncache.Policy, opts ...Option) *Cache {
	c := &Cache{
		rdb:    rdb,
		prefix: DefaultPrefix,
		policy: policy.Normalize(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope es lo que se guarda en Redis
type envelope struct {
	Value    json.RawMessage `json:"v"`
	Static   bool            `json:"s,omitempty"`
	Absolute time.Time       `json:"abs"`
}

// PhysicalKey es prefix + blake2b-256(key) en hex. El hash de la cookie de
// CiDi nunca aparece tal cual en el keyspace compartido.
func PhysicalKey(prefix, key string) string {
	sum := blake2b.Sum256([]byte(key))
	return prefix + hex.EncodeToString(sum[:])
}

func (c *Cache) key(k string) string { return PhysicalKey(c.prefix, k) }

func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if key == "" {
		return false
	}
	pk := c.key(key)

	data, err := c.rdb.Get(ctx, pk).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logx.WithError(sessioncache.ErrBackend(err)).Warn("session cache: get en redis falló")
		}
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logx.WithError(sessioncache.ErrDecodeFailed(err)).Warn("session cache: sobre ilegible")
		c.rdb.Del(ctx, pk)
		return false
	}

	now := c.now()
	if !now.Before(env.Absolute) {
		c.rdb.Del(ctx, pk)
		return false
	}

	if !env.Static {
		ttl := c.policy.Touch(now, env.Absolute, false).Sub(now)
		if err := c.rdb.Expire(ctx, pk, ttl).Err(); err != nil {
			logx.WithError(sessioncache.ErrBackend(err)).Debug("session cache: no se pudo extender el ttl")
		}
	}

	if err := json.Unmarshal(env.Value, dst); err != nil {
		logx.WithError(sessioncache.ErrDecodeFailed(err)).Warn("session cache: entrada ilegible")
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value any, static bool) {
	if sessioncache.SkipSet(key, value) {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logx.WithError(sessioncache.ErrEncodeFailed(err)).Warn("session cache: set ignorado")
		return
	}

	now := c.now()
	absolute, expires := c.policy.Deadlines(now, static)

	data, err := json.Marshal(envelope{Value: raw, Static: static, Absolute: absolute})
	if err != nil {
		logx.WithError(sessioncache.ErrEncodeFailed(err)).Warn("session cache: set ignorado")
		return
	}

	if err := c.rdb.Set(ctx, c.key(key), data, expires.Sub(now)).Err(); err != nil {
		logx.WithError(sessioncache.ErrBackend(err)).Warn("session cache: set en redis falló")
	}
}

func (c *Cache) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		logx.WithError(sessioncache.ErrBackend(err)).Warn("session cache: del en redis falló")
	}
}

// Ping lo usa el health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
