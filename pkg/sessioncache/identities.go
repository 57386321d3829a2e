package sessioncache

import (
	"context"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/metrics"
)

// Tipos de clave para métricas
const (
	KindIdentity = "identity"
	KindCookie   = "cookie"
)

// Identities agrega al Cache los accesos tipados por CUIL y por cookie
type Identities struct {
	Cache
	metrics *metrics.Metrics
}

func NewIdentities(cache Cache, m *metrics.Metrics) *Identities {
	return &Identities{Cache: cache, metrics: m}
}

func (s *Identities) GetIdentity(ctx context.Context, cuil kernel.Cuil) (*cidi.Identity, bool) {
	if cuil.IsEmpty() {
		return nil, false
	}
	return s.get(ctx, IdentityKey(cuil.String()), KindIdentity)
}

func (s *Identities) SetIdentity(ctx context.Context, cuil kernel.Cuil, identity *cidi.Identity) {
	if cuil.IsEmpty() {
		return
	}
	s.Set(ctx, IdentityKey(cuil.String()), identity, false)
}

func (s *Identities) RemoveIdentity(ctx context.Context, cuil kernel.Cuil) {
	s.Remove(ctx, IdentityKey(cuil.String()))
}

func (s *Identities) GetByCookie(ctx context.Context, hash string) (*cidi.Identity, bool) {
	if hash == "" {
		return nil, false
	}
	return s.get(ctx, CookieKey(hash), KindCookie)
}

func (s *Identities) SetByCookie(ctx context.Context, hash string, identity *cidi.Identity) {
	if hash == "" {
		return
	}
	s.Set(ctx, CookieKey(hash), identity, false)
}

func (s *Identities) RemoveByCookie(ctx context.Context, hash string) {
	s.Remove(ctx, CookieKey(hash))
}

func (s *Identities) get(ctx context.Context, key, kind string) (*cidi.Identity, bool) {
	var identity cidi.Identity
	ok := s.Get(ctx, key, &identity)
	s.metrics.CacheLookup(kind, ok)
	if !ok {
		return nil, false
	}
	return &identity, true
}
