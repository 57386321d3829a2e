package session

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/asyncx"
	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/logx"
	"github.com/Abraxas-365/cidigate/pkg/metrics"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
	"golang.org/x/sync/singleflight"
)

// Resolver resuelve hashes de cookie de CiDi con caché y con a lo sumo una
// consulta en vuelo por hash. Los que llegan mientras tanto esperan el mismo
// resultado, éxito o error.
type Resolver struct {
	provider IdentityProvider
	cache    *sessioncache.Identities
	group    singleflight.Group
	timeout  time.Duration
	metrics  *metrics.Metrics
}

type ResolverOption func(*Resolver)

// WithFetchTimeout acota la consulta compartida, que no depende del ctx de
// ningún llamador en particular.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(provider IdentityProvider, cache *sessioncache.Identities, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider: provider,
		cache:    cache,
		timeout:  cidi.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveIdentity devuelve la identidad para cookieHash. Cada llamador recibe
// su propia copia. Una identidad sin CUIL se devuelve pero no se cachea.
func (r *Resolver) ResolveIdentity(ctx context.Context, cookieHash string) (*cidi.Identity, error) {
	if cookieHash == "" {
		return nil, ErrMissingCookieHash()
	}

	if identity, ok := r.cache.GetByCookie(ctx, cookieHash); ok {
		r.mirror(ctx, identity)
		return identity, nil
	}

	ch := r.group.DoChan(sessioncache.CookieKey(cookieHash), func() (any, error) {
		// otro request pudo haberla cacheado mientras esperábamos el slot
		if identity, ok := r.cache.GetByCookie(ctx, cookieHash); ok {
			return identity, nil
		}
		return r.fetch(ctx, cookieHash)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.metrics.FetchShared()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cidi.Identity).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch corre desligada de la cancelación del llamador que la inició, así
// un cliente que corta no deja sin respuesta a los demás.
func (r *Resolver) fetch(ctx context.Context, cookieHash string) (*cidi.Identity, error) {
	detached := context.WithoutCancel(ctx)

	start := time.Now()
	identity, err := asyncx.WithTimeout(detached, r.timeout, func(ctx context.Context) (*cidi.Identity, error) {
		return r.provider.FetchIdentity(ctx, cookieHash)
	})
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !cidi.IsProviderError(err) {
		err = cidi.ErrProviderTimeout(err)
	}
	r.metrics.ObserveProvider(start, err)

	if err != nil {
		logx.WithContext(ctx).WithError(err).Warn("No se pudo obtener la identidad de CiDi")
		return nil, err
	}
	if identity == nil {
		return nil, cidi.ErrInvalidResponse(errors.New("empty identity"))
	}

	if identity.IsUsable() {
		r.cache.SetByCookie(detached, cookieHash, identity)
		r.cache.SetIdentity(detached, identity.Cuil(), identity)
	} else {
		logx.WithContext(ctx).Warn("CiDi devolvió una identidad sin CUIL")
	}
	return identity, nil
}

func (r *Resolver) mirror(ctx context.Context, identity *cidi.Identity) {
	if identity.IsUsable() {
		r.cache.SetIdentity(ctx, identity.Cuil(), identity)
	}
}
