package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/errx"
	"github.com/Abraxas-365/cidigate/pkg/session"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity_FirstSightFetchesOnceAndCachesBothKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, ana, got)
	assert.EqualValues(t, 1, f.provider.calls.Load())

	var byCookie, byCuil cidi.Identity
	require.True(t, f.memory.Get(ctx, "cookie:abc123", &byCookie))
	require.True(t, f.memory.Get(ctx, "identity:20123456789", &byCuil))
	assert.Equal(t, *ana, byCookie)
	assert.Equal(t, *ana, byCuil)
}

func TestResolveIdentity_CacheHitSkipsProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)

	got, err := f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, ana, got)
	assert.EqualValues(t, 1, f.provider.calls.Load())

	f.cache.RemoveByCookie(ctx, "abc123")
	_, err = f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.provider.calls.Load())
}

func TestResolveIdentity_CacheExpiryTriggersNewFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)

	f.clk.Advance(2 * time.Hour)
	_, err = f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.provider.calls.Load())
}

func TestResolveIdentity_CacheHitMirrorsUnderCuil(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cache.SetByCookie(ctx, "abc123", ana)

	_, err := f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)
	assert.Zero(t, f.provider.calls.Load())

	_, ok := f.cache.GetIdentity(ctx, "20123456789")
	assert.True(t, ok)
}

// resolveConcurrently lanza n llamadas y libera al proveedor cuando todas arrancaron
func resolveConcurrently(t *testing.T, f *fixture, n int, cookie string) ([]*cidi.Identity, []error) {
	t.Helper()
	f.provider.gate = make(chan struct{})

	identities := make([]*cidi.Identity, n)
	errs := make([]error, n)
	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Add(1)
			identities[i], errs[i] = f.resolver.ResolveIdentity(context.Background(), cookie)
		}(i)
	}

	require.Eventually(t, func() bool {
		return started.Load() == int32(n) && f.provider.calls.Load() == 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.provider.gate)
	wg.Wait()
	return identities, errs
}

func TestResolveIdentity_ConcurrentCallersShareOneFetch(t *testing.T) {
	f := newFixture(t)

	identities, errs := resolveConcurrently(t, f, 25, "abc123")

	assert.EqualValues(t, 1, f.provider.calls.Load())
	for i := range identities {
		require.NoError(t, errs[i])
		assert.Equal(t, ana, identities[i])
	}
	// cada llamador recibe su propia copia
	identities[0].Nombre = "mutated"
	assert.Equal(t, "Ana", identities[1].Nombre)
}

func TestResolveIdentity_FailureIsDeliveredToAllWaitersThenSlotIsFreed(t *testing.T) {
	f := newFixture(t)
	f.provider.err = cidi.ErrProviderStatus(503, "mantenimiento")

	_, errs := resolveConcurrently(t, f, 10, "abc123")

	assert.EqualValues(t, 1, f.provider.calls.Load())
	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errx.HasCode(err, cidi.CodeProviderStatus))
	}

	f.provider.err = nil
	got, err := f.resolver.ResolveIdentity(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, ana.CUIL, got.CUIL)
	assert.EqualValues(t, 2, f.provider.calls.Load())
}

func TestResolveIdentity_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.resolver.ResolveIdentity(ctx, "abc123")
		done <- err
	}()

	require.Eventually(t, func() bool { return f.provider.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(f.provider.gate)
	require.Eventually(t, func() bool {
		_, ok := f.cache.GetByCookie(context.Background(), "abc123")
		return ok
	}, time.Second, time.Millisecond)

	_, err := f.resolver.ResolveIdentity(context.Background(), "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.provider.calls.Load())
}

func TestResolveIdentity_Timeout(t *testing.T) {
	f := newFixture(t)
	f.provider.gate = make(chan struct{})
	defer close(f.provider.gate)

	resolver := session.NewResolver(f.provider, f.cache, session.WithFetchTimeout(20*time.Millisecond))

	_, err := resolver.ResolveIdentity(context.Background(), "slow")
	require.Error(t, err)
	assert.True(t, cidi.IsProviderError(err))
	assert.True(t, errx.HasCode(err, cidi.CodeProviderTimeout))
}

func TestResolveIdentity_UnusableIdentityIsNotCached(t *testing.T) {
	f := newFixture(t)
	f.provider.identity = &cidi.Identity{Nombre: "Sin CUIL"}
	ctx := context.Background()

	got, err := f.resolver.ResolveIdentity(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, got.IsUsable())
	assert.Zero(t, f.memory.Len())
}

func TestResolveIdentity_EmptyHash(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.ResolveIdentity(context.Background(), "")
	assert.True(t, errx.HasCode(err, session.CodeMissingCookieHash))
	assert.Zero(t, f.provider.calls.Load())
}

func TestResolveIdentity_DistinctHashesFetchIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.ResolveIdentity(ctx, "one")
	require.NoError(t, err)
	_, err = f.resolver.ResolveIdentity(ctx, "two")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.provider.calls.Load())

	var raw cidi.Identity
	assert.True(t, f.memory.Get(ctx, sessioncache.CookieKey("two"), &raw))
}
