package sessioncache_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/metrics"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentities_ByCuilAndCookie(t *testing.T) {
	mem, _ := newMemory(t)
	reg := prometheus.NewRegistry()
	ids := sessioncache.NewIdentities(mem, metrics.New(reg))
	ctx := context.Background()

	ana := &cidi.Identity{CUIL: "20123456789", Nombre: "Ana", Apellido: "Gomez"}
	ids.SetByCookie(ctx, "abc123", ana)
	ids.SetIdentity(ctx, ana.Cuil(), ana)

	byCookie, ok := ids.GetByCookie(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, ana, byCookie)

	byCuil, ok := ids.GetIdentity(ctx, "20123456789")
	require.True(t, ok)
	assert.Equal(t, ana, byCuil)

	var raw cidi.Identity
	assert.True(t, mem.Get(ctx, "cookie:abc123", &raw), "stored under the documented key")
	assert.True(t, mem.Get(ctx, "identity:20123456789", &raw))

	ids.RemoveByCookie(ctx, "abc123")
	ids.RemoveIdentity(ctx, "20123456789")
	_, ok = ids.GetByCookie(ctx, "abc123")
	assert.False(t, ok)
	_, ok = ids.GetIdentity(ctx, "20123456789")
	assert.False(t, ok)

	count, err := testutil.GatherAndCount(reg, "cidigate_session_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "hit and miss series for both kinds")
}

func TestIdentities_EmptyKeysAreIgnored(t *testing.T) {
	mem, _ := newMemory(t)
	ids := sessioncache.NewIdentities(mem, nil)
	ctx := context.Background()

	ids.SetByCookie(ctx, "", &cidi.Identity{CUIL: "1"})
	ids.SetIdentity(ctx, "", &cidi.Identity{CUIL: "1"})
	assert.Zero(t, mem.Len())

	_, ok := ids.GetByCookie(ctx, "")
	assert.False(t, ok)
}
