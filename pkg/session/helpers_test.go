package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/cidi"
	"github.com/Abraxas-365/cidigate/pkg/iam/auth"
	"github.com/Abraxas-365/cidigate/pkg/iam/user"
	"github.com/Abraxas-365/cidigate/pkg/kernel"
	"github.com/Abraxas-365/cidigate/pkg/session"
	"github.com/Abraxas-365/cidigate/pkg/sessioncache"
)

// fakeProvider cuenta llamadas y, si gate no es nil, espera a que se cierre
type fakeProvider struct {
	calls    atomic.Int32
	gate     chan struct{}
	identity *cidi.Identity
	err      error
}

func (p *fakeProvider) FetchIdentity(ctx context.Context, _ string) (*cidi.Identity, error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.identity.Clone(), nil
}

func (p *fakeProvider) LogoutURL(returnURL string) string {
	return "https://cidi.test/Cuenta/CerrarSesion?returnUrl=" + returnURL
}

func (p *fakeProvider) LoginURL(returnURL string) string {
	return "https://cidi.test/Cuenta/Login?returnUrl=" + returnURL
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memUsers imita al repositorio Postgres: alta automática y un refresh token por CUIL
type memUsers struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[kernel.Cuil]*user.LocalUser
	tokens   map[kernel.Cuil]string
	expires  map[string]time.Time
	saveErr  error
	findErr  error
	provided atomic.Int32
}

func newMemUsers(now func() time.Time) *memUsers {
	return &memUsers{
		now:     now,
		users:   map[kernel.Cuil]*user.LocalUser{},
		tokens:  map[kernel.Cuil]string{},
		expires: map[string]time.Time{},
	}
}

func (s *memUsers) addUser(cuil kernel.Cuil, rol kernel.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[cuil] = &user.LocalUser{Cuil: cuil, Rol: rol, Activo: true}
}

func (s *memUsers) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memUsers) FindByCuil(_ context.Context, cuil kernel.Cuil) (*user.LocalUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[cuil]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) SaveRefreshToken(_ context.Context, cuil kernel.Cuil, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.users[cuil]; !ok {
		s.users[cuil] = &user.LocalUser{Cuil: cuil, Rol: kernel.DefaultRole, Activo: true}
		s.provided.Add(1)
	}
	if old, ok := s.tokens[cuil]; ok {
		delete(s.expires, old)
	}
	s.tokens[cuil] = token
	s.expires[token] = s.now().Add(user.RefreshTokenTTL)
	return nil
}

func (s *memUsers) ValidateRefreshToken(_ context.Context, token string) (kernel.Cuil, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[token]
	if !ok || !exp.After(s.now()) {
		return "", nil
	}
	for cuil, t := range s.tokens {
		if t == token {
			return cuil, nil
		}
	}
	return "", nil
}

func (s *memUsers) DeleteRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, token)
	for cuil, t := range s.tokens {
		if t == token {
			delete(s.tokens, cuil)
		}
	}
	return nil
}

var errDown = errors.New("db down")

var ana = &cidi.Identity{CUIL: "20123456789", Nombre: "Ana", Apellido: "Gomez", Email: "ana@example.com"}

type fixture struct {
	clk      *clock
	provider *fakeProvider
	users    *memUsers
	memory   *sessioncache.Memory
	cache    *sessioncache.Identities
	tokens   *auth.JWTService
	resolver *session.Resolver
	orch     *session.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clk:      &clock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		provider: &fakeProvider{identity: ana},
	}
	f.users = newMemUsers(f.clk.Now)
	f.memory = sessioncache.NewMemory(sessioncache.DefaultPolicy(), sessioncache.WithClock(f.clk.Now))
	t.Cleanup(func() { f.memory.Close() })
	f.cache = sessioncache.NewIdentities(f.memory, nil)
	f.tokens = auth.NewJWTService([]byte("0123456789abcdef0123456789abcdef"), 15*time.Minute, 0, "cidigate", "cidigate-web", f.users, auth.WithClock(f.clk.Now))
	f.resolver = session.NewResolver(f.provider, f.cache, session.WithFetchTimeout(time.Second))
	f.orch = session.NewOrchestrator(session.Deps{
		Resolver: f.resolver,
		Tokens:   f.tokens,
		Users:    f.users,
		Cache:    f.cache,
		Logout:   f.provider,
	})
	return f
}
