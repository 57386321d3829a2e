package sessioncache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Abraxas-365/cidigate/pkg/logx"
)

// Memory es el backend en proceso. Los valores se guardan serializados, así
// que quien lee nunca comparte memoria con quien escribió.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	policy  Policy
	now     func() time.Time

	janitorInterval time.Duration
	stop            chan struct{}
	done            chan struct{}
	closeOnce       sync.Once
}

type memoryEntry struct {
	data     []byte
	static   bool
	absolute time.Time
	expires  time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithJanitor barre entradas vencidas cada interval; 0 lo desactiva
func WithJanitor(interval time.Duration) MemoryOption {
	return func(m *Memory) { m.janitorInterval = interval }
}

var _ Cache = (*Memory)(nil)

func NewMemory(policy Policy, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		policy:  policy.Normalize(),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.janitorInterval > 0 {
		go m.janitor()
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string, dst any) bool {
	if key == "" {
		return false
	}

	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		return false
	}
	now := m.now()
	if !now.Before(e.expires) {
		delete(m.entries, key)
		m.mu.Unlock()
		return false
	}
	e.expires = m.policy.Touch(now, e.absolute, e.static)
	data := e.data
	m.mu.Unlock()

	if err := json.Unmarshal(data, dst); err != nil {
		logx.WithError(ErrDecodeFailed(err)).WithField("key_prefix", keyPrefix(key)).Warn("session cache: entrada ilegible")
		return false
	}
	return true
}

func (m *Memory) Set(_ context.Context, key string, value any, static bool) {
	if SkipSet(key, value) {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		logx.WithError(ErrEncodeFailed(err)).WithField("key_prefix", keyPrefix(key)).Warn("session cache: set ignorado")
		return
	}

	absolute, expires := m.policy.Deadlines(m.now(), static)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &memoryEntry{
		data:     data,
		static:   static,
		absolute: absolute,
		expires:  expires,
	}
}

func (m *Memory) Remove(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len cuenta entradas, incluidas las vencidas que todavía no se barrieron
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// DeleteExpired barre las entradas vencidas y devuelve cuántas borró
func (m *Memory) DeleteExpired() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Close detiene el janitor. Se puede llamar más de una vez.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

func (m *Memory) janitor() {
	defer close(m.done)

	ticker := time.NewTicker(m.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.DeleteExpired(); n > 0 {
				logx.Debugf("session cache: %d entradas vencidas eliminadas", n)
			}
		}
	}
}
