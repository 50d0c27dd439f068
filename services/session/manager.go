package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	sync     *Synchronizer
	lastSeen time.Time
}

// Manager holds one Synchronizer per client session key. Synchronizers are
// opened on first use and closed after idleTTL without requests.
type Manager struct {
	deps    Deps
	idleTTL time.Duration
	// OnEvict, if set, runs after a synchronizer is closed by Evict or EvictIdle.
	OnEvict func(key string)
	now     func() time.Time
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

func NewManager(deps Deps, idleTTL time.Duration) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		deps:     deps,
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*entry),
	}
}

// Get returns the started synchronizer for key, opening it if needed.
func (m *Manager) Get(key string) (*Synchronizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	e, ok := m.sessions[key]
	if !ok {
		s := NewSynchronizer(key, m.deps)
		s.Start()
		e = &entry{sync: s}
		m.sessions[key] = e
		m.setActive()
		m.logger.Debug("Opened client session", zap.String("session", shortKey(key)))
	}
	e.lastSeen = m.now()
	return e.sync, nil
}

// Evict closes the synchronizer for key, if any.
func (m *Manager) Evict(key string) {
	m.mu.Lock()
	e, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
		m.setActive()
	}
	m.mu.Unlock()
	if ok {
		e.sync.Close()
		m.evicted(key)
	}
}

// EvictIdle closes every synchronizer unused for idleTTL and returns how many it closed.
func (m *Manager) EvictIdle() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*Synchronizer
	for key, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.sync)
			delete(m.sessions, key)
		}
	}
	m.setActive()
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.evicted(s.Key())
	}
	if len(idle) > 0 {
		m.logger.Debug("Evicted idle client sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run evicts idle synchronizers until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// Len reports how many synchronizers are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll closes every synchronizer and refuses new ones.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Synchronizer, 0, len(m.sessions))
	for key, e := range m.sessions {
		all = append(all, e.sync)
		delete(m.sessions, key)
	}
	m.setActive()
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Synchronizer) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}

func (m *Manager) evicted(key string) {
	if m.OnEvict != nil {
		m.OnEvict(key)
	}
}

// setActive must be called with mu held.
func (m *Manager) setActive() {
	if m.deps.Metrics != nil {
		m.deps.Metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}
