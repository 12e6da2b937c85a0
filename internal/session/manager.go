package session

import (
	"context"
	"sync"

	"github.com/hartleigh/tivod/internal/infrastructure/config"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
	"github.com/hartleigh/tivod/internal/tivo"
)

// TransportFactory builds the control transport for one device. The
// default dials the box over TCP; tests substitute fakes.
type TransportFactory func(cfg config.DeviceConfig, logger *logging.Logger) Transport

// NewTCPTransport is the production transport factory.
func NewTCPTransport(cfg config.DeviceConfig, logger *logging.Logger) Transport {
	return tivo.NewClient(cfg.Host, cfg.EffectivePort(),
		cfg.EffectiveConnectTimeout(), cfg.EffectiveCommandTimeout(), logger)
}

// Manager owns the set of device sessions and their lifecycles.
type Manager struct {
	directory DirectoryProvider
	programs  ProgramSource
	sinks     []Sink
	factory   TransportFactory
	logger    *logging.Logger

	mu       sync.RWMutex
	ctx      context.Context
	sessions map[string]*Session
}

// NewManager creates a manager. Sessions are added separately so the
// caller controls which devices exist.
func NewManager(directory DirectoryProvider, programs ProgramSource, sinks []Sink, factory TransportFactory, logger *logging.Logger) *Manager {
	if factory == nil {
		factory = NewTCPTransport
	}
	return &Manager{
		directory: directory,
		programs:  programs,
		sinks:     sinks,
		factory:   factory,
		logger:    logger.With("component", "session_manager"),
		sessions:  make(map[string]*Session),
	}
}

// AddSink registers an additional state consumer. Must be called before
// Start; sessions capture the sink list when they are created.
func (m *Manager) AddSink(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// Start begins polling for every configured device. The context bounds
// all session loops.
func (m *Manager) Start(ctx context.Context, devices []config.DeviceConfig) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	for _, d := range devices {
		if err := m.Add(d); err != nil {
			return err
		}
	}
	m.logger.Info("session manager started", "devices", len(devices))
	return nil
}

// Stop halts every session loop and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	m.logger.Info("session manager stopped")
}

// Add registers a device and starts its polling loop.
func (m *Manager) Add(cfg config.DeviceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[cfg.ID]; exists {
		return ErrDeviceExists
	}

	transport := m.factory(cfg, m.logger)
	s := newSession(cfg, transport, m.directory, m.programs, m.sinks, m.logger)
	m.sessions[cfg.ID] = s

	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.start(ctx)
	m.logger.Info("device session added", "device", cfg.ID, "host", cfg.Host)
	return nil
}

// Remove stops a device's polling loop and forgets it. The loop is
// cancelled before its next tick fires.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return ErrDeviceNotFound
	}
	s.stop()
	m.logger.Info("device session removed", "device", id)
	return nil
}

// Get returns the session for a device ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	if !exists {
		return nil, ErrDeviceNotFound
	}
	return s, nil
}

// Snapshots returns the current state of every managed device, sorted
// by the caller if order matters.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	return out
}
