package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Manager starts registered services in registration order and stops them in
// reverse, so later services may depend on earlier ones.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]bool
	started  int
	log      zerolog.Logger
}

// NewManager constructs an empty manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		names: make(map[string]bool),
		log:   log.With().Str("component", "system").Logger(),
	}
}

// Register adds a service. Registration after Start and duplicate names are
// rejected.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("register nil service")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started > 0 {
		return fmt.Errorf("register %s: manager already started", svc.Name())
	}
	if m.names[svc.Name()] {
		return fmt.Errorf("register %s: duplicate service name", svc.Name())
	}
	m.names[svc.Name()] = true
	m.services = append(m.services, svc)
	return nil
}

// Start brings services up in order. On failure the already-started services
// are stopped in reverse before the error returns.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.log.Error().Err(err).Str("service", svc.Name()).Msg("service failed to start")
			m.stopLocked(ctx, i)
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		m.started = i + 1
		m.log.Info().Str("service", svc.Name()).Msg("service started")
	}
	return nil
}

// Stop brings every started service down in reverse order. All stop errors
// are logged; the first one is returned.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx, m.started)
}

func (m *Manager) stopLocked(ctx context.Context, upto int) error {
	var firstErr error
	for i := upto - 1; i >= 0; i-- {
		svc := m.services[i]
		if err := svc.Stop(ctx); err != nil {
			m.log.Error().Err(err).Str("service", svc.Name()).Msg("service failed to stop")
			if firstErr == nil {
				firstErr = fmt.Errorf("stop %s: %w", svc.Name(), err)
			}
			continue
		}
		m.log.Info().Str("service", svc.Name()).Msg("service stopped")
	}
	m.started = 0
	return firstErr
}
