package circuitbreaker

import (
	"fmt"
	"sync"

	"github.com/LerianStudio/lib-breaker/commons/log"
)

// Manager keeps one breaker stack per protected service and hands out
// shared references to them.
type Manager struct {
	mu     sync.RWMutex
	guards map[string]*Guard
	logger log.Logger
}

// NewManager creates an empty breaker registry.
func NewManager(logger log.Logger) *Manager {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	return &Manager{
		guards: make(map[string]*Guard),
		logger: logger,
	}
}

// GetOrCreate returns the breaker stack registered for serviceName,
// creating it with the given options on first use. Options are ignored for
// an already-registered service.
func (m *Manager) GetOrCreate(serviceName string, opts ...Option) (*Guard, error) {
	m.mu.RLock()
	guard, exists := m.guards[serviceName]
	m.mu.RUnlock()

	if exists {
		return guard, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if guard, exists = m.guards[serviceName]; exists {
		return guard, nil
	}

	opts = append([]Option{WithLogger(m.logger)}, opts...)

	guard, err := New(serviceName, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating circuit breaker for service %s: %w", serviceName, err)
	}

	m.guards[serviceName] = guard

	m.logger.Infof("Created circuit breaker for service: %s", serviceName)

	return guard, nil
}

// Get returns the breaker stack for serviceName, if registered.
func (m *Manager) Get(serviceName string) (*Guard, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	guard, exists := m.guards[serviceName]

	return guard, exists
}

// State returns the circuit state for serviceName. The second return is
// false when the service is not registered.
func (m *Manager) State(serviceName string) (State, bool) {
	guard, exists := m.Get(serviceName)
	if !exists {
		return StateClosed, false
	}

	return guard.State(), true
}

// Snapshot returns the rolling-window statistics for serviceName.
func (m *Manager) Snapshot(serviceName string) (Snapshot, bool) {
	guard, exists := m.Get(serviceName)
	if !exists {
		return Snapshot{}, false
	}

	return guard.Snapshot(), true
}

// IsHealthy reports whether the service's circuit is currently admitting
// traffic.
func (m *Manager) IsHealthy(serviceName string) bool {
	state, exists := m.State(serviceName)

	return !exists || state != StateOpen
}

// Reset forces the service's circuit closed, e.g. after an external health
// probe confirmed recovery.
func (m *Manager) Reset(serviceName string) {
	guard, exists := m.Get(serviceName)
	if !exists {
		return
	}

	m.logger.Infof("Resetting circuit breaker for service: %s", serviceName)
	guard.Breaker().Close()
}

// Services lists the registered service names.
func (m *Manager) Services() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.guards))
	for name := range m.guards {
		names = append(names, name)
	}

	return names
}

// ShutdownAll terminates every registered breaker stack. Idempotent.
func (m *Manager) ShutdownAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, guard := range m.guards {
		m.logger.Infof("Shutting down circuit breaker for service: %s", name)
		guard.Shutdown()
	}
}
