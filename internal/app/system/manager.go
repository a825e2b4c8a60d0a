package system

import (
	"context"
	"fmt"
	"sync"
)

// Manager owns the registered services and drives their lifecycle. Services
// start in registration order and stop in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]struct{}
	started  bool
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]struct{})}
}

// Register adds a service. Registration fails after Start and on duplicate
// names.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	name := svc.Name()
	if name == "" {
		return fmt.Errorf("service name is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("cannot register %s: manager already started", name)
	}
	if _, exists := m.names[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}
	m.names[name] = struct{}{}
	m.services = append(m.services, svc)
	return nil
}

// Start starts all registered services in order. On failure, services that
// already started are stopped in reverse before returning the error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	services := make([]Service, len(m.services))
	copy(services, m.services)
	m.mu.Unlock()

	for i, svc := range services {
		if err := svc.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = services[j].Stop(ctx)
			}
			m.mu.Lock()
			m.started = false
			m.mu.Unlock()
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Stop stops all services in reverse registration order. The first error is
// returned after every service has been asked to stop.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	services := make([]Service, len(m.services))
	copy(services, m.services)
	m.started = false
	m.mu.Unlock()

	var firstErr error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", services[i].Name(), err)
		}
	}
	return firstErr
}

// Names lists the registered service names in registration order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, svc.Name())
	}
	return out
}
