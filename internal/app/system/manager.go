package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/qoricash/tradingdesk/internal/logging"
)

// Manager starts registered services in order and stops them in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	started  []Service
	log      *logging.Logger
}

// NewManager constructs an empty manager.
func NewManager(log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewDefault("system")
	}
	return &Manager{log: log}
}

// Register adds a service. Registration order is start order.
func (m *Manager) Register(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, svc)
}

// Start brings up every registered service. On failure it stops the services
// already started and returns the error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.log.WithError(err).WithField("service", svc.Name()).Error("service failed to start")
			m.stopStarted(ctx)
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		m.started = append(m.started, svc)
		m.log.WithField("service", svc.Name()).Info("service started")
	}
	return nil
}

// Stop shuts down started services in reverse order. All services are
// attempted; the first error is returned.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopStarted(ctx)
}

func (m *Manager) stopStarted(ctx context.Context) error {
	var firstErr error
	for i := len(m.started) - 1; i >= 0; i-- {
		svc := m.started[i]
		if err := svc.Stop(ctx); err != nil {
			m.log.WithError(err).WithField("service", svc.Name()).Error("service failed to stop")
			if firstErr == nil {
				firstErr = fmt.Errorf("stop %s: %w", svc.Name(), err)
			}
			continue
		}
		m.log.WithField("service", svc.Name()).Info("service stopped")
	}
	m.started = nil
	return firstErr
}
