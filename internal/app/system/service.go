package system

import "context"

// Service is a lifecycle-managed component. Background modules (the event
// hub, the usage monitor, pollers) implement it so the manager can start and
// stop them deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService registers a name with the manager without any background work.
// Passive modules use it so they still show up in system status.
type NoopService struct {
	ServiceName string
}

// Name returns the registered service name.
func (s NoopService) Name() string { return s.ServiceName }

// Start is a no-op.
func (s NoopService) Start(context.Context) error { return nil }

// Stop is a no-op.
func (s NoopService) Stop(context.Context) error { return nil }
