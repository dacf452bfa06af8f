// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the store/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/companychat/crm-backend-go/internal/domain"
)

// ClientPersistence is the remote persistence capability for client records.
// Every operation is scoped to an owner; all calls can fail with a transport
// or authorization error and are never retried at this layer.
type ClientPersistence interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ClientRow, error)
	Insert(ctx context.Context, row domain.ClientRow) (*domain.ClientRow, error)
	UpdatePatch(ctx context.Context, id, ownerID string, patch map[string]any) error
	Delete(ctx context.Context, id, ownerID string) error
}

// SettingsPersistence stores the settings blob in local durable storage.
// Load returns (nil, nil) when nothing has been persisted yet.
type SettingsPersistence interface {
	Load(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, s *domain.Settings) error
}

// EventPublisher delivers client lifecycle events to connected integrations.
// Publishing is fire-and-forget: delivery failures never propagate back to
// the mutation that raised the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.ClientEvent)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
