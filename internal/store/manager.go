package store

import (
	"context"
	"sync"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/infra/cache"
	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const ownerStoreCache = "owner_store"

// Manager hands out the per-owner client mirror, creating and loading it on
// first use. Mirrors idle longer than the TTL are evicted by the cache and
// transparently reloaded on the next request — eviction only costs a reload.
//
// The mutex guards the cache only, never a remote call: one owner's cold
// load must not stall another owner's cache hit. Concurrent cold loads for
// the same owner are collapsed into a single backend fetch.
type Manager struct {
	mu      sync.Mutex
	db      port.ClientPersistence
	stores  *cache.InMemory[*ClientStore]
	loads   singleflight.Group
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewManager creates a store manager with the given idle TTL.
func NewManager(db port.ClientPersistence, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		db:      db,
		stores:  cache.New[*ClientStore](ttl),
		metrics: metrics,
		logger:  logger,
	}
}

// ForOwner returns the loaded store for ownerID. A first load that fails is
// not cached, so the next request triggers a fresh attempt (explicit user
// retry, never automatic).
func (m *Manager) ForOwner(ctx context.Context, ownerID string) (*ClientStore, error) {
	if ownerID == "" {
		return nil, &domain.ErrUnauthorized{}
	}

	m.mu.Lock()
	if st, ok := m.stores.Get(ownerID); ok {
		m.metrics.IncrCacheHit(ownerStoreCache)
		m.stores.Set(ownerID, st) // refresh TTL
		m.mu.Unlock()
		return st, nil
	}
	m.mu.Unlock()
	m.metrics.IncrCacheMiss(ownerStoreCache)

	v, err, _ := m.loads.Do(ownerID, func() (any, error) {
		st := NewClientStore(ownerID, m.db, m.logger)
		if err := st.Load(ctx); err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.stores.Set(ownerID, st)
		m.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClientStore), nil
}

// Evict drops the cached mirror for an owner, forcing a full reload on the
// next request. Used when a session identity changes.
func (m *Manager) Evict(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores.Delete(ownerID)
}
