// Package store owns the in-memory mirrors of remote and local state:
// per-owner client lists and the settings blob.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/companychat/crm-backend-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoadState tracks the lifecycle of a per-owner client mirror.
type LoadState int

const (
	StateUnloaded LoadState = iota
	StateLoading
	StateLoaded
)

// ClientStore holds the authoritative in-memory client list for one owner.
//
// Memory is mutated only after the remote call confirms, so the list never
// shows an unconfirmed write. Concurrent operations on the same record are
// not sequenced: the last remote response to land wins. The mutex protects
// the slice, not the ordering of remote calls.
type ClientStore struct {
	mu      sync.RWMutex
	ownerID string
	db      port.ClientPersistence
	logger  *zap.Logger

	clients []domain.Client
	state   LoadState
}

// NewClientStore creates an unloaded store scoped to ownerID. An empty
// ownerID yields an inert store: every operation silently no-ops.
func NewClientStore(ownerID string, db port.ClientPersistence, logger *zap.Logger) *ClientStore {
	return &ClientStore{
		ownerID: ownerID,
		db:      db,
		logger:  logger,
		clients: []domain.Client{},
	}
}

// State returns the current load state.
func (s *ClientStore) State() LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Clients returns a snapshot copy of the in-memory list, newest first.
func (s *ClientStore) Clients() []domain.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// Get returns the record with the given id, if present.
func (s *ClientStore) Get(id string) (domain.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Client{}, false
}

// Load fetches all records for the owner and replaces the mirror. On failure
// the previous list (empty on first load) is kept and the error surfaces to
// the caller; no automatic retry happens.
func (s *ClientStore) Load(ctx context.Context) error {
	if s.ownerID == "" {
		return nil
	}

	s.mu.Lock()
	prev := s.state
	s.state = StateLoading
	s.mu.Unlock()

	rows, err := s.db.ListByOwner(ctx, s.ownerID)
	if err != nil {
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
		s.logger.Error("clients: load failed",
			zap.String("owner_id", s.ownerID),
			zap.Error(err),
		)
		return err
	}

	clients := make([]domain.Client, 0, len(rows))
	for _, r := range rows {
		clients = append(clients, ClientFromRow(r))
	}

	s.mu.Lock()
	s.clients = clients
	s.state = StateLoaded
	s.mu.Unlock()

	s.logger.Debug("clients: loaded",
		zap.String("owner_id", s.ownerID),
		zap.Int("count", len(clients)),
	)
	return nil
}

// Add persists a new record and, on success, prepends it to the mirror.
// The backend assigns id and createdAt; they are synthesized here only when
// the returned representation lacks them. Without an owner the call is a
// silent no-op.
func (s *ClientStore) Add(ctx context.Context, c domain.Client) (*domain.Client, error) {
	if s.ownerID == "" {
		return nil, nil
	}

	if c.Status == "" {
		c.Status = domain.StatusActive
	}
	if c.Connections == 0 {
		c.Connections = 1
	}

	row := RowFromClient(c, s.ownerID)

	saved, err := s.db.Insert(ctx, row)
	if err != nil {
		s.logger.Error("clients: add failed",
			zap.String("owner_id", s.ownerID),
			zap.Error(err),
		)
		return nil, err
	}
	if saved == nil {
		saved = &row
	}
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if saved.CreatedAt == "" {
		saved.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	created := ClientFromRow(*saved)

	s.mu.Lock()
	s.clients = append([]domain.Client{created}, s.clients...)
	s.mu.Unlock()

	s.logger.Info("clients: added",
		zap.String("owner_id", s.ownerID),
		zap.String("client_id", created.ID),
	)
	return &created, nil
}

// Update persists a sparse patch scoped to (id, owner) and, on success,
// applies the same patch to the matching in-memory record. On failure the
// mirror is untouched.
func (s *ClientStore) Update(ctx context.Context, id string, patch domain.ClientPatch) error {
	if s.ownerID == "" {
		return nil
	}

	row := PatchToRow(patch)
	row["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.db.UpdatePatch(ctx, id, s.ownerID, row); err != nil {
		s.logger.Error("clients: update failed",
			zap.String("owner_id", s.ownerID),
			zap.String("client_id", id),
			zap.Error(err),
		)
		return err
	}

	s.mu.Lock()
	for i := range s.clients {
		if s.clients[i].ID == id {
			applyPatch(&s.clients[i], patch)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// UpdateStatus is the dedicated status transition used by both direct edits
// and kanban drag-and-drop.
func (s *ClientStore) UpdateStatus(ctx context.Context, id string, status domain.ClientStatus) error {
	return s.Update(ctx, id, domain.ClientPatch{Status: &status})
}

// Delete persists the removal scoped to (id, owner) and, on success, drops
// the record from the mirror. Irreversible.
func (s *ClientStore) Delete(ctx context.Context, id string) error {
	if s.ownerID == "" {
		return nil
	}

	if err := s.db.Delete(ctx, id, s.ownerID); err != nil {
		s.logger.Error("clients: delete failed",
			zap.String("owner_id", s.ownerID),
			zap.String("client_id", id),
			zap.Error(err),
		)
		return err
	}

	s.mu.Lock()
	for i := range s.clients {
		if s.clients[i].ID == id {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("clients: deleted",
		zap.String("owner_id", s.ownerID),
		zap.String("client_id", id),
	)
	return nil
}
