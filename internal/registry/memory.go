package registry

import (
	"context"
	"sync"

	"github.com/iliyamo/parking-rental/internal/model"
)

// MemoryStore keeps registry state in process memory.  It is used for
// tests and for STORE_DRIVER=memory deployments where the registry
// lives only as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	owner  model.Identity
	spots  map[uint64]model.Spot
	order  []uint64
	ledger []model.LedgerEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{spots: make(map[uint64]model.Spot)}
}

func (m *MemoryStore) ClaimOwner(_ context.Context, owner model.Identity) (model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner.IsEmpty() {
		m.owner = owner
	}
	return m.owner, nil
}

func (m *MemoryStore) Spot(_ context.Context, id uint64) (model.Spot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.spots[id]
	if !ok {
		return model.Spot{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Spots(_ context.Context) ([]model.Spot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Spot, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.spots[id])
	}
	return out, nil
}

func (m *MemoryStore) LedgerEntries(_ context.Context) ([]model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.LedgerEntry, len(m.ledger))
	copy(out, m.ledger)
	return out, nil
}

// InTx stages every write made by fn and applies them only when fn
// succeeds.  The store is write-locked for the whole call.
func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m, staged: make(map[uint64]model.Spot)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, s := range tx.staged {
		m.spots[id] = s
	}
	m.order = append(m.order, tx.added...)
	m.ledger = append(m.ledger, tx.entries...)
	return nil
}

type memTx struct {
	store   *MemoryStore
	staged  map[uint64]model.Spot
	added   []uint64
	entries []model.LedgerEntry
}

func (t *memTx) lookup(id uint64) (model.Spot, bool) {
	if s, ok := t.staged[id]; ok {
		return s, true
	}
	s, ok := t.store.spots[id]
	return s, ok
}

func (t *memTx) SpotForUpdate(_ context.Context, id uint64) (model.Spot, error) {
	s, ok := t.lookup(id)
	if !ok {
		return model.Spot{}, ErrNotFound
	}
	return s, nil
}

func (t *memTx) InsertSpot(_ context.Context, s model.Spot) error {
	if _, ok := t.lookup(s.ID); ok {
		return ErrDuplicateID
	}
	t.staged[s.ID] = s
	t.added = append(t.added, s.ID)
	return nil
}

func (t *memTx) UpdateHolder(_ context.Context, s model.Spot) error {
	cur, ok := t.lookup(s.ID)
	if !ok {
		return ErrNotFound
	}
	cur.IsAvailable = s.IsAvailable
	cur.Renter = s.Renter
	cur.UpdatedAt = s.UpdatedAt
	t.staged[s.ID] = cur
	return nil
}

func (t *memTx) AppendLedger(_ context.Context, e *model.LedgerEntry) error {
	e.ID = uint64(len(t.store.ledger) + len(t.entries) + 1)
	t.entries = append(t.entries, *e)
	return nil
}

func (t *memTx) HeldFunds(_ context.Context) (uint64, error) {
	all := make([]model.LedgerEntry, 0, len(t.store.ledger)+len(t.entries))
	all = append(all, t.store.ledger...)
	all = append(all, t.entries...)
	return model.Balance(all), nil
}
