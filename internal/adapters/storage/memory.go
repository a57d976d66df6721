package storage

import (
	"context"
	"strconv"
	"sync"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

type memoryEntry struct {
	data    []byte
	version int
}

// MemoryStore is an in-process blob store with counter revisions. It backs
// the local profile and tests; nothing persists across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Get fetches a document and its current revision.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, domain.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, "", domain.NewNotFoundError("document", key)
	}

	data := make([]byte, len(entry.data))
	copy(data, entry.data)

	return data, revisionFromVersion(entry.version), nil
}

// Put stores a document, conditionally when a revision is supplied.
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, revision domain.Revision) (domain.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[key]
	if revision != "" {
		if !exists || revisionFromVersion(entry.version) != revision {
			return "", domain.NewStaleWriteError(key, revision)
		}
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	next := memoryEntry{data: stored, version: entry.version + 1}
	m.entries[key] = next

	return revisionFromVersion(next.version), nil
}

// Seed stores a document unconditionally, bypassing revision bookkeeping.
// Intended for test fixtures and local bootstrap.
func (m *MemoryStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entries[key]
	stored := make([]byte, len(data))
	copy(stored, data)

	m.entries[key] = memoryEntry{data: stored, version: entry.version + 1}
}

// Delete removes a document if present. Intended for tests.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}

// Name implements ports.HealthChecker.
func (m *MemoryStore) Name() string {
	return "blob-store"
}

// Check implements ports.HealthChecker. The in-memory store is always
// reachable.
func (m *MemoryStore) Check(ctx context.Context) error {
	return nil
}

func revisionFromVersion(version int) domain.Revision {
	return domain.Revision(strconv.Itoa(version))
}
