// Package storage keeps the demo server's stored values.
package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Record is one stored value row. ErrorMessage is nil when the last upload was accepted.
type Record struct {
	DataValue    int       `json:"data_value"`
	ErrorMessage *string   `json:"error_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists value rows by id.
type Store interface {
	Close() error
	Load(id uint64) (Record, bool, error)
	Save(id uint64, rec Record) error
}

// Options controls retention for concrete store implementations. A zero TTL keeps
// rows forever.
type Options struct {
	TTL time.Duration
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	if opts.TTL < 0 {
		opts.TTL = 0
	}

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(expiry, now time.Time) bool {
	return !expiry.IsZero() && !expiry.After(now)
}

type noopStore struct{}

func (noopStore) Close() error                      { return nil }
func (noopStore) Load(uint64) (Record, bool, error) { return Record{}, false, nil }
func (noopStore) Save(uint64, Record) error         { return nil }

type memoryEntry struct {
	rec    Record
	expiry time.Time
}

// memoryStore keeps rows in process memory; used by tests and throwaway servers.
type memoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	rows map[uint64]memoryEntry
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{ttl: opts.TTL, rows: make(map[uint64]memoryEntry)}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Load(id uint64) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rows[id]
	if !ok {
		return Record{}, false, nil
	}
	if expired(e.expiry, time.Now()) {
		delete(m.rows, id)
		return Record{}, false, nil
	}
	return e.rec, true, nil
}

func (m *memoryStore) Save(id uint64, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now.UTC()
	}
	m.rows[id] = memoryEntry{rec: rec, expiry: expiryFor(now, m.ttl)}
	return nil
}
