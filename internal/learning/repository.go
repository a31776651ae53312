package learning

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Repository is the durable store for feedback records.
// Increment must be atomic per (identity, date).
type Repository interface {
	// Increment adds one offset to the record, creating it if absent,
	// and returns the record after the update.
	Increment(ctx context.Context, identity, date string, offset int) (Record, error)
	// Get returns the record, or a zero-count record if none exists.
	Get(ctx context.Context, identity, date string) (Record, error)
	// History returns records dated on or after since, most recent first.
	History(ctx context.Context, identity, since string) ([]Record, error)
	// DeleteBefore removes records dated strictly before cutoff.
	DeleteBefore(ctx context.Context, cutoff string) (int64, error)
	// DeleteForIdentity removes every record of an identity.
	DeleteForIdentity(ctx context.Context, identity string) (int64, error)
}

// BiasCache is a time-bounded cache of learned biases. It is advisory:
// the repository is always authoritative.
type BiasCache interface {
	GetBias(ctx context.Context, identity, date string) (int, bool, error)
	SetBias(ctx context.Context, identity, date string, bias int) error
	DeleteBias(ctx context.Context, identity, date string) error
	DeleteIdentity(ctx context.Context, identity string) error
}

type recordKey struct {
	identity string
	date     string
}

// MemoryRepository keeps records in process memory.
// It is used for local development and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[recordKey]Record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[recordKey]Record)}
}

// Increment adds an offset under the repository lock.
func (m *MemoryRepository) Increment(_ context.Context, identity, date string, offset int) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{identity, date}
	rec, ok := m.records[key]
	if !ok {
		rec = Record{Identity: identity, Date: date}
	}
	rec.TotalOffset += offset
	rec.Count++
	m.records[key] = rec
	return rec, nil
}

// Get retrieves a record.
func (m *MemoryRepository) Get(_ context.Context, identity, date string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[recordKey{identity, date}]; ok {
		return rec, nil
	}
	return Record{Identity: identity, Date: date}, nil
}

// History returns an identity's records since a date, most recent first.
func (m *MemoryRepository) History(_ context.Context, identity, since string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for k, rec := range m.records {
		if k.identity == identity && k.date >= since {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		return strings.Compare(b.Date, a.Date) // Descending
	})
	return out, nil
}

// DeleteBefore removes records older than cutoff.
func (m *MemoryRepository) DeleteBefore(_ context.Context, cutoff string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k := range m.records {
		if k.date < cutoff {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

// DeleteForIdentity removes all records for an identity.
func (m *MemoryRepository) DeleteForIdentity(_ context.Context, identity string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k := range m.records {
		if k.identity == identity {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

var _ Repository = (*MemoryRepository)(nil)
