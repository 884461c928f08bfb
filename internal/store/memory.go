package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPerPage is used when a list call asks for a non-positive page size.
const DefaultPerPage = 30

// SeedFunc produces the initial collections of a MemoryStore.
type SeedFunc func() map[string][]Record

// MemoryStore is the mock-mode record store. It is seeded lazily, at most
// once, on first access.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Record
	seed        SeedFunc
	seedOnce    sync.Once
	now         func() time.Time
}

// NewMemoryStore creates a store that applies seed on first use. seed may be nil.
func NewMemoryStore(seed SeedFunc) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Record),
		seed:        seed,
		now:         time.Now,
	}
}

// WithClock overrides the clock used to stamp created/updated.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) ensureSeeded() {
	m.seedOnce.Do(func() {
		if m.seed == nil {
			return
		}
		data := m.seed()
		m.mu.Lock()
		defer m.mu.Unlock()
		for name, records := range data {
			cp := make([]Record, 0, len(records))
			for _, r := range records {
				cp = append(cp, r.clone())
			}
			m.collections[name] = append(cp, m.collections[name]...)
		}
	})
}

func (m *MemoryStore) query(ctx context.Context, collection string, opts ListOptions) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter, err := ParseFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	m.ensureSeeded()

	m.mu.RLock()
	var out []Record
	for _, r := range m.collections[collection] {
		if filter.Match(r) {
			out = append(out, r.clone())
		}
	}
	m.mu.RUnlock()

	sortRecords(out, ParseSort(opts.Sort))
	return out, nil
}

func (m *MemoryStore) GetList(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	all, err := m.query(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	res := &ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(all),
		TotalPages: (len(all) + perPage - 1) / perPage,
		Items:      []Record{},
	}
	start := (page - 1) * perPage
	if start < len(all) {
		end := min(start+perPage, len(all))
		res.Items = all[start:end]
	}
	return res, nil
}

func (m *MemoryStore) GetFullList(ctx context.Context, collection string, opts ListOptions) ([]Record, error) {
	all, err := m.query(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []Record{}
	}
	return all, nil
}

func (m *MemoryStore) GetOne(ctx context.Context, collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ensureSeeded()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.collections[collection] {
		if r.ID() == id {
			return r.clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetFirstListItem(ctx context.Context, collection, filter string) (Record, error) {
	all, err := m.query(ctx, collection, ListOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

func (m *MemoryStore) Create(ctx context.Context, collection string, data Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ensureSeeded()

	r := data.clone()
	if r.ID() == "" {
		r["id"] = uuid.NewString()
	}
	stamp := FormatTime(m.now())
	if r.String("created") == "" {
		r["created"] = stamp
	}
	r["updated"] = stamp

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.collections[collection] {
		if existing.ID() == r.ID() {
			return nil, &APIError{Status: 400, Message: "duplicate id " + r.ID()}
		}
	}
	m.collections[collection] = append(m.collections[collection], r)
	return r.clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, data Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ensureSeeded()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.collections[collection] {
		if r.ID() != id {
			continue
		}
		for k, v := range data {
			if k == "id" || k == "created" {
				continue
			}
			r[k] = v
		}
		r["updated"] = FormatTime(m.now())
		return r.clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ensureSeeded()

	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.collections[collection]
	for i, r := range records {
		if r.ID() == id {
			m.collections[collection] = append(records[:i:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Count returns the number of records in a collection.
func (m *MemoryStore) Count(collection string) int {
	m.ensureSeeded()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}
