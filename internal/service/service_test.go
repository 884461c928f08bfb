package service

import (
	"context"
	"time"

	"github.com/teresa-solution/owner-console/internal/seed"
	"github.com/teresa-solution/owner-console/internal/store"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func seededStore() *store.MemoryStore {
	return store.NewMemoryStore(seed.Func(testClock)).WithClock(testClock)
}

func storeWith(data map[string][]store.Record) *store.MemoryStore {
	return store.NewMemoryStore(func() map[string][]store.Record { return data }).WithClock(testClock)
}

func stamp(t time.Time) string { return store.FormatTime(t) }

// failingStore fails every read of one collection with err.
type failingStore struct {
	store.RecordStore
	collection string
	err        error
}

func (f failingStore) GetList(ctx context.Context, collection string, page, perPage int, opts store.ListOptions) (*store.ListResult, error) {
	if collection == f.collection {
		return nil, f.err
	}
	return f.RecordStore.GetList(ctx, collection, page, perPage, opts)
}

func (f failingStore) GetFullList(ctx context.Context, collection string, opts store.ListOptions) ([]store.Record, error) {
	if collection == f.collection {
		return nil, f.err
	}
	return f.RecordStore.GetFullList(ctx, collection, opts)
}

func (f failingStore) GetFirstListItem(ctx context.Context, collection, filter string) (store.Record, error) {
	if collection == f.collection {
		return nil, f.err
	}
	return f.RecordStore.GetFirstListItem(ctx, collection, filter)
}

// hangingStore never answers list calls until release is closed, and ignores
// the caller's context while waiting.
type hangingStore struct {
	store.RecordStore
	release chan struct{}
}

func (h hangingStore) GetList(ctx context.Context, collection string, page, perPage int, opts store.ListOptions) (*store.ListResult, error) {
	<-h.release
	return &store.ListResult{}, nil
}
