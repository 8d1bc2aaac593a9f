package mission

import (
	"context"
	"sync"
	"time"

	"lunarmonkeys/internal/logging"
)

// list is an ordered, most-recent-first cache of one backend collection.
// Failed operations leave it untouched. Results of operations that started
// before the last Clear are dropped.
type list[T any] struct {
	name string

	mu      sync.RWMutex
	items   []T
	loading bool
	gen     uint64
}

func (l *list[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func (l *list[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *list[T]) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// Clear empties the list and invalidates operations still in flight.
func (l *list[T]) Clear() {
	l.mu.Lock()
	l.items = nil
	l.loading = false
	l.gen++
	l.mu.Unlock()
}

func (l *list[T]) generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gen
}

func (l *list[T]) setLoading(v bool) {
	l.mu.Lock()
	l.loading = v
	l.mu.Unlock()
}

// load replaces the list with the fetched records.
func (l *list[T]) load(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	gen := l.generation()
	l.setLoading(true)
	defer l.setLoading(false)

	items, err := fetch(ctx)
	if err != nil {
		logging.StoreError("Failed to load %s: %v", l.name, err)
		return err
	}

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		logging.Store("Dropped %s load that finished after clear", l.name)
		return nil
	}
	l.items = items
	l.mu.Unlock()
	logging.Get(logging.CategoryStore).StructuredLog("info", "list loaded", map[string]interface{}{
		"collection": l.name,
		"count":      len(items),
	})
	return nil
}

// prepend puts a freshly created record at the head of the list unless the
// list was cleared since gen.
func (l *list[T]) prepend(item T, gen uint64) {
	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		logging.Store("Dropped new %s record created before clear", l.name)
		return
	}
	l.items = append([]T{item}, l.items...)
	n := len(l.items)
	l.mu.Unlock()
	logging.Store("Prepended new %s record (now %d)", l.name, n)
}

// PrimateStore mirrors the astro-primates collection.
type PrimateStore struct {
	list[Primate]
	remote Remote
}

// NewPrimateStore creates an empty store.
func NewPrimateStore(remote Remote) *PrimateStore {
	return &PrimateStore{list: list[Primate]{name: "primates"}, remote: remote}
}

// LoadAll fetches every primate with its handler expanded.
func (s *PrimateStore) LoadAll(ctx context.Context) error {
	return s.load(ctx, s.remote.ListPrimates)
}

// Create submits a new primate handled by handlerID and prepends the
// server's copy.
func (s *PrimateStore) Create(ctx context.Context, draft PrimateDraft, handlerID string) (*Primate, error) {
	audit := logging.AuditWithUser(handlerID)
	gen := s.generation()
	start := time.Now()
	p, err := s.remote.CreatePrimate(ctx, draft, handlerID)
	if err != nil {
		logging.StoreError("Failed to create primate %q: %v", draft.Name, err)
		audit.RecordFailed(s.name, err, time.Since(start))
		return nil, err
	}
	s.prepend(*p, gen)
	audit.RecordCreated(s.name, p.ID, time.Since(start))
	return p, nil
}

// Search runs a name-contains query without touching the local list.
func (s *PrimateStore) Search(ctx context.Context, query string) ([]Primate, error) {
	out, err := s.remote.SearchPrimates(ctx, query)
	if err != nil {
		logging.StoreError("Primate search %q failed: %v", query, err)
		return nil, err
	}
	return out, nil
}

// Find returns the local primate with the given id.
func (s *PrimateStore) Find(id string) (Primate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.items {
		if p.ID == id {
			return p, true
		}
	}
	return Primate{}, false
}

// DiscoveryStore mirrors the discoveries collection.
type DiscoveryStore struct {
	list[Discovery]
	remote Remote
}

// NewDiscoveryStore creates an empty store.
func NewDiscoveryStore(remote Remote) *DiscoveryStore {
	return &DiscoveryStore{list: list[Discovery]{name: "discoveries"}, remote: remote}
}

// LoadAll fetches every discovery with primate and scientist expanded.
func (s *DiscoveryStore) LoadAll(ctx context.Context) error {
	return s.load(ctx, s.remote.ListDiscoveries)
}

// Create submits a new discovery and prepends it after re-reading it with
// relations expanded, which the create response lacks.
func (s *DiscoveryStore) Create(ctx context.Context, draft DiscoveryDraft, scientistID string) (*Discovery, error) {
	audit := logging.AuditWithUser(scientistID)
	gen := s.generation()
	start := time.Now()
	created, err := s.remote.CreateDiscovery(ctx, draft, scientistID)
	if err != nil {
		logging.StoreError("Failed to create discovery %q: %v", draft.Title, err)
		audit.RecordFailed(s.name, err, time.Since(start))
		return nil, err
	}

	enriched, err := s.remote.ReadDiscovery(ctx, created.ID)
	if err != nil {
		logging.StoreError("Failed to re-read discovery %s: %v", created.ID, err)
		audit.RecordFailed(s.name, err, time.Since(start))
		return nil, err
	}
	s.prepend(*enriched, gen)
	audit.RecordCreated(s.name, enriched.ID, time.Since(start))
	return enriched, nil
}
