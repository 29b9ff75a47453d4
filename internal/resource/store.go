package resource

import "sync"

// Store is the in-memory resource cache plus the ownership index.
//
// The index maps a service resource's id to the ordered list of owner
// ids that embed it. It is built once during graph expansion and
// consulted, never recomputed, during event handling.
//
// All methods are safe for concurrent use. Mutation of the resources
// themselves is the caller's concern (see package doc).
type Store struct {
	mu     sync.RWMutex
	items  map[string]*Resource
	owners map[string][]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items:  make(map[string]*Resource),
		owners: make(map[string][]string),
	}
}

// Get returns the canonical resource for id, or false if unknown.
func (s *Store) Get(id string) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	return r, ok
}

// Put creates or fully replaces the entry for id.
func (s *Store) Put(id string, r *Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = r
}

// OwnersOf returns the ordered owner ids claiming the service id.
// The returned slice is a copy; it is empty for unowned resources.
func (s *Store) OwnersOf(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := s.owners[id]
	if len(owners) == 0 {
		return nil
	}
	cpy := make([]string, len(owners))
	copy(cpy, owners)
	return cpy
}

// Commit writes a batch of resources and their ownership index in one
// locked step. Existing entries with matching ids are replaced; the
// ownership entries are merged in. Index entries referencing an id not
// present after the commit are dropped, preserving the invariant that
// the index never points outside the store.
func (s *Store) Commit(resources []*Resource, owners map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range resources {
		s.items[r.ID] = r
	}
	for id, ownerIDs := range owners {
		if _, ok := s.items[id]; !ok {
			continue
		}
		s.owners[id] = ownerIDs
	}
}

// All returns every stored resource. The slice is freshly allocated
// but the pointers are the canonical entries; callers must not mutate
// them outside the node's lock.
func (s *Store) All() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Resource, 0, len(s.items))
	for _, r := range s.items {
		all = append(all, r)
	}
	return all
}

// Len returns the number of stored resources.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a deep copy of the resource for id, safe to hand to
// concurrent readers such as the HTTP API.
func (s *Store) Snapshot(id string) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return r.DeepCopy(), true
}

// SnapshotAll returns deep copies of every stored resource.
func (s *Store) SnapshotAll() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Resource, 0, len(s.items))
	for _, r := range s.items {
		all = append(all, r.DeepCopy())
	}
	return all
}
