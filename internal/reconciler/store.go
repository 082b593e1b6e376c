// Package reconciler keeps a client-side cache of catalog and order state
// in step with the realtime notification stream.
package reconciler

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// Snapshot is the full state fetched from the HTTP API, used to seed the
// cache and to recover from dropped updates.
type Snapshot struct {
	Items      []domain.MenuItem
	Categories []domain.Category
	Orders     []domain.Order
}

// Store merges notifications into cached collections keyed by id. Every
// merge is idempotent and commutative per key: adds only insert unknown
// ids, updates only touch known ids and never move an entity backwards in
// time, deletes only remove what is present.
type Store struct {
	mu         sync.RWMutex
	items      map[int64]domain.MenuItem
	categories map[int64]domain.Category
	orders     map[int64]domain.Order
}

func NewStore() *Store {
	s := &Store{}
	s.Reset(Snapshot{})
	return s
}

// Reset replaces the whole cache with snap.
func (s *Store) Reset(snap Snapshot) {
	items := make(map[int64]domain.MenuItem, len(snap.Items))
	for _, it := range snap.Items {
		items[it.ID] = it
	}
	categories := make(map[int64]domain.Category, len(snap.Categories))
	for _, c := range snap.Categories {
		categories[c.ID] = c
	}
	orders := make(map[int64]domain.Order, len(snap.Orders))
	for _, o := range snap.Orders {
		orders[o.ID] = o
	}

	s.mu.Lock()
	s.items, s.categories, s.orders = items, categories, orders
	s.mu.Unlock()
}

// Apply merges one envelope and reports whether the cache changed. Kinds
// that carry no cached state, such as cart activity, are accepted and
// ignored.
func (s *Store) Apply(env domain.Envelope) (bool, error) {
	switch env.Event {
	case domain.EventCatalogAdd, domain.EventCatalogUpdate:
		var it domain.MenuItem
		if err := decode(env, &it); err != nil {
			return false, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return merge(s.items, it.ID, it, env.Event == domain.EventCatalogAdd, func(m domain.MenuItem) domain.MenuItem { return m }, itemUpdatedAt), nil

	case domain.EventCatalogDelete:
		var ref domain.DeletedRef
		if err := decode(env, &ref); err != nil {
			return false, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.items[ref.ID]; !ok {
			return false, nil
		}
		delete(s.items, ref.ID)
		return true, nil

	case domain.EventCategoryAdd, domain.EventCategoryUpdate:
		var c domain.Category
		if err := decode(env, &c); err != nil {
			return false, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return merge(s.categories, c.ID, c, env.Event == domain.EventCategoryAdd, func(c domain.Category) domain.Category { return c }, categoryUpdatedAt), nil

	case domain.EventOrderNew, domain.EventOrderUpdate:
		var o domain.Order
		if err := decode(env, &o); err != nil {
			return false, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		// update payloads may omit items; the cached lines stay authoritative
		keepItems := func(o domain.Order) domain.Order {
			if cached, ok := s.orders[o.ID]; ok && len(o.Items) == 0 {
				o.Items = cached.Items
			}
			return o
		}
		return merge(s.orders, o.ID, o, env.Event == domain.EventOrderNew, keepItems, orderUpdatedAt), nil

	case domain.EventCartActivity:
		return false, nil
	}
	return false, fmt.Errorf("unknown event %q", env.Event)
}

func decode(env domain.Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Event, err)
	}
	return nil
}

// merge applies an add (insert if absent) or an update (replace if present
// and not older) to m. It reports whether m changed.
func merge[T any](m map[int64]T, id int64, v T, add bool, prepare func(T) T, updatedAt func(T) int64) bool {
	if id <= 0 {
		return false
	}
	cached, ok := m[id]
	if add {
		if ok {
			return false
		}
		m[id] = v
		return true
	}
	if !ok || updatedAt(v) < updatedAt(cached) {
		return false
	}
	m[id] = prepare(v)
	return true
}

func itemUpdatedAt(it domain.MenuItem) int64    { return it.UpdatedAt.UnixNano() }
func categoryUpdatedAt(c domain.Category) int64 { return c.UpdatedAt.UnixNano() }
func orderUpdatedAt(o domain.Order) int64       { return o.UpdatedAt.UnixNano() }

// Item returns the cached menu item with id.
func (s *Store) Item(id int64) (domain.MenuItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok
}

// Items returns the cached menu items sorted by name.
func (s *Store) Items() []domain.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.SortedFunc(maps.Values(s.items), func(a, b domain.MenuItem) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}

// Categories returns the cached categories in display order.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.SortedFunc(maps.Values(s.categories), func(a, b domain.Category) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}

// Order returns the cached order with id.
func (s *Store) Order(id int64) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Orders returns the cached orders, newest first.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.SortedFunc(maps.Values(s.orders), func(a, b domain.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
}
