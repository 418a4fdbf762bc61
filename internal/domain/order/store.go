package order

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no order matches the requested ID.
var ErrNotFound = errors.New("order not found")

// Store is the process-wide collection of orders. It is append-only with
// respect to new orders; existing orders are mutated in place by ID. Nothing
// is persisted: the store is constructed once at startup and its contents die
// with the process.
//
// All access is serialized behind a single RWMutex. Writers (Append,
// UpdateByID) take the write lock; readers take the read lock. Every method
// returns snapshots, never pointers into the store, so callers can read
// (encode, compute bills) without racing a concurrent update. Slow work such
// as classification must happen before touching the store; no lock is held
// across external calls.
type Store struct {
	mu     sync.RWMutex
	orders []*Order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// List returns snapshots of all orders in creation order.
func (s *Store) List() []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.snapshot()
	}
	return out
}

// GetByID returns a snapshot of the order with the given ID, or ErrNotFound.
// Lookup is a linear scan; IDs are unique by construction so the first match
// is the only one.
func (s *Store) GetByID(id uuid.UUID) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	return o.snapshot(), nil
}

// Append adds a new order to the end of the store. No uniqueness check is
// needed: order IDs are freshly generated at construction. The caller must
// not retain and mutate o after appending it.
func (s *Store) Append(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
}

// UpdateByID applies AddProduct for each given product, in order, to the
// stored order with the given ID and returns a snapshot of the result. A
// missing ID short-circuits with ErrNotFound before any mutation. Once found,
// each product is applied independently and idempotently; duplicates are
// skipped without touching UpdatedAt. The stored order is mutated in place —
// no copy of the stored state is made.
func (s *Store) UpdateByID(id uuid.UUID, products []Product) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		o.AddProduct(p)
	}
	return o.snapshot(), nil
}

// Len reports the number of stored orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *Store) findLocked(id uuid.UUID) (*Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrNotFound
}
