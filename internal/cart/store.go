package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"FurniStore/internal/catalog"
)

// MaxQuantity caps a single line.
const MaxQuantity = 999

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
	ErrNotInCart       = errors.New("product not in cart")
	ErrPersist         = errors.New("cart not persisted")
)

// Listener receives a private copy of the state after every change.
type Listener func(State)

type subscription struct {
	id uint64
	fn Listener
}

// Store is one shopper's cart. Every mutation recomputes the totals, persists
// the whole state and then calls each listener synchronously, in subscription
// order. Listeners must not call back into the Store.
type Store struct {
	key     string
	persist Persister
	log     *zap.Logger
	// observe is told about each mutation by operation name.
	observe func(op string)

	mu        sync.Mutex
	state     State
	listeners []subscription
	nextID    uint64
	// unsaved is set while the persister lags the in-memory state.
	unsaved bool
}

func NewStore(key string, p Persister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{key: key, persist: p, log: log, state: EmptyState()}
}

// Open creates a Store for key and restores whatever was persisted for it.
func Open(ctx context.Context, key string, p Persister, log *zap.Logger) (*Store, error) {
	s := NewStore(key, p, log)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Restore(ctx context.Context) error {
	st, ok, err := s.persist.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("restore cart %s: %w", s.key, err)
	}
	if !ok {
		return nil
	}
	st.normalize()

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) GetProductQuantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Quantity(productID)
}

// Subscribe calls fn with the current state before returning, then after
// every mutation until the returned function is called.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	fn(s.state.clone())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// AddToCart adds qty of p, merging with an existing line for the same id.
func (s *Store) AddToCart(ctx context.Context, p catalog.Product, qty int) error {
	if qty <= 0 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx, "add", func(st *State) error {
		if i := st.index(p.ID); i >= 0 {
			if st.Items[i].Quantity > MaxQuantity-qty {
				return ErrInvalidQuantity
			}
			st.Items[i].Quantity += qty
			return nil
		}
		st.Items = append(st.Items, Item{Product: p.Clone(), Quantity: qty})
		return nil
	})
}

func (s *Store) RemoveFromCart(ctx context.Context, productID string) error {
	return s.mutate(ctx, "remove", func(st *State) error {
		if i := st.index(productID); i >= 0 {
			st.Items = append(st.Items[:i:i], st.Items[i+1:]...)
		}
		return nil
	})
}

// UpdateQuantity sets the quantity of a line. qty <= 0 is a removal.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}
	if qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx, "update", func(st *State) error {
		i := st.index(productID)
		if i < 0 {
			return ErrNotInCart
		}
		st.Items[i].Quantity = qty
		return nil
	})
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, "clear", func(st *State) error {
		st.Items = []Item{}
		return nil
	})
}

// evictable reports whether dropping s loses nothing: no one is watching it
// and the persister holds its latest state.
func (s *Store) evictable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners) == 0 && !s.unsaved
}

// RemovePaid takes the paid quantities out of the cart. Lines added or
// raised after the paid snapshot was taken keep the difference.
func (s *Store) RemovePaid(ctx context.Context, paid []Item) error {
	return s.mutate(ctx, "checkout", func(st *State) error {
		for _, p := range paid {
			i := st.index(p.Product.ID)
			if i < 0 {
				continue
			}
			if left := st.Items[i].Quantity - p.Quantity; left > 0 {
				st.Items[i].Quantity = left
			} else {
				st.Items = append(st.Items[:i:i], st.Items[i+1:]...)
			}
		}
		return nil
	})
}

// mutate applies fn to a working copy. If fn fails nothing changes. Otherwise
// the new state is installed, persisted and broadcast; a persist failure is
// reported after the broadcast.
func (s *Store) mutate(ctx context.Context, op string, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.recompute()
	s.state = next

	if s.observe != nil {
		s.observe(op)
	}

	perr := s.persist.Save(ctx, s.key, s.state.clone())
	s.unsaved = perr != nil

	for _, sub := range s.listeners {
		sub.fn(s.state.clone())
	}

	if perr != nil {
		s.log.Warn("cart persist failed", zap.String("key", s.key), zap.String("op", op), zap.Error(perr))
		return fmt.Errorf("%w: %w", ErrPersist, perr)
	}
	return nil
}
