package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/ports"
)

// Store is the cart state container for one cart key. Mutations go through
// core.Reduce, are saved through the Persister and then announced to
// subscribers. Saving is best effort: a failed save is logged and the
// in-memory state still moves forward.
type Store struct {
	mu          sync.Mutex
	key         string
	state       core.CartState
	persister   ports.Persister
	logger      *zap.Logger
	subscribers map[int]func(core.CartState)
	nextID      int
}

// ErrLoad is returned by New when the stored cart exists but could not be
// read. The caller must not write under that key, or the stored cart
// would be overwritten.
var ErrLoad = errors.New("cart could not be loaded")

// New restores the cart stored under key, or starts empty when there is
// none.
func New(ctx context.Context, persister ports.Persister, key string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		key:         key,
		state:       core.Empty(),
		persister:   persister,
		logger:      logger,
		subscribers: map[int]func(core.CartState){},
	}

	state, found, err := persister.Load(ctx, key)
	switch {
	case err != nil && !found:
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, key, err)
	case err != nil:
		// Read but a side effect (ttl refresh) failed.
		logger.Warn("cart loaded with error", zap.String("cart", key), zap.Error(err))
	}
	if found {
		s.state = core.Restore(state)
	}
	return s, nil
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) State() core.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called with every new state. The returned
// func removes it.
func (s *Store) Subscribe(fn func(core.CartState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Dispatch applies action and returns the new state.
func (s *Store) Dispatch(ctx context.Context, action core.Action) core.CartState {
	s.mu.Lock()
	s.state = core.Reduce(s.state, action)
	state := s.state
	subs := make([]func(core.CartState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if err := s.persister.Save(ctx, s.key, state); err != nil {
		s.logger.Warn("cart save failed", zap.String("cart", s.key), zap.Error(err))
	}
	for _, fn := range subs {
		fn(state)
	}
	return state
}

// Add normalises p and adds it to the cart.
func (s *Store) Add(ctx context.Context, p core.Product) (core.CartState, error) {
	line, err := core.NewCartLine(p)
	if err != nil {
		return s.State(), err
	}
	return s.Dispatch(ctx, core.AddItem{Line: line}), nil
}

func (s *Store) Remove(ctx context.Context, id string) core.CartState {
	return s.Dispatch(ctx, core.RemoveItem{ID: id})
}

func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) core.CartState {
	return s.Dispatch(ctx, core.UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) Clear(ctx context.Context) core.CartState {
	return s.Dispatch(ctx, core.ClearCart{})
}

func (s *Store) VirtualStock(id string, serverStock int) int {
	return core.VirtualStock(s.State(), id, serverStock)
}
