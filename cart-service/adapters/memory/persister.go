package memory

import (
	"context"
	"sync"

	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/core"
)

// Persister keeps carts in process memory. Used when no Redis address is
// configured and in tests.
type Persister struct {
	mu    sync.RWMutex
	carts map[string]core.CartState
}

func NewPersister() *Persister {
	return &Persister{carts: map[string]core.CartState{}}
}

func (p *Persister) Load(ctx context.Context, key string) (core.CartState, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.carts[key]
	if !ok {
		return core.CartState{}, false, nil
	}
	return clone(state), true, nil
}

func (p *Persister) Save(ctx context.Context, key string, state core.CartState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carts[key] = clone(state)
	return nil
}

func clone(s core.CartState) core.CartState {
	items := make([]core.CartLine, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}
