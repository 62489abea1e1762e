package ports

import (
	"context"

	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/core"
)

// Persister stores one cart state per key.
type Persister interface {
	// Load returns found=false when nothing is stored under key.
	Load(ctx context.Context, key string) (state core.CartState, found bool, err error)
	Save(ctx context.Context, key string, state core.CartState) error
}
