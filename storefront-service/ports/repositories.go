package ports

import (
	"context"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
)

// ProductRepository is the catalog. Lookups return core.ErrProductNotFound
// when nothing matches.
type ProductRepository interface {
	List(ctx context.Context, q core.ProductQuery) ([]core.Product, int64, error)
	GetBySlug(ctx context.Context, slug string) (*core.Product, error)
	FindByIdentity(ctx context.Context, id inventory.Identity) (*core.Product, error)
	Get(ctx context.Context, id string) (*core.Product, error)
	Create(ctx context.Context, p *core.Product) error
	Update(ctx context.Context, p *core.Product) error
	AdjustStock(ctx context.Context, id string, delta int) (*inventory.StockChange, error)
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]string, error)
	Slugs(ctx context.Context) ([]core.Product, error)
}

// SalesViewRepository reads the projector's output.
type SalesViewRepository interface {
	List(ctx context.Context) ([]core.SalesRow, error)
}

// StockEventLog is the per-product stock stream.
type StockEventLog interface {
	AppendEvent(ctx context.Context, event inventory.StockEvent) error
	GetEvents(ctx context.Context, streamID string, limit int64) ([]inventory.StockEvent, error)
}

type StockReserver interface {
	Reserve(ctx context.Context, items []inventory.StockRequest) (inventory.ReservationResult, error)
}

type OrderVerifier interface {
	Verify(ctx context.Context, req core.OrderRequest) (*core.VerifiedOrder, error)
}

// Checkouter verifies an order and then reserves its stock. Understocked
// lines come back in the result, not as an error.
type Checkouter interface {
	Checkout(ctx context.Context, req core.OrderRequest) (core.CheckoutResult, error)
}
