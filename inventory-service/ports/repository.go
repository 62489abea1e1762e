package ports

import (
	"context"

	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
)

// StockRepository owns the stock counters on product documents.
type StockRepository interface {
	// DecrementIfAvailable atomically takes qty units from the product
	// matching id, only if at least qty units remain. It returns nil, nil
	// when no product matched or stock was insufficient.
	DecrementIfAvailable(ctx context.Context, id core.Identity, qty int) (*core.StockChange, error)
}

// EventRepository appends to the stock event stream.
type EventRepository interface {
	AppendEvent(ctx context.Context, event core.StockEvent) error
}
