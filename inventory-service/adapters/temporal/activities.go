package temporal

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
)

// Reserver is the slice of the stock service the worker needs.
type Reserver interface {
	Reserve(ctx context.Context, items []core.StockRequest) (core.ReservationResult, error)
}

type InventoryActivities struct {
	Service Reserver
}

func NewInventoryActivities(service Reserver) *InventoryActivities {
	return &InventoryActivities{Service: service}
}

// ReserveStock runs one reservation batch. An understocked result is a
// normal return value, not an error; the caller decides what it means for
// the order. Retrying this activity would decrement the reserved lines a
// second time, so workflows schedule it with a single attempt.
func (a *InventoryActivities) ReserveStock(ctx context.Context, items []core.StockRequest) (core.ReservationResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("reserving stock", "lines", len(items))

	result, err := a.Service.Reserve(ctx, items)
	if err != nil {
		logger.Error("reservation failed", "error", err)
		return core.ReservationResult{}, err
	}
	if !result.OK() {
		logger.Info("reservation understocked", "understocked", len(result.Understocked), "reserved", len(result.Reserved))
	}
	return result, nil
}
