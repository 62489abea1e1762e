package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/ports"
)

// StockService reserves stock for cart lines. Each line is an independent
// atomic check-and-decrement; there is no transaction across lines, so a
// batch can end with some lines reserved and others understocked.
type StockService struct {
	Stock  ports.StockRepository
	Events ports.EventRepository
	Logger *zap.Logger
	Now    func() time.Time
}

func NewStockService(stock ports.StockRepository, events ports.EventRepository, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{Stock: stock, Events: events, Logger: logger, Now: time.Now}
}

// Reserve processes items in order. Lines whose quantity normalises to
// zero are skipped. A repository error stops processing and is returned
// without a result; lines decremented before the error stay decremented.
func (s *StockService) Reserve(ctx context.Context, items []core.StockRequest) (core.ReservationResult, error) {
	if len(items) == 0 {
		return core.ReservationResult{}, core.ErrEmptyCart
	}

	result := core.ReservationResult{
		Reserved:     []core.StockItem{},
		Understocked: []core.StockItem{},
	}
	for _, req := range items {
		item := req.Normalize()
		if item.Quantity == 0 {
			continue
		}
		if item.Empty() {
			result.Understocked = append(result.Understocked, item)
			continue
		}

		change, err := s.Stock.DecrementIfAvailable(ctx, item.Identity, item.Quantity)
		if err != nil {
			return core.ReservationResult{}, fmt.Errorf("reserve %q: %w", item.Key(), err)
		}
		if change == nil {
			s.Logger.Info("understocked",
				zap.String("product", item.Key()),
				zap.Int("requested", item.Quantity),
			)
			result.Understocked = append(result.Understocked, item)
			continue
		}

		result.Reserved = append(result.Reserved, item)
		s.recordEvent(ctx, *change, item.Quantity)
	}
	return result, nil
}

// recordEvent appends the audit event. The stock is already decremented at
// this point, so a failed append is logged and never undoes the reservation.
func (s *StockService) recordEvent(ctx context.Context, change core.StockChange, qty int) {
	if s.Events == nil {
		return
	}
	event := core.StockEvent{
		StreamID:  change.StreamID,
		Version:   change.Version,
		Type:      core.EventStockReserved,
		Qty:       qty,
		Timestamp: s.Now(),
	}
	if err := s.Events.AppendEvent(ctx, event); err != nil {
		s.Logger.Warn("failed to append stock event",
			zap.String("stream_id", change.StreamID),
			zap.Int("version", change.Version),
			zap.Error(err),
		)
	}
}
