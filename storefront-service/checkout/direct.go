package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

// Direct runs checkout in process: verify, then reserve. Used when no
// Temporal cluster is configured.
type Direct struct {
	Verifier ports.OrderVerifier
	Stock    ports.StockReserver
	Logger   *zap.Logger
}

func NewDirect(verifier ports.OrderVerifier, stock ports.StockReserver, logger *zap.Logger) *Direct {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Direct{Verifier: verifier, Stock: stock, Logger: logger}
}

func (d *Direct) Checkout(ctx context.Context, req core.OrderRequest) (core.CheckoutResult, error) {
	order, err := d.Verifier.Verify(ctx, req)
	if err != nil {
		return core.CheckoutResult{}, err
	}

	reservation, err := d.Stock.Reserve(ctx, order.StockRequests())
	if err != nil {
		return core.CheckoutResult{}, err
	}
	if !reservation.OK() {
		d.Logger.Info("checkout understocked",
			zap.String("order", order.Reference),
			zap.Int("understocked", len(reservation.Understocked)),
		)
	}
	return core.CheckoutResult{Order: order, Reservation: reservation}, nil
}
