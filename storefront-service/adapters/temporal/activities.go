package temporal

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

// Application error types that must not be retried.
const (
	ErrTypeUnknownProduct = "UnknownProduct"
	ErrTypeEmptyCart      = "EmptyCart"
)

type StorefrontActivities struct {
	Verifier ports.OrderVerifier
}

func NewStorefrontActivities(verifier ports.OrderVerifier) *StorefrontActivities {
	return &StorefrontActivities{Verifier: verifier}
}

// VerifyOrder wraps the verifier. Caller mistakes become non-retryable
// application errors; anything else is left to the retry policy.
func (a *StorefrontActivities) VerifyOrder(ctx context.Context, req core.OrderRequest) (*core.VerifiedOrder, error) {
	order, err := a.Verifier.Verify(ctx, req)
	if err == nil {
		return order, nil
	}

	var unknown *core.UnknownProductError
	switch {
	case errors.As(err, &unknown):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnknownProduct, err, unknown.Item)
	case errors.Is(err, inventory.ErrEmptyCart):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeEmptyCart, err)
	}
	return nil, err
}

// FromApplicationError turns the non-retryable errors raised above back
// into domain errors once they come out of a workflow.
func FromApplicationError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case ErrTypeUnknownProduct:
		var item string
		if appErr.HasDetails() {
			_ = appErr.Details(&item)
		}
		return &core.UnknownProductError{Item: item}
	case ErrTypeEmptyCart:
		return inventory.ErrEmptyCart
	}
	return err
}
