package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	temporalAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/adapters/temporal"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
)

// Activity names, as registered by the storefront and inventory workers.
const (
	ActivityVerifyOrder  = "VerifyOrder"
	ActivityReserveStock = "ReserveStock"
)

// Task queues of each service.
const (
	QueueStorefront = "storefront-queue"
	QueueInventory  = "inventory-queue"
)

// CheckoutWorkflow verifies the order against the catalog and then
// reserves its stock. Verification is read-only and retried; the
// reservation runs exactly once because a second attempt would take the
// already reserved lines again.
func CheckoutWorkflow(ctx workflow.Context, req core.OrderRequest) (core.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("checkout started", "lines", len(req.CartItems))

	// STEP 1: verify
	verifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		TaskQueue:           QueueStorefront,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})
	var order core.VerifiedOrder
	if err := workflow.ExecuteActivity(verifyCtx, ActivityVerifyOrder, req).Get(verifyCtx, &order); err != nil {
		logger.Error("order verification failed", "error", err)
		return core.CheckoutResult{}, err
	}

	// STEP 2: reserve
	reserveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		TaskQueue:           QueueInventory,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	var reservation inventory.ReservationResult
	if err := workflow.ExecuteActivity(reserveCtx, ActivityReserveStock, order.StockRequests()).Get(reserveCtx, &reservation); err != nil {
		logger.Error("stock reservation failed", "order", order.Reference, "error", err)
		return core.CheckoutResult{}, err
	}

	if !reservation.OK() {
		logger.Info("checkout understocked", "order", order.Reference, "understocked", len(reservation.Understocked))
	} else {
		logger.Info("checkout completed", "order", order.Reference)
	}
	return core.CheckoutResult{Order: &order, Reservation: reservation}, nil
}

// WorkflowStarter is the part of client.Client used to start checkouts.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// WorkflowCheckouter runs checkout through Temporal and waits for the
// result.
type WorkflowCheckouter struct {
	Client WorkflowStarter
}

func NewWorkflowCheckouter(c WorkflowStarter) *WorkflowCheckouter {
	return &WorkflowCheckouter{Client: c}
}

func (w *WorkflowCheckouter) Checkout(ctx context.Context, req core.OrderRequest) (core.CheckoutResult, error) {
	opts := client.StartWorkflowOptions{
		ID:        "checkout-" + uuid.NewString(),
		TaskQueue: QueueStorefront,
	}
	run, err := w.Client.ExecuteWorkflow(ctx, opts, CheckoutWorkflow, req)
	if err != nil {
		return core.CheckoutResult{}, fmt.Errorf("start checkout workflow: %w", err)
	}

	var result core.CheckoutResult
	if err := run.Get(ctx, &result); err != nil {
		return core.CheckoutResult{}, temporalAdapter.FromApplicationError(err)
	}
	return result, nil
}
