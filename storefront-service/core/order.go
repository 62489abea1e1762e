package core

import (
	"errors"
	"fmt"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
)

// UnknownProductError names the cart item that no longer matches a
// product.
type UnknownProductError struct {
	Item string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product not found: %s", e.Item)
}

func (e *UnknownProductError) Is(target error) bool {
	return target == ErrProductNotFound
}

var ErrUnderstocked = errors.New("some items are out of stock")

type OrderItem struct {
	inventory.Identity
	Quantity float64 `json:"quantity"`
	Option   string  `json:"option,omitempty"`
}

type Customer struct {
	Name    string `json:"name" binding:"required,max=100"`
	Phone   string `json:"phone" binding:"required,max=20"`
	Address string `json:"address" binding:"required,max=500"`
	Note    string `json:"note" binding:"max=500"`
}

type OrderRequest struct {
	CartItems []OrderItem `json:"cartItems"`
	Customer  Customer    `json:"customer"`
}

// VerifiedLine carries the price and title read from the database, never
// the ones the client sent.
type VerifiedLine struct {
	ProductID string  `json:"productId"`
	Slug      string  `json:"slug"`
	Title     string  `json:"title"`
	Option    string  `json:"option,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

type VerifiedOrder struct {
	Reference string         `json:"reference"`
	Lines     []VerifiedLine `json:"lines"`
	Count     int            `json:"count"`
	Total     float64        `json:"total"`
	Customer  Customer       `json:"customer"`
	Message   string         `json:"message"`
	Link      string         `json:"link"`
}

// StockRequests lists the verified lines in reservation form, addressed
// by database id.
func (o VerifiedOrder) StockRequests() []inventory.StockRequest {
	reqs := make([]inventory.StockRequest, 0, len(o.Lines))
	for _, l := range o.Lines {
		reqs = append(reqs, inventory.StockRequest{
			Identity: inventory.Identity{ObjectID: l.ProductID},
			Quantity: float64(l.Quantity),
		})
	}
	return reqs
}

type CheckoutResult struct {
	Order       *VerifiedOrder              `json:"order"`
	Reservation inventory.ReservationResult `json:"reservation"`
}
