package core

import (
	"errors"
	"math"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
)

// Identity names a product by any of the keys a client may hold for it.
// A product matches when any non-empty field matches.
type Identity struct {
	ID        string `json:"id,omitempty"`
	ObjectID  string `json:"_id,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Slug      string `json:"slug,omitempty"`
}

func (i Identity) Empty() bool {
	return i.ID == "" && i.ObjectID == "" && i.ProductID == "" && i.Slug == ""
}

// Key is the first non-empty identity field.
func (i Identity) Key() string {
	for _, k := range []string{i.ID, i.ObjectID, i.ProductID, i.Slug} {
		if k != "" {
			return k
		}
	}
	return ""
}

// StockRequest is one cart line as sent by a client. Quantity is whatever
// number the client sent and is normalised before use.
type StockRequest struct {
	Identity
	Quantity float64 `json:"quantity"`
}

// StockItem is a normalised request: a whole, non-negative quantity.
type StockItem struct {
	Identity
	Quantity int `json:"quantity"`
}

func (r StockRequest) Normalize() StockItem {
	return StockItem{Identity: r.Identity, Quantity: NormalizeQuantity(r.Quantity)}
}

// NormalizeQuantity returns max(0, floor(q)), capped to int32 range.
func NormalizeQuantity(q float64) int {
	if math.IsNaN(q) || q <= 0 {
		return 0
	}
	q = math.Floor(q)
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(q)
}

// ReservationResult reports the outcome of every non-zero line. Items are
// independent: a result may hold both reserved and understocked entries.
type ReservationResult struct {
	Reserved     []StockItem `json:"reserved"`
	Understocked []StockItem `json:"understocked"`
}

func (r ReservationResult) OK() bool {
	return len(r.Understocked) == 0
}
