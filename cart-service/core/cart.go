package core

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
)

var (
	ErrMissingIdentity = errors.New("product has no id, _id, productId or slug")
	ErrInvalidPrice    = errors.New("product price must be a finite number >= 0")
)

// Product is the add-to-cart payload as the product pages send it. Only
// one of the identity fields needs to be set; the line key follows the
// same rule as stock reservation (inventory Identity.Key).
type Product struct {
	inventory.Identity
	Title    string         `json:"title,omitempty"`
	Image    string         `json:"image,omitempty"`
	Price    *float64       `json:"price"`
	Quantity float64        `json:"quantity,omitempty"`
	Option   string         `json:"option,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type CartLine struct {
	ID       string         `json:"id"`
	Quantity int            `json:"quantity"`
	Price    float64        `json:"price"`
	Option   string         `json:"option,omitempty"`
	Title    string         `json:"title,omitempty"`
	Image    string         `json:"image,omitempty"`
	Slug     string         `json:"slug,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// CartState is also the persisted shape.
type CartState struct {
	Items []CartLine `json:"items"`
	Count int        `json:"count"`
	Total float64    `json:"total"`
}

func Empty() CartState {
	return CartState{Items: []CartLine{}}
}

// NewCartLine turns a raw product into a canonical line. Quantity defaults
// to 1 and is never below 1.
func NewCartLine(p Product) (CartLine, error) {
	key := p.Key()
	if key == "" {
		return CartLine{}, ErrMissingIdentity
	}
	if p.Price == nil || math.IsNaN(*p.Price) || math.IsInf(*p.Price, 0) || *p.Price < 0 {
		return CartLine{}, ErrInvalidPrice
	}

	return CartLine{
		ID:       key,
		Quantity: normalizeQuantity(p.Quantity),
		Price:    *p.Price,
		Option:   p.Option,
		Title:    p.Title,
		Image:    p.Image,
		Slug:     p.Slug,
		Extra:    p.Extra,
	}, nil
}

func normalizeQuantity(q float64) int {
	if math.IsNaN(q) || q < 1 {
		return 1
	}
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(q))
}

// Subtotal is price x quantity, unrounded.
func (l CartLine) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Line returns the line for id and whether it exists.
func (s CartState) Line(id string) (CartLine, bool) {
	for _, l := range s.Items {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}

// withItems builds a state from items, deriving count and total from
// them. Every reducer path ends here.
func withItems(items []CartLine) CartState {
	count := 0
	total := decimal.Zero
	for _, l := range items {
		count += l.Quantity
		total = total.Add(l.Subtotal())
	}
	if items == nil {
		items = []CartLine{}
	}
	return CartState{
		Items: items,
		Count: count,
		Total: total.Round(2).InexactFloat64(),
	}
}

// Restore repairs a state read back from storage: lines without an id or
// with a non-positive quantity are dropped, duplicate ids are merged and
// the aggregates are recomputed.
func Restore(s CartState) CartState {
	items := make([]CartLine, 0, len(s.Items))
	index := make(map[string]int, len(s.Items))
	for _, l := range s.Items {
		if l.ID == "" || l.Quantity < 1 || math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price < 0 {
			continue
		}
		if i, ok := index[l.ID]; ok {
			items[i].Quantity += l.Quantity
			continue
		}
		index[l.ID] = len(items)
		items = append(items, l)
	}
	return withItems(items)
}

// VirtualStock is the stock a product page should show once the quantity
// already in this cart is taken into account. It never goes below zero.
func VirtualStock(s CartState, id string, serverStock int) int {
	line, ok := s.Line(id)
	if !ok {
		if serverStock < 0 {
			return 0
		}
		return serverStock
	}
	if v := serverStock - line.Quantity; v > 0 {
		return v
	}
	return 0
}
