package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

// Verifier rebuilds an order from trusted product data and renders the
// WhatsApp message the customer sends to the store.
type Verifier struct {
	Products ports.ProductRepository
	Store    config.StoreConfig
	NewRef   func() string
}

func NewVerifier(products ports.ProductRepository, store config.StoreConfig) *Verifier {
	return &Verifier{Products: products, Store: store, NewRef: NewReference}
}

// NewReference returns a short order reference like "JGS-1A2B3C4D".
func NewReference() string {
	return "JGS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Verify fails with inventory.ErrEmptyCart when no line has a positive
// quantity and with a *core.UnknownProductError for the first item that
// matches no product.
func (v *Verifier) Verify(ctx context.Context, req core.OrderRequest) (*core.VerifiedOrder, error) {
	order := &core.VerifiedOrder{
		Reference: v.NewRef(),
		Lines:     []core.VerifiedLine{},
		Customer:  req.Customer,
	}

	total := decimal.Zero
	for _, item := range req.CartItems {
		qty := inventory.NormalizeQuantity(item.Quantity)
		if qty == 0 {
			continue
		}

		product, err := v.Products.FindByIdentity(ctx, item.Identity)
		if errors.Is(err, core.ErrProductNotFound) {
			return nil, &core.UnknownProductError{Item: item.Key()}
		}
		if err != nil {
			return nil, fmt.Errorf("load product %q: %w", item.Key(), err)
		}

		subtotal := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(qty))).Round(2)
		total = total.Add(subtotal)
		order.Count += qty
		order.Lines = append(order.Lines, core.VerifiedLine{
			ProductID: product.ID.Hex(),
			Slug:      product.Slug,
			Title:     product.Title,
			Option:    item.Option,
			Quantity:  qty,
			UnitPrice: product.Price,
			Subtotal:  subtotal.InexactFloat64(),
		})
	}
	if len(order.Lines) == 0 {
		return nil, inventory.ErrEmptyCart
	}

	order.Total = total.Round(2).InexactFloat64()
	order.Message = v.message(order, total)
	order.Link = WhatsAppLink(v.Store.WhatsAppNumber, order.Message)
	return order, nil
}

func (v *Verifier) message(order *core.VerifiedOrder, total decimal.Decimal) string {
	cur := v.Store.CurrencySymbol
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s from %s\n", order.Reference, v.Store.Name)
	fmt.Fprintf(&b, "Name: %s\n", order.Customer.Name)
	fmt.Fprintf(&b, "Phone: %s\n", order.Customer.Phone)
	fmt.Fprintf(&b, "Address: %s\n", order.Customer.Address)
	if order.Customer.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", order.Customer.Note)
	}
	b.WriteString("\n")
	for i, l := range order.Lines {
		title := l.Title
		if l.Option != "" {
			title += " (" + l.Option + ")"
		}
		fmt.Fprintf(&b, "%d. %s x%d = %s%s\n", i+1, title, l.Quantity, cur, decimal.NewFromFloat(l.Subtotal).StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s%s", cur, total.StringFixed(2))
	return b.String()
}

// WhatsAppLink builds a wa.me deep link. Non-digits are stripped from the
// number; an empty number lets the user pick the chat.
func WhatsAppLink(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
