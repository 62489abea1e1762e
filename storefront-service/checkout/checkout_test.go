package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

type fakeProducts struct {
	ports.ProductRepository
	bySlug map[string]*core.Product
	err    error
}

func (f *fakeProducts) FindByIdentity(ctx context.Context, id inventory.Identity) (*core.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.bySlug {
		if id.Slug == p.Slug || id.ObjectID == p.ID.Hex() || id.ID == p.ID.Hex() {
			return p, nil
		}
	}
	return nil, core.ErrProductNotFound
}

type fakeStock struct {
	result inventory.ReservationResult
	err    error
	got    []inventory.StockRequest
}

func (f *fakeStock) Reserve(ctx context.Context, items []inventory.StockRequest) (inventory.ReservationResult, error) {
	f.got = items
	return f.result, f.err
}

var (
	milk = &core.Product{ID: primitive.NewObjectID(), Title: "Milk", Slug: "milk", Price: 30.5}
	atta = &core.Product{ID: primitive.NewObjectID(), Title: "Atta", Slug: "atta", Price: 0.1}
)

func newVerifier() *Verifier {
	v := NewVerifier(
		&fakeProducts{bySlug: map[string]*core.Product{"milk": milk, "atta": atta}},
		config.StoreConfig{Name: "Jackson G Store", WhatsAppNumber: "+91 98765-43210", CurrencySymbol: "₹"},
	)
	v.NewRef = func() string { return "JGS-TEST0001" }
	return v
}

func order(items ...core.OrderItem) core.OrderRequest {
	return core.OrderRequest{
		CartItems: items,
		Customer:  core.Customer{Name: "Asha", Phone: "9876543210", Address: "12 MG Road"},
	}
}

func bySlug(slug string, qty float64) core.OrderItem {
	return core.OrderItem{Identity: inventory.Identity{Slug: slug}, Quantity: qty}
}

func TestVerifyUsesTrustedPrices(t *testing.T) {
	req := order(bySlug("milk", 2), bySlug("atta", 3))
	req.CartItems[0].Option = "1L"

	o, err := newVerifier().Verify(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "JGS-TEST0001", o.Reference)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, core.VerifiedLine{
		ProductID: milk.ID.Hex(), Slug: "milk", Title: "Milk", Option: "1L",
		Quantity: 2, UnitPrice: 30.5, Subtotal: 61,
	}, o.Lines[0])
	assert.Equal(t, 0.3, o.Lines[1].Subtotal)
	assert.Equal(t, 5, o.Count)
	assert.Equal(t, 61.3, o.Total)

	assert.Contains(t, o.Message, "1. Milk (1L) x2 = ₹61.00")
	assert.Contains(t, o.Message, "Total: ₹61.30")
	assert.Contains(t, o.Message, "Name: Asha")
	assert.NotContains(t, o.Message, "Note:")

	require.True(t, strings.HasPrefix(o.Link, "https://wa.me/919876543210?text="))
	u, err := url.Parse(o.Link)
	require.NoError(t, err)
	assert.Equal(t, o.Message, u.Query().Get("text"))
	assert.NotContains(t, o.Link, "+")
}

func TestVerifySkipsZeroQuantities(t *testing.T) {
	o, err := newVerifier().Verify(context.Background(), order(bySlug("milk", 0.5), bySlug("atta", 1)))
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "atta", o.Lines[0].Slug)
}

func TestVerifyEmptyCart(t *testing.T) {
	_, err := newVerifier().Verify(context.Background(), order())
	assert.ErrorIs(t, err, inventory.ErrEmptyCart)

	_, err = newVerifier().Verify(context.Background(), order(bySlug("milk", 0)))
	assert.ErrorIs(t, err, inventory.ErrEmptyCart)
}

func TestVerifyUnknownProduct(t *testing.T) {
	_, err := newVerifier().Verify(context.Background(), order(bySlug("milk", 1), bySlug("caviar", 1)))

	var unknown *core.UnknownProductError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "caviar", unknown.Item)
	assert.ErrorIs(t, err, core.ErrProductNotFound)
}

func TestVerifyRepositoryError(t *testing.T) {
	v := newVerifier()
	v.Products = &fakeProducts{err: errors.New("socket closed")}

	_, err := v.Verify(context.Background(), order(bySlug("milk", 1)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrProductNotFound)
}

func TestWhatsAppLinkWithoutNumber(t *testing.T) {
	assert.Equal(t, "https://wa.me/?text=hi%20there", WhatsAppLink("", "hi there"))
}

func TestNewReference(t *testing.T) {
	ref := NewReference()
	assert.Len(t, ref, 12)
	assert.True(t, strings.HasPrefix(ref, "JGS-"))
	assert.NotEqual(t, ref, NewReference())
}

func TestDirectCheckoutReservesVerifiedLines(t *testing.T) {
	stock := &fakeStock{result: inventory.ReservationResult{Reserved: []inventory.StockItem{}, Understocked: []inventory.StockItem{}}}
	d := NewDirect(newVerifier(), stock, nil)

	result, err := d.Checkout(context.Background(), order(bySlug("milk", 2)))
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.True(t, result.Reservation.OK())
	assert.Equal(t, []inventory.StockRequest{
		{Identity: inventory.Identity{ObjectID: milk.ID.Hex()}, Quantity: 2},
	}, stock.got)
}

func TestDirectCheckoutUnderstocked(t *testing.T) {
	short := []inventory.StockItem{{Identity: inventory.Identity{ObjectID: milk.ID.Hex()}, Quantity: 2}}
	stock := &fakeStock{result: inventory.ReservationResult{Reserved: []inventory.StockItem{}, Understocked: short}}

	result, err := NewDirect(newVerifier(), stock, nil).Checkout(context.Background(), order(bySlug("milk", 2)))
	require.NoError(t, err)
	assert.False(t, result.Reservation.OK())
	assert.Equal(t, short, result.Reservation.Understocked)
}

func TestDirectCheckoutStopsOnVerifyError(t *testing.T) {
	stock := &fakeStock{}
	_, err := NewDirect(newVerifier(), stock, nil).Checkout(context.Background(), order(bySlug("caviar", 1)))
	assert.ErrorIs(t, err, core.ErrProductNotFound)
	assert.Nil(t, stock.got)
}

func TestDirectCheckoutReserveError(t *testing.T) {
	stock := &fakeStock{err: errors.New("mongo down")}
	_, err := NewDirect(newVerifier(), stock, nil).Checkout(context.Background(), order(bySlug("milk", 1)))
	assert.EqualError(t, err, "mongo down")
}
