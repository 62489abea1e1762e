package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/service"
	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/config"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/checkout"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
)

const (
	adminUser     = "admin"
	adminPassword = "s3cret-pass"
)

type testServer struct {
	router  *gin.Engine
	catalog *memoryCatalog
	events  *memoryEvents
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := &memoryCatalog{}
	events := &memoryEvents{}
	stock := service.NewStockService(catalog, events, nil)
	verifier := checkout.NewVerifier(catalog, config.StoreConfig{
		Name: "Jackson G Store", WhatsAppNumber: "919800000000", CurrencySymbol: "₹",
	})
	sales := &memorySales{rows: []core.SalesRow{{ProductKey: "p1", UnitsReserved: 5, Reservations: 2, LastVersion: 2}}}

	r := NewRouter(RouterConfig{
		Store:         NewStoreHandler(catalog, stock, verifier, checkout.NewDirect(verifier, stock, nil), nil),
		Admin:         NewAdminHandler(catalog, sales, events, nil),
		Sitemap:       NewSitemapHandler(catalog, "https://jgs.example", nil),
		AdminUser:     adminUser,
		AdminPassword: adminPassword,
	})
	return &testServer{router: r, catalog: catalog, events: events}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) admin(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(adminUser, adminPassword)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(slug string, price float64, stock int) *core.Product {
	return s.catalog.add(core.Product{
		Title: strings.ToUpper(slug[:1]) + slug[1:], Slug: slug, Category: "Dairy",
		Price: price, Stock: stock, UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
}

type reserveResponse struct {
	OK           bool                  `json:"ok"`
	Error        string                `json:"error"`
	Understocked []inventory.StockItem `json:"understocked"`
	Reserved     []inventory.StockItem `json:"reserved"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestReserveAllSufficient(t *testing.T) {
	s := newServer(t)
	a := s.seed("milk", 30, 5)

	w := s.do(http.MethodPost, "/api/stock/reserve", `{"cartItems":[{"id":"`+a.ID.Hex()+`","quantity":2}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, 3, s.catalog.stockOf("milk"))

	require.Len(t, s.events.events, 1)
	assert.Equal(t, a.ID.Hex(), s.events.events[0].StreamID)
}

func TestReserveInsufficient(t *testing.T) {
	s := newServer(t)
	a := s.seed("milk", 30, 5)

	w := s.do(http.MethodPost, "/api/stock/reserve", `{"cartItems":[{"id":"`+a.ID.Hex()+`","quantity":10}]}`)
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decode[reserveResponse](t, w)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, []inventory.StockItem{{Identity: inventory.Identity{ID: a.ID.Hex()}, Quantity: 10}}, resp.Understocked)
	assert.Empty(t, resp.Reserved)
	assert.Equal(t, 5, s.catalog.stockOf("milk"))
}

func TestReserveMixedBatch(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)
	s.seed("eggs", 6, 3)

	w := s.do(http.MethodPost, "/api/stock/reserve", `{"cartItems":[{"slug":"milk","quantity":2},{"slug":"eggs","quantity":100}]}`)
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decode[reserveResponse](t, w)
	require.Len(t, resp.Understocked, 1)
	assert.Equal(t, "eggs", resp.Understocked[0].Slug)
	require.Len(t, resp.Reserved, 1)
	assert.Equal(t, "milk", resp.Reserved[0].Slug)
	assert.Equal(t, 3, s.catalog.stockOf("milk"))
	assert.Equal(t, 3, s.catalog.stockOf("eggs"))
}

func TestReserveMalformed(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)

	for _, body := range []string{`{}`, `{"cartItems":[]}`, `{"cartItems":"milk"}`, `{"cartItems":{"slug":"milk"}}`, `nope`} {
		w := s.do(http.MethodPost, "/api/stock/reserve", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), `"error"`, body)
	}
	assert.Equal(t, 5, s.catalog.stockOf("milk"))
}

func TestReserveDatabaseErrorIsGeneric(t *testing.T) {
	s := newServer(t)
	s.catalog.err = errors.New("connection refused to 10.0.0.5:27017")

	w := s.do(http.MethodPost, "/api/stock/reserve", `{"cartItems":[{"slug":"milk","quantity":1}]}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestCatalog(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)
	s.seed("curd", 45, 2)
	s.catalog.add(core.Product{Title: "Basmati", Slug: "basmati", Category: "Grains", Price: 120})

	w := s.do(http.MethodGet, "/api/products?category=Dairy&limit=1&page=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[core.ProductPage](t, w)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(2), page.Page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "curd", page.Items[0].Slug)

	w = s.do(http.MethodGet, "/api/products?q=bas", "")
	page = decode[core.ProductPage](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(core.DefaultPageSize), page.Limit)

	w = s.do(http.MethodGet, "/api/products?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/products/milk", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30.0, decode[core.Product](t, w).Price)

	w = s.do(http.MethodGet, "/api/products/caviar", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/categories", "")
	assert.JSONEq(t, `{"categories":["Dairy","Grains"]}`, w.Body.String())
}

const customer = `"customer":{"name":"Asha","phone":"9876543210","address":"12 MG Road"}`

func TestVerifyOrder(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)

	w := s.do(http.MethodPost, "/api/orders/verify", `{"cartItems":[{"slug":"milk","quantity":2,"option":"1L"}],`+customer+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		OK    bool               `json:"ok"`
		Order core.VerifiedOrder `json:"order"`
		Link  string             `json:"link"`
	}](t, w)
	assert.True(t, resp.OK)
	assert.Equal(t, 60.0, resp.Order.Total)
	assert.True(t, strings.HasPrefix(resp.Link, "https://wa.me/919800000000?text="))
	assert.Equal(t, 5, s.catalog.stockOf("milk"), "verification must not touch stock")
}

func TestVerifyOrderErrors(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)

	w := s.do(http.MethodPost, "/api/orders/verify", `{"cartItems":[{"slug":"caviar","quantity":1}],`+customer+`}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Product not found","item":"caviar"}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/orders/verify", `{"cartItems":[],`+customer+`}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders/verify", `{"cartItems":[{"slug":"milk","quantity":0}],`+customer+`}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders/verify", `{"cartItems":[{"slug":"milk","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)

	w := s.do(http.MethodPost, "/api/checkout", `{"cartItems":[{"slug":"milk","quantity":2}],`+customer+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"link":"https://wa.me/`)
	assert.Equal(t, 3, s.catalog.stockOf("milk"))

	w = s.do(http.MethodPost, "/api/checkout", `{"cartItems":[{"slug":"milk","quantity":4}],`+customer+`}`)
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[reserveResponse](t, w)
	require.Len(t, resp.Understocked, 1)
	assert.Equal(t, 4, resp.Understocked[0].Quantity)
	assert.Equal(t, 3, s.catalog.stockOf("milk"))
}

func TestAdminRequiresAuth(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/admin/products", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	req.SetBasicAuth(adminUser, "wrong-password")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminProductLifecycle(t *testing.T) {
	s := newServer(t)

	w := s.admin(http.MethodPost, "/admin/products", `{"title":"Amul Butter 500g","category":"Dairy","price":275,"stock":12,"image":"https://res.cloudinary.com/demo/butter.jpg"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[core.Product](t, w)
	assert.Equal(t, "amul-butter-500g", created.Slug)
	assert.Equal(t, 12, created.Stock)
	id := created.ID.Hex()

	w = s.admin(http.MethodPost, "/admin/products", `{"title":"Amul Butter 500g","category":"Dairy","price":275,"stock":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.admin(http.MethodGet, "/admin/products/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.admin(http.MethodPut, "/admin/products/"+id, `{"title":"Amul Butter 500g","slug":"butter","category":"Dairy","price":280,"stock":0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[core.Product](t, w)
	assert.Equal(t, "butter", updated.Slug)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, 280.0, updated.Price)

	require.Len(t, s.events.events, 2)
	assert.Equal(t, inventory.StockEvent{
		StreamID: id, Version: 1, Type: inventory.EventStockAdded, Qty: 12,
		Timestamp: s.events.events[0].Timestamp,
	}, s.events.events[0])
	assert.Equal(t, inventory.EventStockRemoved, s.events.events[1].Type)
	assert.Equal(t, 12, s.events.events[1].Qty)
	assert.Equal(t, 2, s.events.events[1].Version)

	w = s.admin(http.MethodGet, "/admin/products?q=amul", "")
	assert.Equal(t, int64(1), decode[core.ProductPage](t, w).Total)

	w = s.admin(http.MethodDelete, "/admin/products/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.admin(http.MethodGet, "/admin/products/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.admin(http.MethodGet, "/admin/products/not-hex", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminProductValidation(t *testing.T) {
	s := newServer(t)

	for _, body := range []string{
		`{"category":"Dairy","price":1,"stock":1}`,
		`{"title":"Milk","category":"Dairy","price":-1,"stock":1}`,
		`{"title":"Milk","category":"Dairy","price":1}`,
		`{"title":"Milk","category":"Dairy","price":1,"stock":-4}`,
		`{"title":"Milk","category":"Dairy","price":1,"stock":1,"image":"not a url"}`,
		`{"title":"!!!","category":"Dairy","price":1,"stock":1}`,
	} {
		w := s.admin(http.MethodPost, "/admin/products", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	w := s.admin(http.MethodPost, "/admin/products", `{"title":"Free sample","category":"Promo","price":0,"stock":0}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAdminSalesAndStockEvents(t *testing.T) {
	s := newServer(t)
	a := s.seed("milk", 30, 5)
	s.do(http.MethodPost, "/api/stock/reserve", `{"cartItems":[{"slug":"milk","quantity":1}]}`)
	s.do(http.MethodPost, "/api/stock/reserve", `{"cartItems":[{"slug":"milk","quantity":2}]}`)

	w := s.admin(http.MethodGet, "/admin/products/"+a.ID.Hex()+"/stock-events?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[struct {
		Events []inventory.StockEvent `json:"events"`
	}](t, w).Events
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Version)
	assert.Equal(t, 2, events[0].Qty)

	w = s.admin(http.MethodGet, "/admin/products/"+a.ID.Hex()+"/stock-events?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.admin(http.MethodGet, "/admin/sales", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"productKey":"p1"`)
}

func TestSitemapAndHealth(t *testing.T) {
	s := newServer(t)
	s.seed("milk", 30, 5)

	w := s.do(http.MethodGet, "/sitemap.xml", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, body, `<loc>https://jgs.example/</loc>`)
	assert.Contains(t, body, `<url><loc>https://jgs.example/products/milk</loc><lastmod>2024-05-01</lastmod></url>`)

	w = s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminDisabledWithoutCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := &memoryCatalog{}
	r := NewRouter(RouterConfig{
		Store:   NewStoreHandler(catalog, nil, nil, nil, nil),
		Admin:   NewAdminHandler(catalog, &memorySales{}, &memoryEvents{}, nil),
		Sitemap: NewSitemapHandler(catalog, "", nil),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/products", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// reservingCatalog takes stock right after the admin handler has read the
// product, as a checkout running at the same moment would.
type reservingCatalog struct {
	*memoryCatalog
	take int
}

func (r *reservingCatalog) Get(ctx context.Context, id string) (*core.Product, error) {
	p, err := r.memoryCatalog.Get(ctx, id)
	if err == nil && r.take > 0 {
		_, _ = r.memoryCatalog.DecrementIfAvailable(ctx, inventory.Identity{ID: id}, r.take)
	}
	return p, err
}

func newAdminRouter(catalog *reservingCatalog, events *memoryEvents) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAdminHandler(catalog, &memorySales{}, events, nil).Register(r, adminUser, adminPassword)
	return r
}

func adminPut(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(adminUser, adminPassword)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminStockEditKeepsConcurrentReservation(t *testing.T) {
	catalog := &reservingCatalog{memoryCatalog: &memoryCatalog{}, take: 2}
	p := catalog.add(core.Product{Title: "Milk", Slug: "milk", Category: "Dairy", Price: 30, Stock: 5, StockVersion: 1})
	events := &memoryEvents{}
	r := newAdminRouter(catalog, events)

	// The admin saw 5 and asks for 8; the 2 units reserved meanwhile stay taken.
	w := adminPut(r, "/admin/products/"+p.ID.Hex(), `{"title":"Milk","slug":"milk","category":"Dairy","price":30,"stock":8}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 6, decode[core.Product](t, w).Stock)
	assert.Equal(t, 6, catalog.stockOf("milk"))

	require.Len(t, events.events, 1)
	assert.Equal(t, inventory.EventStockAdded, events.events[0].Type)
	assert.Equal(t, 3, events.events[0].Qty)
	assert.Equal(t, 3, events.events[0].Version)
}

func TestAdminStockDecreaseBelowZeroConflicts(t *testing.T) {
	catalog := &reservingCatalog{memoryCatalog: &memoryCatalog{}, take: 4}
	p := catalog.add(core.Product{Title: "Milk", Slug: "milk", Category: "Dairy", Price: 30, Stock: 5})
	events := &memoryEvents{}
	r := newAdminRouter(catalog, events)

	w := adminPut(r, "/admin/products/"+p.ID.Hex(), `{"title":"Milk","slug":"milk","category":"Dairy","price":30,"stock":0}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, catalog.stockOf("milk"))
	assert.Empty(t, events.events)
}

func TestAdminEditWithoutStockChangeWritesNoEvent(t *testing.T) {
	catalog := &reservingCatalog{memoryCatalog: &memoryCatalog{}}
	p := catalog.add(core.Product{Title: "Milk", Slug: "milk", Category: "Dairy", Price: 30, Stock: 5, StockVersion: 1})
	events := &memoryEvents{}
	r := newAdminRouter(catalog, events)

	w := adminPut(r, "/admin/products/"+p.ID.Hex(), `{"title":"Toned Milk","slug":"milk","category":"Dairy","price":32,"stock":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 32.0, decode[core.Product](t, w).Price)
	assert.Empty(t, events.events)
}
