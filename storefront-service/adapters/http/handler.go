package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

const internalError = "Internal server error"

// StoreHandler serves the public storefront API.
type StoreHandler struct {
	Products ports.ProductRepository
	Stock    ports.StockReserver
	Verifier ports.OrderVerifier
	Checkout ports.Checkouter
	Logger   *zap.Logger
	Timeout  time.Duration
}

func NewStoreHandler(products ports.ProductRepository, stock ports.StockReserver, verifier ports.OrderVerifier, checkout ports.Checkouter, logger *zap.Logger) *StoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreHandler{
		Products: products,
		Stock:    stock,
		Verifier: verifier,
		Checkout: checkout,
		Logger:   logger,
		Timeout:  5 * time.Second,
	}
}

func (h *StoreHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/products", h.ListProducts)
	api.GET("/products/:slug", h.GetProduct)
	api.GET("/categories", h.ListCategories)
	api.POST("/stock/reserve", h.ReserveStock)
	api.POST("/orders/verify", h.VerifyOrder)
	api.POST("/checkout", h.CheckoutOrder)
}

func (h *StoreHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.Timeout)
}

func (h *StoreHandler) fail(c *gin.Context, msg string, err error) {
	h.Logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
}

func parseQuery(c *gin.Context) (core.ProductQuery, error) {
	q := core.ProductQuery{Search: c.Query("q"), Category: c.Query("category")}
	var err error
	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.ParseInt(v, 10, 64); err != nil {
			return q, errors.New("limit must be an integer")
		}
	}
	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.ParseInt(v, 10, 64); err != nil {
			return q, errors.New("page must be an integer")
		}
	}
	return q.Normalize(), nil
}

func listProducts(ctx context.Context, c *gin.Context, repo ports.ProductRepository) (core.ProductPage, int, error) {
	q, err := parseQuery(c)
	if err != nil {
		return core.ProductPage{}, http.StatusBadRequest, err
	}
	items, total, err := repo.List(ctx, q)
	if err != nil {
		return core.ProductPage{}, http.StatusInternalServerError, err
	}
	return core.ProductPage{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, http.StatusOK, nil
}

func (h *StoreHandler) ListProducts(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	page, status, err := listProducts(ctx, c, h.Products)
	switch {
	case status == http.StatusBadRequest:
		c.JSON(status, gin.H{"error": err.Error()})
	case err != nil:
		h.fail(c, "list products", err)
	default:
		c.JSON(http.StatusOK, page)
	}
}

func (h *StoreHandler) GetProduct(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	product, err := h.Products.GetBySlug(ctx, c.Param("slug"))
	if errors.Is(err, core.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		h.fail(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *StoreHandler) ListCategories(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	categories, err := h.Products.Categories(ctx)
	if err != nil {
		h.fail(c, "list categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type reserveRequest struct {
	CartItems []inventory.StockRequest `json:"cartItems"`
}

// ReserveStock answers 200 when every line was reserved and 409 with the
// understocked lines otherwise. Lines listed under "reserved" in a 409
// have already been taken and must not be resubmitted.
func (h *StoreHandler) ReserveStock(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cartItems must be an array"})
		return
	}
	if len(req.CartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	result, err := h.Stock.Reserve(ctx, req.CartItems)
	if errors.Is(err, inventory.ErrEmptyCart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}
	if err != nil {
		h.fail(c, "reserve stock", err)
		return
	}
	if !result.OK() {
		c.JSON(http.StatusConflict, gin.H{
			"ok":           false,
			"error":        core.ErrUnderstocked.Error(),
			"understocked": result.Understocked,
			"reserved":     result.Reserved,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// orderError writes the response for errors shared by verify and checkout.
// It reports false for errors it does not know.
func orderError(c *gin.Context, err error) bool {
	var unknown *core.UnknownProductError
	switch {
	case errors.As(err, &unknown):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "item": unknown.Item})
	case errors.Is(err, inventory.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	default:
		return false
	}
	return true
}

func bindOrder(c *gin.Context) (core.OrderRequest, bool) {
	var req core.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Body"})
		return req, false
	}
	if len(req.CartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return req, false
	}
	return req, true
}

func (h *StoreHandler) VerifyOrder(c *gin.Context) {
	req, ok := bindOrder(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	order, err := h.Verifier.Verify(ctx, req)
	if err != nil {
		if !orderError(c, err) {
			h.fail(c, "verify order", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order, "link": order.Link})
}

// CheckoutOrder verifies and reserves in one call. Unlike the other
// handlers it runs on the request context alone because a workflow run
// can outlive the default timeout.
func (h *StoreHandler) CheckoutOrder(c *gin.Context) {
	req, ok := bindOrder(c)
	if !ok {
		return
	}

	result, err := h.Checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		if !orderError(c, err) {
			h.fail(c, "checkout", err)
		}
		return
	}
	if !result.Reservation.OK() {
		c.JSON(http.StatusConflict, gin.H{
			"ok":           false,
			"error":        core.ErrUnderstocked.Error(),
			"understocked": result.Reservation.Understocked,
			"reserved":     result.Reservation.Reserved,
			"order":        result.Order,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": result.Order, "link": result.Order.Link})
}
