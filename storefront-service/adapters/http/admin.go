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

// AdminHandler is the product back-office. Every route sits behind HTTP
// basic auth.
type AdminHandler struct {
	Products ports.ProductRepository
	Sales    ports.SalesViewRepository
	Events   ports.StockEventLog
	Logger   *zap.Logger
	Timeout  time.Duration
}

func NewAdminHandler(products ports.ProductRepository, sales ports.SalesViewRepository, events ports.StockEventLog, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{Products: products, Sales: sales, Events: events, Logger: logger, Timeout: 5 * time.Second}
}

func (h *AdminHandler) Register(r gin.IRouter, username, password string) {
	admin := r.Group("/admin", gin.BasicAuth(gin.Accounts{username: password}))
	admin.GET("/products", h.ListProducts)
	admin.POST("/products", h.CreateProduct)
	admin.GET("/products/:id", h.GetProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.GET("/products/:id/stock-events", h.StockEvents)
	admin.GET("/sales", h.SalesView)
}

func (h *AdminHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.Timeout)
}

func (h *AdminHandler) fail(c *gin.Context, msg string, err error) {
	h.Logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
}

// productError maps repository sentinels to responses.
func (h *AdminHandler) productError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, core.ErrDuplicateSlug), errors.Is(err, core.ErrStockConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.fail(c, msg, err)
	}
}

func (h *AdminHandler) ListProducts(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	page, status, err := listProducts(ctx, c, h.Products)
	switch {
	case status == http.StatusBadRequest:
		c.JSON(status, gin.H{"error": err.Error()})
	case err != nil:
		h.fail(c, "admin list products", err)
	default:
		c.JSON(http.StatusOK, page)
	}
}

func bindProduct(c *gin.Context) (core.ProductInput, bool) {
	var in core.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return in, false
	}
	return in, true
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	in, ok := bindProduct(c)
	if !ok {
		return
	}
	var product core.Product
	in.Apply(&product)
	if product.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must contain letters or digits"})
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.Products.Create(ctx, &product); err != nil {
		h.productError(c, "create product", err)
		return
	}
	if product.Stock > 0 {
		h.recordStock(ctx, inventory.StockChange{
			StreamID: product.ID.Hex(),
			Version:  product.StockVersion,
			Stock:    product.Stock,
		}, product.Stock)
	}
	h.Logger.Info("product created", zap.String("id", product.ID.Hex()), zap.String("slug", product.Slug))
	c.JSON(http.StatusCreated, product)
}

func (h *AdminHandler) GetProduct(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	product, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		h.productError(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	in, ok := bindProduct(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	product, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		h.productError(c, "get product", err)
		return
	}
	seen := product.Stock
	in.Apply(product)
	if product.Slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must contain letters or digits"})
		return
	}

	// The form carries the stock the admin wants; apply only the
	// difference to what was read so concurrent reservations survive.
	if delta := product.Stock - seen; delta != 0 {
		change, err := h.Products.AdjustStock(ctx, product.ID.Hex(), delta)
		if err != nil {
			h.productError(c, "adjust stock", err)
			return
		}
		product.Stock = change.Stock
		product.StockVersion = change.Version
		h.recordStock(ctx, *change, delta)
	}
	if err := h.Products.Update(ctx, product); err != nil {
		h.productError(c, "update product", err)
		return
	}
	h.Logger.Info("product updated", zap.String("id", product.ID.Hex()), zap.Int("stock", product.Stock))
	c.JSON(http.StatusOK, product)
}

// recordStock appends the StockAdded or StockRemoved event for an admin
// stock change. The stock is already written, so a failed append is only
// logged.
func (h *AdminHandler) recordStock(ctx context.Context, change inventory.StockChange, delta int) {
	event := inventory.StockEvent{
		StreamID:  change.StreamID,
		Version:   change.Version,
		Type:      inventory.EventStockAdded,
		Qty:       delta,
		Timestamp: time.Now().UTC(),
	}
	if delta < 0 {
		event.Type = inventory.EventStockRemoved
		event.Qty = -delta
	}
	if err := h.Events.AppendEvent(ctx, event); err != nil {
		h.Logger.Warn("failed to append stock event",
			zap.String("stream_id", change.StreamID),
			zap.Int("version", change.Version),
			zap.Error(err),
		)
	}
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.Products.Delete(ctx, c.Param("id")); err != nil {
		h.productError(c, "delete product", err)
		return
	}
	h.Logger.Info("product deleted", zap.String("id", c.Param("id")))
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) StockEvents(c *gin.Context) {
	limit := int64(50)
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	ctx, cancel := h.context(c)
	defer cancel()

	events, err := h.Events.GetEvents(ctx, c.Param("id"), limit)
	if err != nil {
		h.fail(c, "stock events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *AdminHandler) SalesView(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	rows, err := h.Sales.List(ctx)
	if err != nil {
		h.fail(c, "sales view", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": rows})
}
