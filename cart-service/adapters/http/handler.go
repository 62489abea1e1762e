package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/ports"
	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/store"
)

const (
	CookieName   = "jgs_cart"
	cookieMaxAge = 30 * 24 * time.Hour
)

// CartHandler serves the cart of the browser identified by the jgs_cart
// cookie. Each request loads the cart, applies one mutation and saves it,
// so two tabs writing at once resolve as last write wins.
type CartHandler struct {
	Persister ports.Persister
	Logger    *zap.Logger
}

func NewCartHandler(persister ports.Persister, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{Persister: persister, Logger: logger}
}

func (h *CartHandler) Register(r gin.IRouter) {
	g := r.Group("/cart")
	g.GET("", h.GetCart)
	g.DELETE("", h.ClearCart)
	g.POST("/items", h.AddItem)
	g.PATCH("/items/:id", h.UpdateQuantity)
	g.DELETE("/items/:id", h.RemoveItem)
	g.GET("/virtual-stock/:id", h.VirtualStock)
}

// cookieKey returns the browser's cart key, minting one on first visit.
func cookieKey(c *gin.Context) string {
	key, err := c.Cookie(CookieName)
	if err != nil || uuid.Validate(key) != nil {
		key = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, key, int(cookieMaxAge.Seconds()), "/", "", false, true)
	}
	return key
}

// cart opens the store for this browser. When the stored cart cannot be
// read it answers 503 and returns false; nothing is written.
func (h *CartHandler) cart(c *gin.Context) (*store.Store, bool) {
	key := cookieKey(c)
	s, err := store.New(c.Request.Context(), h.Persister, key, h.Logger)
	if err != nil {
		h.Logger.Error("open cart", zap.String("cart", key), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart temporarily unavailable"})
		return nil, false
	}
	return s, true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	s, ok := h.cart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.State())
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var p core.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Body"})
		return
	}

	s, ok := h.cart(c)
	if !ok {
		return
	}
	state, err := s.Add(c.Request.Context(), p)
	if errors.Is(err, core.ErrMissingIdentity) || errors.Is(err, core.ErrInvalidPrice) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error("add to cart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}
	s, ok := h.cart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	s, ok := h.cart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Remove(c.Request.Context(), c.Param("id")))
}

// ClearCart does not need the old cart, so it also recovers a cart whose
// stored value can no longer be read.
func (h *CartHandler) ClearCart(c *gin.Context) {
	key := cookieKey(c)
	state := core.Empty()
	if err := h.Persister.Save(c.Request.Context(), key, state); err != nil {
		h.Logger.Warn("cart save failed", zap.String("cart", key), zap.Error(err))
	}
	c.JSON(http.StatusOK, state)
}

func (h *CartHandler) VirtualStock(c *gin.Context) {
	serverStock, err := strconv.Atoi(c.Query("serverStock"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serverStock must be an integer"})
		return
	}
	s, ok := h.cart(c)
	if !ok {
		return
	}
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"id":           id,
		"serverStock":  serverStock,
		"virtualStock": s.VirtualStock(id, serverStock),
	})
}
