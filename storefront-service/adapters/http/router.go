package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pranjal-Rawat/Jackson-G-Store/platform/logging"
)

// RouterConfig collects the handlers mounted by NewRouter. Admin is
// optional; without it the back-office is not served.
type RouterConfig struct {
	Store         *StoreHandler
	Admin         *AdminHandler
	Sitemap       *SitemapHandler
	AdminUser     string
	AdminPassword string
	Logger        *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	cfg.Store.Register(r)
	r.GET("/sitemap.xml", cfg.Sitemap.Sitemap)
	if cfg.Admin != nil && cfg.AdminUser != "" {
		cfg.Admin.Register(r, cfg.AdminUser, cfg.AdminPassword)
	} else {
		logger.Warn("admin credentials not set, back-office disabled")
	}
	return r
}
