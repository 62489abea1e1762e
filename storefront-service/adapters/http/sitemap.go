package http

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type SitemapHandler struct {
	Products ports.ProductRepository
	BaseURL  string
	Logger   *zap.Logger
}

func NewSitemapHandler(products ports.ProductRepository, baseURL string, logger *zap.Logger) *SitemapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SitemapHandler{Products: products, BaseURL: baseURL, Logger: logger}
}

// Sitemap lists the home page and one URL per product.
func (h *SitemapHandler) Sitemap(c *gin.Context) {
	products, err := h.Products.Slugs(c.Request.Context())
	if err != nil {
		h.Logger.Error("sitemap", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
		return
	}

	set := urlset{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  []sitemapURL{{Loc: h.BaseURL + "/"}},
	}
	for _, p := range products {
		u := sitemapURL{Loc: h.BaseURL + "/products/" + p.Slug}
		if !p.UpdatedAt.IsZero() {
			u.LastMod = p.UpdatedAt.UTC().Format(time.DateOnly)
		}
		set.URLs = append(set.URLs, u)
	}
	c.XML(http.StatusOK, set)
}
