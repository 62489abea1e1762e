package core

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSlug   = errors.New("slug already in use")
	ErrInvalidID       = errors.New("invalid product id")
	ErrStockConflict   = errors.New("stock changed, reload and retry")
)

// Product is a document of the products collection. Stock only moves
// through $inc: reservations take from it and admin edits apply the
// difference to what the admin last saw.
type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ProductID    string             `bson:"productId,omitempty" json:"productId,omitempty"`
	Title        string             `bson:"title" json:"title"`
	Slug         string             `bson:"slug" json:"slug"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Category     string             `bson:"category" json:"category"`
	Price        float64            `bson:"price" json:"price"`
	MRP          float64            `bson:"mrp,omitempty" json:"mrp,omitempty"`
	Stock        int                `bson:"stock" json:"stock"`
	StockVersion int                `bson:"stockVersion" json:"-"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	Options      []string           `bson:"options,omitempty" json:"options,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductInput is the admin create/update form. Image is the URL returned
// by the hosted upload widget.
type ProductInput struct {
	ProductID   string   `json:"productId" binding:"omitempty,max=64"`
	Title       string   `json:"title" binding:"required,max=200"`
	Slug        string   `json:"slug" binding:"omitempty,max=200"`
	Description string   `json:"description" binding:"max=5000"`
	Category    string   `json:"category" binding:"required,max=100"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	MRP         float64  `json:"mrp" binding:"gte=0"`
	Stock       *int     `json:"stock" binding:"required,gte=0"`
	Image       string   `json:"image" binding:"omitempty,url"`
	Options     []string `json:"options" binding:"omitempty,max=20,dive,max=50"`
}

// Apply copies the form onto p. The slug falls back to the title.
func (in ProductInput) Apply(p *Product) {
	p.ProductID = strings.TrimSpace(in.ProductID)
	p.Title = strings.TrimSpace(in.Title)
	p.Slug = Slugify(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(in.Title)
	}
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	if in.Price != nil {
		p.Price = *in.Price
	}
	p.MRP = in.MRP
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	p.Image = in.Image
	p.Options = in.Options
}

// Slugify lower-cases s and joins its letter and digit runs with "-".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}

// ProductQuery drives the catalog listing.
type ProductQuery struct {
	Search   string
	Category string
	Limit    int64
	Page     int64
}

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// Normalize clamps Limit to (0, MaxPageSize] and Page to >= 1.
func (q ProductQuery) Normalize() ProductQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	return q
}

type ProductPage struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int64     `json:"page"`
	Limit int64     `json:"limit"`
}

// SalesRow is one product of the projected sales view.
type SalesRow struct {
	ProductKey     string    `bson:"product_key" json:"productKey"`
	UnitsReserved  int       `bson:"units_reserved" json:"unitsReserved"`
	Reservations   int       `bson:"reservations" json:"reservations"`
	UnitsRestocked int       `bson:"units_restocked" json:"unitsRestocked"`
	LastVersion    int       `bson:"last_version" json:"lastVersion"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
}
