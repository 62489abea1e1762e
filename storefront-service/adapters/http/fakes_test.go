package http

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
)

// memoryCatalog is a products collection in a slice. It also implements
// the stock decrement so the reservation path can run against it.
type memoryCatalog struct {
	mu       sync.Mutex
	products []*core.Product
	err      error
}

func (m *memoryCatalog) add(p core.Product) *core.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.products = append(m.products, &p)
	return &p
}

func (m *memoryCatalog) stockOf(slug string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return p.Stock
		}
	}
	return -1
}

func matches(p *core.Product, id inventory.Identity) bool {
	hex := p.ID.Hex()
	return (id.ID != "" && (id.ID == hex || id.ID == p.ProductID)) ||
		(id.ObjectID != "" && (id.ObjectID == hex || id.ObjectID == p.ProductID)) ||
		(id.ProductID != "" && id.ProductID == p.ProductID) ||
		(id.Slug != "" && id.Slug == p.Slug)
}

func (m *memoryCatalog) DecrementIfAvailable(ctx context.Context, id inventory.Identity, qty int) (*inventory.StockChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if matches(p, id) && p.Stock >= qty {
			p.Stock -= qty
			p.StockVersion++
			return &inventory.StockChange{StreamID: p.ID.Hex(), Version: p.StockVersion, Stock: p.Stock}, nil
		}
	}
	return nil, nil
}

func (m *memoryCatalog) List(ctx context.Context, q core.ProductQuery) ([]core.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	q = q.Normalize()
	var hits []core.Product
	for _, p := range m.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Search)) {
			continue
		}
		hits = append(hits, *p)
	}
	total := int64(len(hits))
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return append([]core.Product{}, hits[start:end]...), total, nil
}

func (m *memoryCatalog) find(pred func(*core.Product) bool) (*core.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if pred(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, core.ErrProductNotFound
}

func (m *memoryCatalog) GetBySlug(ctx context.Context, slug string) (*core.Product, error) {
	return m.find(func(p *core.Product) bool { return p.Slug == slug })
}

func (m *memoryCatalog) FindByIdentity(ctx context.Context, id inventory.Identity) (*core.Product, error) {
	return m.find(func(p *core.Product) bool { return matches(p, id) })
}

func (m *memoryCatalog) Get(ctx context.Context, id string) (*core.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, core.ErrInvalidID
	}
	return m.find(func(p *core.Product) bool { return p.ID == oid })
}

func (m *memoryCatalog) Create(ctx context.Context, p *core.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.Slug == p.Slug {
			return core.ErrDuplicateSlug
		}
	}
	p.ID = primitive.NewObjectID()
	p.StockVersion = 0
	if p.Stock > 0 {
		p.StockVersion = 1
	}
	cp := *p
	m.products = append(m.products, &cp)
	return nil
}

func (m *memoryCatalog) AdjustStock(ctx context.Context, id string, delta int) (*inventory.StockChange, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, core.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID != oid {
			continue
		}
		if p.Stock+delta < 0 {
			return nil, core.ErrStockConflict
		}
		p.Stock += delta
		p.StockVersion++
		return &inventory.StockChange{StreamID: p.ID.Hex(), Version: p.StockVersion, Stock: p.Stock}, nil
	}
	return nil, core.ErrProductNotFound
}

func (m *memoryCatalog) Update(ctx context.Context, p *core.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.products {
		if existing.ID == p.ID {
			cp := *p
			cp.Stock = existing.Stock
			cp.StockVersion = existing.StockVersion
			m.products[i] = &cp
			return nil
		}
	}
	return core.ErrProductNotFound
}

func (m *memoryCatalog) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.products {
		if p.ID == oid {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return core.ErrProductNotFound
}

func (m *memoryCatalog) Categories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, p := range m.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryCatalog) Slugs(ctx context.Context) ([]core.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []core.Product{}
	for _, p := range m.products {
		out = append(out, core.Product{ID: p.ID, Slug: p.Slug, UpdatedAt: p.UpdatedAt})
	}
	return out, nil
}

type memorySales struct {
	rows []core.SalesRow
}

func (m *memorySales) List(ctx context.Context) ([]core.SalesRow, error) {
	return m.rows, nil
}

type memoryEvents struct {
	events []inventory.StockEvent
}

func (m *memoryEvents) AppendEvent(ctx context.Context, e inventory.StockEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memoryEvents) GetEvents(ctx context.Context, streamID string, limit int64) ([]inventory.StockEvent, error) {
	out := []inventory.StockEvent{}
	for i := len(m.events) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.events[i].StreamID == streamID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}
