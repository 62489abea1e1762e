package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	stockAdapter "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/adapters/mongo"
	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/ports"
)

var _ ports.ProductRepository = (*MongoProductRepository)(nil)

type MongoProductRepository struct {
	Collection *mongo.Collection
	Now        func() time.Time
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		Collection: db.Collection(stockAdapter.ProductsCollection),
		Now:        time.Now,
	}
}

// EnsureIndexes makes slugs unique and speeds up category browsing.
func (r *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	return nil
}

func listFilter(q core.ProductQuery) bson.M {
	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"category": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

// List returns one page, newest first, and the number of matches.
func (r *MongoProductRepository) List(ctx context.Context, q core.ProductQuery) ([]core.Product, int64, error) {
	q = q.Normalize()
	filter := listFilter(q)

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	products := []core.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *MongoProductRepository) findOne(ctx context.Context, filter interface{}) (*core.Product, error) {
	var product core.Product
	err := r.Collection.FindOne(ctx, filter).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, core.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *MongoProductRepository) GetBySlug(ctx context.Context, slug string) (*core.Product, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

// FindByIdentity matches the same way the stock decrement does.
func (r *MongoProductRepository) FindByIdentity(ctx context.Context, id inventory.Identity) (*core.Product, error) {
	filter, ok := stockAdapter.IdentityFilter(id)
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return r.findOne(ctx, filter)
}

func (r *MongoProductRepository) Get(ctx context.Context, id string) (*core.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, core.ErrInvalidID
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoProductRepository) Create(ctx context.Context, p *core.Product) error {
	now := r.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.StockVersion = 0
	if p.Stock > 0 {
		p.StockVersion = 1
	}

	if _, err := r.Collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

// Update overwrites the editable fields. Stock is left alone; it changes
// through AdjustStock.
func (r *MongoProductRepository) Update(ctx context.Context, p *core.Product) error {
	p.UpdatedAt = r.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"productId":   p.ProductID,
			"title":       p.Title,
			"slug":        p.Slug,
			"description": p.Description,
			"category":    p.Category,
			"price":       p.Price,
			"mrp":         p.MRP,
			"image":       p.Image,
			"options":     p.Options,
			"updatedAt":   p.UpdatedAt,
		},
	}

	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

// AdjustStock adds delta to the stock and bumps stockVersion in one
// findAndModify, so reservations made meanwhile are kept. A decrease larger
// than the current stock returns core.ErrStockConflict.
func (r *MongoProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*inventory.StockChange, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, core.ErrInvalidID
	}
	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta, "stockVersion": 1},
		"$set": bson.M{"updatedAt": r.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"stock": 1, "stockVersion": 1})

	var doc struct {
		Stock        int `bson:"stock"`
		StockVersion int `bson:"stockVersion"`
	}
	err = r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if delta < 0 {
			return nil, core.ErrStockConflict
		}
		return nil, core.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inventory.StockChange{StreamID: oid.Hex(), Version: doc.StockVersion, Stock: doc.Stock}, nil
}

func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.ErrInvalidID
	}
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

func (r *MongoProductRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := r.Collection.Distinct(ctx, "category", bson.M{"category": bson.M{"$ne": ""}})
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

// Slugs returns every product with only slug and updatedAt set.
func (r *MongoProductRepository) Slugs(ctx context.Context) ([]core.Product, error) {
	opts := options.Find().
		SetProjection(bson.M{"slug": 1, "updatedAt": 1}).
		SetSort(bson.D{{Key: "slug", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	products := []core.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}
