package mongo

import (
	"context"
	"errors"

	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ProductsCollection = "products"

type StockRepository struct {
	Collection *mongo.Collection
}

func NewStockRepository(db *mongo.Database) ports.StockRepository {
	return &StockRepository{
		Collection: db.Collection(ProductsCollection),
	}
}

// IdentityFilter matches a product by any of the identity fields. id and
// _id values that parse as ObjectIDs also match the document _id. ok is
// false for an empty identity.
func IdentityFilter(id core.Identity) (bson.M, bool) {
	var or bson.A
	for _, v := range []string{id.ID, id.ObjectID} {
		if v == "" {
			continue
		}
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			or = append(or, bson.M{"_id": oid})
		}
		or = append(or, bson.M{"productId": v})
	}
	if id.ProductID != "" {
		or = append(or, bson.M{"productId": id.ProductID})
	}
	if id.Slug != "" {
		or = append(or, bson.M{"slug": id.Slug})
	}
	if len(or) == 0 {
		return nil, false
	}
	return bson.M{"$or": or}, true
}

// DecrementIfAvailable runs the match, the stock check and the decrement
// as a single findAndModify, so concurrent callers cannot both take the
// last unit.
func (r *StockRepository) DecrementIfAvailable(ctx context.Context, id core.Identity, qty int) (*core.StockChange, error) {
	filter, ok := IdentityFilter(id)
	if !ok {
		return nil, nil
	}
	filter["stock"] = bson.M{"$gte": qty}

	update := bson.M{"$inc": bson.M{"stock": -qty, "stockVersion": 1}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"stock": 1, "stockVersion": 1})

	var doc struct {
		ID           primitive.ObjectID `bson:"_id"`
		Stock        int                `bson:"stock"`
		StockVersion int                `bson:"stockVersion"`
	}
	err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &core.StockChange{
		StreamID: doc.ID.Hex(),
		Version:  doc.StockVersion,
		Stock:    doc.Stock,
	}, nil
}
