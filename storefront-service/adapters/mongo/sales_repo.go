package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Pranjal-Rawat/Jackson-G-Store/storefront-service/core"
)

// SalesViewCollection is written by the projector service.
const SalesViewCollection = "sales_view"

type MongoSalesViewRepository struct {
	Collection *mongo.Collection
}

func NewMongoSalesViewRepository(db *mongo.Database) *MongoSalesViewRepository {
	return &MongoSalesViewRepository{Collection: db.Collection(SalesViewCollection)}
}

// List returns the best sellers first.
func (r *MongoSalesViewRepository) List(ctx context.Context) ([]core.SalesRow, error) {
	opts := options.Find().SetSort(bson.D{{Key: "units_reserved", Value: -1}, {Key: "product_key", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	rows := []core.SalesRow{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
