package mongo

import (
	"context"
	"fmt"

	"github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const EventsCollection = "stock_events"

type EventRepository struct {
	Collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		Collection: db.Collection(EventsCollection),
	}
}

// EnsureIndexes makes (stream_id, version) unique so two writers can never
// record the same stock version twice.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stream_id", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create stock event index: %w", err)
	}
	return nil
}

func (r *EventRepository) AppendEvent(ctx context.Context, event core.StockEvent) error {
	_, err := r.Collection.InsertOne(ctx, event)
	return err
}

// GetEvents returns a product's stream, newest first, at most limit
// entries (all when limit <= 0).
func (r *EventRepository) GetEvents(ctx context.Context, streamID string, limit int64) ([]core.StockEvent, error) {
	filter := bson.M{"stream_id": streamID}
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	events := []core.StockEvent{}
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
