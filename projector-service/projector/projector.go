package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	inventory "github.com/Pranjal-Rawat/Jackson-G-Store/inventory-service/core"
)

const (
	SalesViewCollection   = "sales_view"
	CheckpointsCollection = "checkpoints"
	DefaultName           = "sales_projector"
)

// Checkpoint stores the resume token of the last handled change.
type Checkpoint struct {
	ID          string   `bson:"_id"`
	ResumeToken bson.Raw `bson:"resume_token"`
}

// Projector folds the stock event stream into the sales view.
type Projector struct {
	Events      *mongo.Collection
	View        *mongo.Collection
	Checkpoints *mongo.Collection
	Name        string
	Logger      *zap.Logger
	Timeout     time.Duration
	Now         func() time.Time
}

func New(db *mongo.Database, events string, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		Events:      db.Collection(events),
		View:        db.Collection(SalesViewCollection),
		Checkpoints: db.Collection(CheckpointsCollection),
		Name:        DefaultName,
		Logger:      logger,
		Timeout:     5 * time.Second,
		Now:         time.Now,
	}
}

func (p *Projector) EnsureIndexes(ctx context.Context) error {
	_, err := p.View.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "product_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create sales view index: %w", err)
	}
	return nil
}

// increments is the view change an event causes, nil for types the view
// ignores.
func increments(event inventory.StockEvent) bson.M {
	switch event.Type {
	case inventory.EventStockReserved:
		return bson.M{"units_reserved": -event.Delta(), "reservations": 1}
	case inventory.EventStockReleased:
		return bson.M{"units_reserved": -event.Delta()}
	case inventory.EventStockAdded, inventory.EventStockRemoved:
		return bson.M{"units_restocked": event.Delta()}
	}
	return nil
}

// ProcessEvent applies one event to the view exactly once. Each row keeps
// the versions it has applied, so events are deduplicated by identity and
// may arrive in any order: two reservations appended concurrently can land
// in the stream with their versions swapped.
func (p *Projector) ProcessEvent(ctx context.Context, event inventory.StockEvent) error {
	inc := increments(event)
	if inc == nil {
		return nil
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	log := p.Logger.With(
		zap.String("product", event.StreamID),
		zap.String("type", event.Type),
		zap.Int("version", event.Version),
	)
	filter := bson.M{
		"product_key":      event.StreamID,
		"applied_versions": bson.M{"$ne": event.Version},
	}
	update := bson.M{
		"$inc":      inc,
		"$addToSet": bson.M{"applied_versions": event.Version},
		"$max":      bson.M{"last_version": event.Version},
		"$set":      bson.M{"updated_at": p.Now()},
	}

	// With upsert the first event creates the row. When the row already
	// holds this version the filter misses, the upsert collides with the
	// unique product_key and the event is known to be applied.
	_, err := p.View.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent first insert also collides; retry against the row
		// that now exists.
		var res *mongo.UpdateResult
		res, err = p.View.UpdateOne(ctx, filter, update)
		if err == nil && res.MatchedCount == 0 {
			log.Debug("event already applied")
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("update sales view: %w", err)
	}

	log.Debug("sales view updated")
	return nil
}

// LoadCheckpoint returns the stored resume token, or nil when the projector
// has never saved one.
func (p *Projector) LoadCheckpoint(ctx context.Context) (bson.Raw, error) {
	var cp Checkpoint
	err := p.Checkpoints.FindOne(ctx, bson.M{"_id": p.Name}).Decode(&cp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp.ResumeToken, nil
}

func (p *Projector) SaveCheckpoint(ctx context.Context, token bson.Raw) error {
	_, err := p.Checkpoints.UpdateOne(ctx,
		bson.M{"_id": p.Name},
		bson.M{"$set": bson.M{"resume_token": token}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// streamOptions resumes after token, or replays the whole oplog when there
// is none.
func streamOptions(token bson.Raw) *options.ChangeStreamOptions {
	opts := options.ChangeStream()
	if token != nil {
		return opts.SetResumeAfter(token)
	}
	startOfTime := primitive.Timestamp{T: 1, I: 0}
	return opts.SetStartAtOperationTime(&startOfTime)
}

// Run watches inserts on the event collection until ctx is done or the
// stream fails. A failed event is logged and the checkpoint still moves on.
func (p *Projector) Run(ctx context.Context) error {
	token, err := p.LoadCheckpoint(ctx)
	if err != nil {
		return err
	}
	if token != nil {
		p.Logger.Info("resuming from checkpoint", zap.String("projector", p.Name))
	} else {
		p.Logger.Info("no checkpoint, replaying from the beginning", zap.String("projector", p.Name))
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	stream, err := p.Events.Watch(ctx, pipeline, streamOptions(token))
	if err != nil {
		return fmt.Errorf("watch %s: %w", p.Events.Name(), err)
	}
	defer func() { _ = stream.Close(context.Background()) }()

	p.Logger.Info("watching for events", zap.String("collection", p.Events.Name()))
	for stream.Next(ctx) {
		var change struct {
			ID           bson.Raw             `bson:"_id"`
			FullDocument inventory.StockEvent `bson:"fullDocument"`
		}
		if err := stream.Decode(&change); err != nil {
			p.Logger.Warn("decode change", zap.Error(err))
			continue
		}

		if err := p.ProcessEvent(ctx, change.FullDocument); err != nil {
			p.Logger.Error("process event",
				zap.String("product", change.FullDocument.StreamID),
				zap.Int("version", change.FullDocument.Version),
				zap.Error(err),
			)
		}
		if err := p.SaveCheckpoint(ctx, change.ID); err != nil {
			p.Logger.Warn("checkpoint not saved", zap.Error(err))
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}
