package core

import "time"

// Event type names.
const (
	EventStockReserved = "StockReserved"
	EventStockReleased = "StockReleased"
	EventStockAdded    = "StockAdded"
	EventStockRemoved  = "StockRemoved"
)

// StockEvent is an entry of the per-product stock stream kept in MongoDB.
// Version is the product's stockVersion after the change, so (StreamID,
// Version) is unique and increases with every write to the counter.
type StockEvent struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Version   int       `bson:"version" json:"version"`
	StreamID  string    `bson:"stream_id" json:"streamId"` // product _id (hex)
	Type      string    `bson:"type" json:"type"`
	Qty       int       `bson:"qty" json:"qty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// StockChange identifies the write a successful decrement made.
type StockChange struct {
	StreamID string
	Version  int
	Stock    int // remaining after the change
}

// Delta is the signed effect of the event on available stock.
func (e StockEvent) Delta() int {
	switch e.Type {
	case EventStockReserved, EventStockRemoved:
		return -e.Qty
	case EventStockReleased, EventStockAdded:
		return e.Qty
	}
	return 0
}
