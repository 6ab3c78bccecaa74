// Package events emits domain events to an external broker. This service
// only publishes; fulfillment and notification consumers live elsewhere.
package events

import (
	"context"
	"time"
)

// TopicOrderPlaced is the channel name order events are published on.
const TopicOrderPlaced = "orders.placed"

// OrderPlaced announces a committed checkout. It carries only the header
// fields a downstream consumer needs to fetch the full order.
type OrderPlaced struct {
	OrderID    int       `json:"orderId"`
	UserID     int       `json:"userId"`
	TotalCents int64     `json:"totalCents"`
	OrderedAt  time.Time `json:"orderedAt"`
}

// Publisher sends order events to the configured broker. Implementations
// return the broker-assigned message id.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlaced) (string, error)
	Close() error
}
