package types

import "time"

// Order is an immutable record of a completed checkout. The total and every
// line price are computed server-side when the order is created and never
// recomputed from the catalog afterwards.
type Order struct {
	ID         int         `json:"orderId" db:"id"`
	UserID     int         `json:"userId" db:"user_id"`
	TotalCents int64       `json:"totalCents" db:"total_cents"`
	OrderedAt  time.Time   `json:"orderedAt" db:"ordered_at"`
	Lines      []OrderLine `json:"orderDetails"`
}

// OrderLine is one purchased position within an order. PriceCents is the
// unit price snapshot captured at checkout.
type OrderLine struct {
	OrderID    int    `json:"-" db:"order_id"`
	BookID     int    `json:"bookId" db:"book_id"`
	Title      string `json:"title" db:"title"`
	Quantity   int    `json:"quantity" db:"quantity"`
	PriceCents int64  `json:"priceCents" db:"price_cents"`
}
