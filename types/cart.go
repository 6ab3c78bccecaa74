package types

// CartItem is one line of a user's shopping cart: a book, how many copies,
// and the catalog price at read time. The price here is a reference only;
// the binding price snapshot is taken at checkout.
type CartItem struct {
	UserID     int    `json:"userId" db:"user_id"`
	BookID     int    `json:"bookId" db:"book_id"`
	Title      string `json:"title" db:"title"`
	Quantity   int    `json:"quantity" db:"quantity"`
	PriceCents int64  `json:"priceCents" db:"price_cents"`
}
