package types

// Book is a catalog entry. This service only reads it for pricing; catalog
// management lives elsewhere.
type Book struct {
	ID         int    `json:"bookId" db:"id"`
	Title      string `json:"title" db:"title"`
	Author     string `json:"author" db:"author"`
	Category   string `json:"category" db:"category"`
	PriceCents int64  `json:"priceCents" db:"price_cents"`
}
