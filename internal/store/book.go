package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookcart/apiserver/types"
)

// BookRepository reads catalog entries. Catalog management is out of scope
// for this service, so the repository is read-only.
type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) GetByID(ctx context.Context, id int) (types.Book, error) {
	const query = `
		SELECT id, title, author, category, price_cents
		FROM books
		WHERE id = $1`
	var book types.Book
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Category,
		&book.PriceCents,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}
