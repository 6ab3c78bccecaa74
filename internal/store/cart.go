package store

import (
	"context"
	"database/sql"

	"github.com/bookcart/apiserver/types"
)

// CartRepository handles persistence for shopping cart lines.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// ItemCount returns the total number of copies across all cart lines for
// the user. A user with no cart rows counts as zero.
func (r *CartRepository) ItemCount(ctx context.Context, userID int) (int, error) {
	const query = `
		SELECT COALESCE(SUM(quantity), 0)
		FROM cart_items
		WHERE user_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Items returns the user's cart lines joined with the current catalog
// price, ordered by book id.
func (r *CartRepository) Items(ctx context.Context, userID int) ([]types.CartItem, error) {
	const query = `
		SELECT c.user_id, c.book_id, b.title, c.quantity, b.price_cents
		FROM cart_items c
		JOIN books b ON b.id = c.book_id
		WHERE c.user_id = $1
		ORDER BY c.book_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.CartItem, 0)
	for rows.Next() {
		var item types.CartItem
		if err := rows.Scan(
			&item.UserID,
			&item.BookID,
			&item.Title,
			&item.Quantity,
			&item.PriceCents,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AddBook adds one copy of the book to the user's cart, creating the line
// if it does not exist yet.
func (r *CartRepository) AddBook(ctx context.Context, userID, bookID int) error {
	const query = `
		INSERT INTO cart_items (user_id, book_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET quantity = cart_items.quantity + 1`
	_, err := r.db.ExecContext(ctx, query, userID, bookID)
	return err
}

// DecrementBook removes one copy of the book from the cart; the line is
// deleted when the quantity would drop to zero.
func (r *CartRepository) DecrementBook(ctx context.Context, userID, bookID int) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		const update = `
			UPDATE cart_items
			SET quantity = quantity - 1
			WHERE user_id = $1 AND book_id = $2 AND quantity > 1`
		result, err := tx.ExecContext(ctx, update, userID, bookID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}
		const remove = `DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2`
		_, err = tx.ExecContext(ctx, remove, userID, bookID)
		return err
	})
}

// RemoveBook deletes the cart line for the book regardless of quantity.
func (r *CartRepository) RemoveBook(ctx context.Context, userID, bookID int) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, bookID)
	return err
}

// Clear deletes every cart line for the user.
func (r *CartRepository) Clear(ctx context.Context, userID int) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *CartRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
