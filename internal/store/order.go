package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookcart/apiserver/types"
	"github.com/lib/pq"
)

// ErrEmptyCart is returned when a checkout finds no cart lines for the
// user. No order row is created in that case.
var ErrEmptyCart = errors.New("cart is empty")

// OrderRepository creates and reads orders. Orders are immutable after
// creation; there are no update or delete operations.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateFromCart converts the user's cart into an order inside a single
// transaction: it snapshots the current catalog price for every line,
// computes the total server-side, inserts the order header and lines, and
// deletes the cart lines. Any failure rolls the whole transaction back, so
// a partially written order is never observable.
func (r *OrderRepository) CreateFromCart(ctx context.Context, userID int) (types.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Order{}, err
	}

	order, err := r.createFromCartTx(ctx, tx, userID)
	if err != nil {
		_ = tx.Rollback()
		return types.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) createFromCartTx(ctx context.Context, tx *sql.Tx, userID int) (types.Order, error) {
	const snapshotQuery = `
		SELECT c.book_id, b.title, c.quantity, b.price_cents
		FROM cart_items c
		JOIN books b ON b.id = c.book_id
		WHERE c.user_id = $1
		ORDER BY c.book_id`
	rows, err := tx.QueryContext(ctx, snapshotQuery, userID)
	if err != nil {
		return types.Order{}, err
	}

	var lines []types.OrderLine
	for rows.Next() {
		var line types.OrderLine
		if err := rows.Scan(&line.BookID, &line.Title, &line.Quantity, &line.PriceCents); err != nil {
			rows.Close()
			return types.Order{}, err
		}
		lines = append(lines, line)
	}
	if err := rows.Close(); err != nil {
		return types.Order{}, err
	}
	if err := rows.Err(); err != nil {
		return types.Order{}, err
	}
	if len(lines) == 0 {
		return types.Order{}, ErrEmptyCart
	}

	order := types.Order{
		UserID:    userID,
		OrderedAt: time.Now(),
	}
	for _, line := range lines {
		order.TotalCents += line.PriceCents * int64(line.Quantity)
	}

	const insertOrder = `
		INSERT INTO orders (user_id, total_cents, ordered_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, insertOrder, order.UserID, order.TotalCents, order.OrderedAt).Scan(&order.ID); err != nil {
		return types.Order{}, err
	}

	const insertLine = `
		INSERT INTO order_items (order_id, book_id, quantity, price_cents)
		VALUES ($1, $2, $3, $4)`
	for i := range lines {
		lines[i].OrderID = order.ID
		if _, err := tx.ExecContext(ctx, insertLine, order.ID, lines[i].BookID, lines[i].Quantity, lines[i].PriceCents); err != nil {
			return types.Order{}, err
		}
	}

	// The delete is scoped to the snapshotted lines: under READ COMMITTED a
	// cart line committed after the snapshot was never ordered, so it must
	// survive the checkout.
	bookIDs := make([]int64, len(lines))
	for i, line := range lines {
		bookIDs[i] = int64(line.BookID)
	}
	const clearCart = `DELETE FROM cart_items WHERE user_id = $1 AND book_id = ANY($2)`
	if _, err := tx.ExecContext(ctx, clearCart, userID, pq.Array(bookIDs)); err != nil {
		return types.Order{}, err
	}

	order.Lines = lines
	return order, nil
}

// ListByUser returns the user's orders, newest first, with their lines.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	const ordersQuery = `
		SELECT id, user_id, total_cents, ordered_at
		FROM orders
		WHERE user_id = $1
		ORDER BY ordered_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, ordersQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]types.Order, 0)
	index := make(map[int]int)
	for rows.Next() {
		var order types.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalCents, &order.OrderedAt); err != nil {
			return nil, err
		}
		index[order.ID] = len(orders)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	const linesQuery = `
		SELECT l.order_id, l.book_id, b.title, l.quantity, l.price_cents
		FROM order_items l
		JOIN books b ON b.id = l.book_id
		JOIN orders o ON o.id = l.order_id
		WHERE o.user_id = $1
		ORDER BY l.order_id, l.book_id`
	lineRows, err := r.db.QueryContext(ctx, linesQuery, userID)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var line types.OrderLine
		if err := lineRows.Scan(&line.OrderID, &line.BookID, &line.Title, &line.Quantity, &line.PriceCents); err != nil {
			return nil, err
		}
		if i, ok := index[line.OrderID]; ok {
			orders[i].Lines = append(orders[i].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
