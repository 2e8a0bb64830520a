package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// AddItem merges qty into the order's line item for the product (or creates
// one) and decrements the product's stock, all in one transaction. The
// product row is locked FOR UPDATE so concurrent calls cannot both pass the
// stock check and over-reserve.
func (r *Repo) AddItem(ctx context.Context, orderID, productID int64, qty int) (*AddedItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE id=$1`, orderID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	} else if err != nil {
		return nil, err
	}

	var p Product
	err = tx.QueryRow(ctx, `
		SELECT id, name, quantity, price, category_id
		FROM product WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.CategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, err
	}

	if p.Quantity < qty {
		return nil, &InsufficientStockError{ProductID: productID, Available: p.Quantity, Requested: qty}
	}

	item := OrderItem{OrderID: orderID, ProductID: productID}
	err = tx.QueryRow(ctx, `
		SELECT id, quantity FROM order_item
		WHERE order_id=$1 AND product_id=$2`, orderID, productID).
		Scan(&item.ID, &item.Qty)
	switch {
	case err == nil:
		// merge: additive, one line item per product per order
		item.Qty += qty
		if _, err := tx.Exec(ctx, `UPDATE order_item SET quantity=$2 WHERE id=$1`, item.ID, item.Qty); err != nil {
			return nil, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		item.Qty = qty
		err = tx.QueryRow(ctx, `
			INSERT INTO order_item(order_id, product_id, quantity)
			VALUES ($1,$2,$3) RETURNING id`, orderID, productID, qty).Scan(&item.ID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE product SET quantity = quantity - $2 WHERE id=$1`, productID, qty); err != nil {
		return nil, err
	}
	p.Quantity -= qty

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &AddedItem{Item: item, Product: p}, nil
}

func (r *Repo) OrderSummary(ctx context.Context, orderID int64) (*OrderSummary, error) {
	var s OrderSummary
	err := r.DB.QueryRow(ctx, `SELECT id, client_id, created_at FROM orders WHERE id=$1`, orderID).
		Scan(&s.ID, &s.ClientID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	} else if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.product_id, p.name, oi.quantity, p.price
		FROM order_item oi JOIN product p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it SummaryItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Qty, &it.UnitPrice); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, it)
	}
	return &s, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, quantity, price, category_id
	                              FROM product ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
