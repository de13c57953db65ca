package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/bakeshop-system/internal/model"
)

// GetCart возвращает корзину пользователя. Если корзины ещё нет,
// возвращается пустая корзина без записи в БД (она создаётся лениво
// при первом добавлении товара).
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	cart := &model.Cart{UserID: userID, Items: []model.CartItem{}}

	err := r.pool.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cart.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, qty, attrs FROM cart_items WHERE cart_id = $1 ORDER BY id`,
		cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.Attrs); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// AddCartItem добавляет товар в корзину пользователя. Если позиция уже
// есть, количество складывается.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID int64, item model.CartItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var cartID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id`,
		userID,
	).Scan(&cartID)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, qty, attrs)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, attrs = EXCLUDED.attrs`,
		cartID, item.ProductID, item.Qty, item.Attrs,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdateCartItemQty устанавливает количество для позиции корзины.
func (r *PostgresRepository) UpdateCartItemQty(ctx context.Context, userID, productID int64, qty int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET qty = $3
		 WHERE product_id = $2
		   AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items
		 WHERE product_id = $2
		   AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}
