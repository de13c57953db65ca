package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/bakeshop-system/internal/model"
)

// UpsertReview создаёт или обновляет отзыв пользователя о товаре и в той же
// транзакции пересчитывает агрегаты рейтинга товара.
func (r *PostgresRepository) UpsertReview(ctx context.Context, rev *model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO reviews (user_id, product_id, rating, title, content)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET rating = EXCLUDED.rating, title = EXCLUDED.title, content = EXCLUDED.content`,
		rev.UserID, rev.ProductID, rev.Rating, rev.Title, rev.Content,
	)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}

	ct, err := tx.Exec(ctx,
		`UPDATE products p
		 SET avg_rating = COALESCE(agg.avg, 0), review_count = COALESCE(agg.cnt, 0)
		 FROM (
		     SELECT AVG(rating)::double precision AS avg, COUNT(*) AS cnt
		     FROM reviews WHERE product_id = $1
		 ) agg
		 WHERE p.id = $1`,
		rev.ProductID,
	)
	if err != nil {
		return fmt.Errorf("recalc rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%d", ErrProductNotFound, rev.ProductID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListReviews возвращает отзывы, свежие сверху. productID == nil — все отзывы.
func (r *PostgresRepository) ListReviews(ctx context.Context, productID *int64) ([]model.Review, error) {
	query := `SELECT id, user_id, product_id, rating, title, content, created_at FROM reviews`
	var args []any
	if productID != nil {
		query += ` WHERE product_id = $1`
		args = append(args, *productID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var res []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Title, &rv.Content, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		res = append(res, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
