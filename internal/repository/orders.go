package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/bakeshop-system/internal/model"
)

// CheckoutTx описывает транзакцию оформления заказа. Все операции
// применяются атомарно: до Commit ни одна мутация не видна снаружи,
// Rollback отменяет всё. Блокировка строки товара сериализует
// конкурирующие оформления одного и того же товара.
type CheckoutTx interface {
	// ProductForUpdate читает товар с блокировкой строки (FOR UPDATE).
	ProductForUpdate(ctx context.Context, productID int64) (*model.Product, error)
	// ApplyStockChange атомарно списывает qty со склада и увеличивает
	// счётчик проданного по флеш-цене на flashQty.
	ApplyStockChange(ctx context.Context, productID int64, qty, flashQty int) error
	// InsertOrder сохраняет заказ вместе со снимками позиций.
	InsertOrder(ctx context.Context, o *model.Order) error
	// PruneCart удаляет из корзины пользователя ровно купленные позиции.
	PruneCart(ctx context.Context, userID int64, productIDs []int64) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type checkoutTx struct {
	tx pgx.Tx
}

// BeginCheckout открывает транзакцию оформления заказа.
func (r *PostgresRepository) BeginCheckout(ctx context.Context) (CheckoutTx, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	return &checkoutTx{tx: tx}, nil
}

func (t *checkoutTx) ProductForUpdate(ctx context.Context, productID int64) (*model.Product, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`,
		productID,
	)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (t *checkoutTx) ApplyStockChange(ctx context.Context, productID int64, qty, flashQty int) error {
	// Условие stock >= qty — страховка поверх блокировки строки:
	// списание не может увести остаток в минус.
	ct, err := t.tx.Exec(ctx,
		`UPDATE products
		 SET stock = stock - $2, flash_sale_sold = flash_sale_sold + $3, updated_at = now()
		 WHERE id = $1 AND stock >= $2`,
		productID, qty, flashQty,
	)
	if err != nil {
		return fmt.Errorf("apply stock change: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: stock guard rejected update for product %d", ErrInsufficientStock, productID)
	}
	return nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, full_name, phone, address_line, city,
			payment_method, items_price, shipping_price, tax_price, total_price, status,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		o.ID, o.UserID,
		o.ShippingAddress.FullName, o.ShippingAddress.Phone,
		o.ShippingAddress.AddressLine, o.ShippingAddress.City,
		string(o.PaymentMethod), o.ItemsPrice, o.ShippingPrice, o.TaxPrice, o.TotalPrice,
		string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, name, qty, unit_price, image, attrs)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, it.ProductID, it.Name, it.Qty, it.UnitPrice, it.Image, it.Attrs,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *checkoutTx) PruneCart(ctx context.Context, userID int64, productIDs []int64) error {
	// Удаление выполняется по актуальному состоянию корзины на момент
	// транзакции: позиции, не вошедшие в заказ, остаются нетронутыми.
	_, err := t.tx.Exec(ctx,
		`DELETE FROM cart_items
		 WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)
		   AND product_id = ANY($2)`,
		userID, productIDs,
	)
	if err != nil {
		return fmt.Errorf("prune cart: %w", err)
	}
	return nil
}

func (t *checkoutTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *checkoutTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

const orderColumns = `id, user_id, full_name, phone, address_line, city,
	payment_method, payment_result, items_price, shipping_price, tax_price, total_price,
	status, delivered_at, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o             model.Order
		paymentMethod string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.UserID,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Phone,
		&o.ShippingAddress.AddressLine, &o.ShippingAddress.City,
		&paymentMethod, &o.PaymentResult,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&status, &o.DeliveredAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = model.PaymentMethod(paymentMethod)
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func (r *PostgresRepository) loadOrderItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, qty, unit_price, image, attrs
		 FROM order_items WHERE order_id = ANY($1) ORDER BY id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      model.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Qty, &it.UnitPrice, &it.Image, &it.Attrs); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ со снимками позиций.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := r.loadOrderItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders возвращает заказы, свежие сверху. Для userID == nil — все
// заказы (административный путь), иначе только заказы пользователя.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID *int64) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadOrderItems(ctx, orders); err != nil {
		return nil, err
	}

	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		res = append(res, *o)
	}
	return res, nil
}

// UpdateOrderStatus сохраняет статусные поля заказа одним атомарным
// обновлением документа.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, o *model.Order) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET status = $2, delivered_at = $3, cancelled_at = $4, payment_result = $5, updated_at = now()
		 WHERE id = $1`,
		o.ID, string(o.Status), o.DeliveredAt, o.CancelledAt, o.PaymentResult,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// StatusCount — число заказов в одном статусе.
type StatusCount struct {
	Status model.OrderStatus `json:"status"`
	Count  int               `json:"count"`
}

// DailyRevenue — выручка за один день по завершённым заказам.
type DailyRevenue struct {
	Day     time.Time `json:"day"`
	Revenue int64     `json:"revenue"`
}

// TopProduct — товар из числа лидеров продаж.
type TopProduct struct {
	ProductID int64  `json:"product"`
	Name      string `json:"name"`
	TotalQty  int    `json:"totalQty"`
	Revenue   int64  `json:"revenue"`
}

// OrderStats — агрегаты для административной панели. Выручка и лидеры
// продаж считаются только по заказам в статусе completed: это единственное
// определение «состоявшейся продажи».
type OrderStats struct {
	TotalOrders  int            `json:"totalOrders"`
	TotalRevenue int64          `json:"totalRevenue"`
	ByStatus     []StatusCount  `json:"byStatus"`
	RevenueByDay []DailyRevenue `json:"revenueByDay"`
	RecentOrders []model.Order  `json:"recentOrders"`
	TopProducts  []TopProduct   `json:"topProducts"`
}

// GetOrderStats собирает агрегаты панели администратора.
func (r *PostgresRepository) GetOrderStats(ctx context.Context) (*OrderStats, error) {
	var stats *OrderStats

	err := r.withRetry(ctx, func() error {
		s := &OrderStats{}

		rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
		if err != nil {
			return fmt.Errorf("count by status: %w", err)
		}
		for rows.Next() {
			var sc StatusCount
			var status string
			if err := rows.Scan(&status, &sc.Count); err != nil {
				rows.Close()
				return fmt.Errorf("scan status count: %w", err)
			}
			sc.Status = model.OrderStatus(status)
			s.ByStatus = append(s.ByStatus, sc)
			s.TotalOrders += sc.Count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		err = r.pool.QueryRow(ctx,
			`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE status = $1`,
			string(model.OrderStatusCompleted),
		).Scan(&s.TotalRevenue)
		if err != nil {
			return fmt.Errorf("sum revenue: %w", err)
		}

		rows, err = r.pool.Query(ctx,
			`SELECT date_trunc('day', created_at) AS day, COALESCE(SUM(total_price), 0)
			 FROM orders
			 WHERE status = $1 AND created_at >= now() - INTERVAL '7 days'
			 GROUP BY day
			 ORDER BY day`,
			string(model.OrderStatusCompleted),
		)
		if err != nil {
			return fmt.Errorf("revenue by day: %w", err)
		}
		for rows.Next() {
			var d DailyRevenue
			if err := rows.Scan(&d.Day, &d.Revenue); err != nil {
				rows.Close()
				return fmt.Errorf("scan daily revenue: %w", err)
			}
			s.RevenueByDay = append(s.RevenueByDay, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		rows, err = r.pool.Query(ctx,
			`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT 5`)
		if err != nil {
			return fmt.Errorf("recent orders: %w", err)
		}
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan recent order: %w", err)
			}
			s.RecentOrders = append(s.RecentOrders, *o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		rows, err = r.pool.Query(ctx,
			`SELECT oi.product_id, oi.name, SUM(oi.qty) AS total_qty, SUM(oi.qty * oi.unit_price) AS revenue
			 FROM order_items oi
			 JOIN orders o ON o.id = oi.order_id
			 WHERE o.status = $1
			 GROUP BY oi.product_id, oi.name
			 ORDER BY total_qty DESC
			 LIMIT 4`,
			string(model.OrderStatusCompleted),
		)
		if err != nil {
			return fmt.Errorf("top products: %w", err)
		}
		for rows.Next() {
			var tp TopProduct
			if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.TotalQty, &tp.Revenue); err != nil {
				rows.Close()
				return fmt.Errorf("scan top product: %w", err)
			}
			s.TopProducts = append(s.TopProducts, tp)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		stats = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}
