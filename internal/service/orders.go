package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/mmeshcher/bakeshop-system/internal/pricing"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
)

// ErrEmptyOrder возвращается при попытке оформить заказ без позиций.
var (
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity возвращается при количестве меньше единицы.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInsufficientStock возвращается, когда запрошенное количество
	// превышает остаток. Совпадает с ошибкой страхующего условия
	// stock >= qty в хранилище, чтобы оба пути давали один ответ клиенту.
	ErrInsufficientStock = repository.ErrInsufficientStock
	// ErrForbidden возвращается при отсутствии прав на операцию с заказом.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition возвращается при недопустимом переходе статуса.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CreateOrder оформляет заказ по запросу пользователя.
//
// Вся обработка позиций выполняется в одной транзакции: проверка и
// списание остатков, счётчики распродажи, вставка заказа и чистка
// корзины либо фиксируются целиком, либо не фиксируются вовсе. Ошибка
// на любой позиции не оставляет частичных списаний. Блокировка строки
// товара (FOR UPDATE) закрывает гонку check-then-act между
// конкурирующими оформлениями.
func (s *Service) CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range req.Items {
		if it.Qty < 1 {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidQuantity, it.ProductID)
		}
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = model.PaymentMethodCOD
	}
	if paymentMethod != model.PaymentMethodCOD && paymentMethod != model.PaymentMethodCard {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, paymentMethod)
	}
	if req.TaxPrice < 0 {
		return nil, fmt.Errorf("%w: tax price must not be negative", ErrInvalidInput)
	}

	tx, err := s.repo.BeginCheckout(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	items := make([]model.OrderItem, 0, len(req.Items))
	productIDs := make([]int64, 0, len(req.Items))
	var itemsPrice int64

	for _, it := range req.Items {
		p, err := tx.ProductForUpdate(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}

		if p.Stock < it.Qty {
			return nil, fmt.Errorf("%w: %s (requested %d, available %d)",
				ErrInsufficientStock, p.Name, it.Qty, p.Stock)
		}

		// Цена клиента, если он её прислал, игнорируется:
		// источником истины служит только серверный резолв.
		unitPrice, src := pricing.ResolveForQty(p, now, it.Qty)

		flashQty := 0
		if src == pricing.SourceFlashSale {
			flashQty = it.Qty
		}
		if err := tx.ApplyStockChange(ctx, p.ID, it.Qty, flashQty); err != nil {
			return nil, err
		}

		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Qty:       it.Qty,
			UnitPrice: unitPrice,
			Image:     p.Image,
			Attrs:     it.Attrs,
		})
		itemsPrice += unitPrice * int64(it.Qty)
		productIDs = append(productIDs, p.ID)
	}

	order := &model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   paymentMethod,
		ItemsPrice:      itemsPrice,
		ShippingPrice:   s.shippingPrice,
		TaxPrice:        req.TaxPrice,
		TotalPrice:      itemsPrice + s.shippingPrice + req.TaxPrice,
		Status:          model.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := tx.PruneCart(ctx, userID, productIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	if s.notifier != nil {
		s.notifier.OrderCreated(order)
	}

	return order, nil
}

// GetOrderForUser возвращает заказ с проверкой прав: не-администратор
// видит только собственные заказы.
func (s *Service) GetOrderForUser(ctx context.Context, orderID string, userID int64, isAdmin bool) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListOrdersForUser возвращает заказы: администратору — все,
// пользователю — только его собственные. Фильтр применяется на сервере
// и клиенту не доверяется.
func (s *Service) ListOrdersForUser(ctx context.Context, userID int64, isAdmin bool) ([]model.Order, error) {
	if isAdmin {
		return s.repo.ListOrders(ctx, nil)
	}
	return s.repo.ListOrders(ctx, &userID)
}

// applyTransition применяет переход статуса к заказу: сам статус,
// одноразовые отметки времени и синтез результата оплаты для
// cod-заказов при завершении.
func applyTransition(o *model.Order, newStatus model.OrderStatus, now time.Time) {
	o.Status = newStatus
	o.UpdatedAt = now

	switch newStatus {
	case model.OrderStatusCompleted:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
		// cod-заказ считается оплаченным только в момент завершения.
		if o.PaymentMethod == model.PaymentMethodCOD && o.PaymentResult == nil {
			o.PaymentResult = &model.PaymentResult{
				ID:         "cod-" + o.ID,
				Status:     "paid",
				UpdateTime: now.Format(time.RFC3339),
			}
		}
	case model.OrderStatusCancelled:
		if o.CancelledAt == nil {
			t := now
			o.CancelledAt = &t
		}
	}
}

// UpdateOrderStatus применяет административную смену статуса.
// Администратор не ограничен таблицей переходов, но нештатные переходы
// попадают в лог.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus) (*model.Order, error) {
	if !model.IsValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(o.Status, newStatus) && o.Status != newStatus {
		s.logger.Warn("admin status override outside lifecycle",
			zap.String("order", o.ID),
			zap.String("from", string(o.Status)),
			zap.String("to", string(newStatus)),
		)
	}

	applyTransition(o, newStatus, time.Now().UTC())

	if err := s.repo.UpdateOrderStatus(ctx, o); err != nil {
		return nil, err
	}

	s.notifyStatus(o)
	return o, nil
}

// CancelOrder выполняет отмену заказа покупателем. Разрешена только
// владельцу (или администратору) и только для заказов в статусе pending.
func (s *Service) CancelOrder(ctx context.Context, orderID string, userID int64, isAdmin bool) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && o.UserID != userID {
		return nil, ErrForbidden
	}
	if o.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, o.Status)
	}

	applyTransition(o, model.OrderStatusCancelled, time.Now().UTC())

	if err := s.repo.UpdateOrderStatus(ctx, o); err != nil {
		return nil, err
	}

	s.notifyStatus(o)
	return o, nil
}

// notifyStatus отправляет уведомление о смене статуса. Отправка
// асинхронная: сбой уведомления никогда не откатывает переход.
func (s *Service) notifyStatus(o *model.Order) {
	if s.notifier == nil {
		return
	}
	switch o.Status {
	case model.OrderStatusDelivered, model.OrderStatusCompleted, model.OrderStatusCancelled:
		s.notifier.OrderStatusChanged(o)
	}
}

// GetOrderStats возвращает агрегаты панели администратора.
func (s *Service) GetOrderStats(ctx context.Context) (*repository.OrderStats, error) {
	return s.repo.GetOrderStats(ctx)
}
