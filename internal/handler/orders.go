package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/bakeshop-system/internal/middleware"
	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/mmeshcher/bakeshop-system/internal/redisx"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
)

type checkoutItemRequest struct {
	ProductID int64             `json:"product"`
	Qty       int               `json:"qty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   model.PaymentMethod   `json:"paymentMethod"`
	TaxPrice        int64                 `json:"taxPrice"`
}

// CreateOrder оформляет заказ из выбранных позиций. Цены клиента
// игнорируются, оформление атомарно.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]model.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.CheckoutItem{
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Attrs:     it.Attrs,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), userID, model.CheckoutRequest{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TaxPrice:        req.TaxPrice,
	})
	if err != nil {
		// Неизвестный товар в составе заказа — ошибка запроса, а не адреса.
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serviceError(w, err, "create order error")
		return
	}

	h.cacheOrderStatus(r, order)
	h.writeJSON(w, http.StatusCreated, order)
}

// GetOrders возвращает заказы: администратору — все, пользователю — свои.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrdersForUser(r.Context(), userID, middleware.IsAdminFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, err, "list orders error")
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ по идентификатору с проверкой прав.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "id")
	order, err := h.service.GetOrderForUser(r.Context(), orderID, userID, middleware.IsAdminFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, err, "get order error")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus применяет административную смену статуса заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.serviceError(w, err, "update order status error")
		return
	}

	h.cacheOrderStatus(r, order)
	h.invalidateStatsCache(r)
	h.writeJSON(w, http.StatusOK, order)
}

// CancelOrder выполняет отмену заказа покупателем.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), chi.URLParam(r, "id"), userID, middleware.IsAdminFromContext(r.Context()))
	if err != nil {
		h.serviceError(w, err, "cancel order error")
		return
	}

	h.cacheOrderStatus(r, order)
	h.writeJSON(w, http.StatusOK, order)
}

// GetOrderStats возвращает агрегаты панели администратора.
// Ответ кэшируется в Redis целиком: агрегаты тяжёлые, а панель
// опрашивает их часто.
func (h *Handler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		cached, err := h.cache.Get(r.Context(), redisx.KeyOrderStats).Bytes()
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	stats, err := h.service.GetOrderStats(r.Context())
	if err != nil {
		h.serviceError(w, err, "get order stats error")
		return
	}

	if h.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := h.cache.Set(r.Context(), redisx.KeyOrderStats, payload, redisx.TTLOrderStats).Err(); err != nil {
				h.logger.Warn("cache order stats error", zap.Error(err))
			}
		}
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// cacheOrderStatus сохраняет статус заказа в Redis. Ошибки кэша не
// влияют на ответ клиенту.
func (h *Handler) cacheOrderStatus(r *http.Request, o *model.Order) {
	if h.cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	if err := h.cache.Set(r.Context(), key, string(o.Status), redisx.TTLOrderStatus).Err(); err != nil {
		h.logger.Warn("cache order status error", zap.Error(err), zap.String("order", o.ID))
	}
}

func (h *Handler) invalidateStatsCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Del(r.Context(), redisx.KeyOrderStats).Err(); err != nil {
		h.logger.Warn("invalidate stats cache error", zap.Error(err))
	}
}
