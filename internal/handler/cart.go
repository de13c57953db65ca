package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mmeshcher/bakeshop-system/internal/middleware"
	"github.com/mmeshcher/bakeshop-system/internal/model"
)

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return 0, false
	}
	return userID, true
}

// GetCart возвращает корзину текущего пользователя с актуальными ценами.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err, "get cart error")
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

type cartItemRequest struct {
	ProductID int64             `json:"product"`
	Qty       int               `json:"qty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// AddToCart добавляет товар в корзину (повторное добавление складывает количество).
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.AddToCart(r.Context(), userID, model.CartItem{
		ProductID: req.ProductID,
		Qty:       req.Qty,
		Attrs:     req.Attrs,
	})
	if err != nil {
		h.serviceError(w, err, "add to cart error")
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

// UpdateCartItem устанавливает количество для позиции корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.UpdateCartItem(r.Context(), userID, req.ProductID, req.Qty)
	if err != nil {
		h.serviceError(w, err, "update cart item error")
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	productID, ok := parseInt64Param(r, "productID")
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	cart, err := h.service.RemoveCartItem(r.Context(), userID, productID)
	if err != nil {
		h.serviceError(w, err, "remove cart item error")
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}
