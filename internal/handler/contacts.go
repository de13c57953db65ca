package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mmeshcher/bakeshop-system/internal/model"
)

type reviewRequest struct {
	ProductID int64  `json:"product"`
	Rating    int    `json:"rating"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
}

// AddReview создаёт или обновляет отзыв текущего пользователя о товаре.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.AddReview(r.Context(), &model.Review{
		UserID:    userID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
	})
	if err != nil {
		h.serviceError(w, err, "add review error")
		return
	}

	h.writeMessage(w, http.StatusCreated, "review saved")
}

// ListReviews возвращает отзывы, опционально отфильтрованные по товару.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	var productID *int64
	if v, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64); err == nil {
		productID = &v
	}

	reviews, err := h.service.ListReviews(r.Context(), productID)
	if err != nil {
		h.serviceError(w, err, "list reviews error")
		return
	}

	if reviews == nil {
		reviews = []model.Review{}
	}
	h.writeJSON(w, http.StatusOK, reviews)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// CreateContact сохраняет обращение покупателя. Доступно без авторизации.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.service.CreateContact(r.Context(), &model.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		h.serviceError(w, err, "create contact error")
		return
	}

	h.writeJSON(w, http.StatusCreated, c)
}

// ListContacts возвращает все обращения (только администратор).
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.ListContacts(r.Context())
	if err != nil {
		h.serviceError(w, err, "list contacts error")
		return
	}

	if contacts == nil {
		contacts = []model.Contact{}
	}
	h.writeJSON(w, http.StatusOK, contacts)
}

// DeleteContact удаляет обращение (только администратор).
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(r, "id")
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	if err := h.service.DeleteContact(r.Context(), id); err != nil {
		h.serviceError(w, err, "delete contact error")
		return
	}

	h.writeMessage(w, http.StatusOK, "contact deleted")
}

type replyContactRequest struct {
	Message string `json:"message"`
}

// ReplyContact сохраняет ответ администратора на обращение.
func (h *Handler) ReplyContact(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.userID(w, r)
	if !ok {
		return
	}

	id, idOK := parseInt64Param(r, "id")
	if !idOK {
		h.writeMessage(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	var req replyContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.service.ReplyContact(r.Context(), id, adminID, req.Message)
	if err != nil {
		h.serviceError(w, err, "reply contact error")
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}
