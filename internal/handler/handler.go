// Package handler содержит HTTP-обработчики API магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/bakeshop-system/internal/middleware"
	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
	"github.com/mmeshcher/bakeshop-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)

	GetCart(ctx context.Context, userID int64) (*service.CartView, error)
	AddToCart(ctx context.Context, userID int64, item model.CartItem) (*service.CartView, error)
	UpdateCartItem(ctx context.Context, userID, productID int64, qty int) (*service.CartView, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) (*service.CartView, error)

	CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error)
	GetOrderForUser(ctx context.Context, orderID string, userID int64, isAdmin bool) (*model.Order, error)
	ListOrdersForUser(ctx context.Context, userID int64, isAdmin bool) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID string, userID int64, isAdmin bool) (*model.Order, error)
	GetOrderStats(ctx context.Context) (*repository.OrderStats, error)

	AddReview(ctx context.Context, rev *model.Review) error
	ListReviews(ctx context.Context, productID *int64) ([]model.Review, error)

	CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	ReplyContact(ctx context.Context, id, adminID int64, reply string) (*model.Contact, error)
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	cache          *redis.Client
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// cache может быть nil — тогда кэширование отключено.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, cache *redis.Client) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		cache:          cache,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, messageResponse{Message: msg})
}

// serviceError переводит ошибки бизнес-логики в HTTP-статусы.
// Неопознанная ошибка логируется и отдаётся как 500 без деталей.
func (h *Handler) serviceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition):
		h.writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeMessage(w, http.StatusUnauthorized, "invalid login or password")
	case errors.Is(err, service.ErrForbidden):
		h.writeMessage(w, http.StatusForbidden, "access denied")
	case errors.Is(err, repository.ErrUserExists):
		h.writeMessage(w, http.StatusConflict, "login already taken")
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrContactNotFound):
		h.writeMessage(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(logMsg, zap.Error(err))
		h.writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type authResponse struct {
	ID    int64      `json:"id"`
	Login string     `json:"login"`
	Role  model.Role `json:"role"`
	Token string     `json:"token"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Login == "" || req.Password == "" {
		h.writeMessage(w, http.StatusBadRequest, "login and password are required")
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.serviceError(w, err, "register user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, model.RoleUser)
	h.writeJSON(w, http.StatusOK, authResponse{
		ID:    userID,
		Login: req.Login,
		Role:  model.RoleUser,
		Token: h.authMiddleware.Token(userID, model.RoleUser),
	})
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Login == "" || req.Password == "" {
		h.writeMessage(w, http.StatusBadRequest, "login and password are required")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.serviceError(w, err, "login user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID, u.Role)
	h.writeJSON(w, http.StatusOK, authResponse{
		ID:    u.ID,
		Login: u.Login,
		Role:  u.Role,
		Token: h.authMiddleware.Token(u.ID, u.Role),
	})
}

// Logout сбрасывает cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	h.writeMessage(w, http.StatusOK, "logged out")
}
