package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/bakeshop-system/internal/middleware"
	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
	"github.com/mmeshcher/bakeshop-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	productResp *model.Product
	productErr  error
	productsErr error

	cartResp *service.CartView
	cartErr  error

	orderResp  *model.Order
	orderErr   error
	ordersResp []model.Order
	ordersErr  error
	statsResp  *repository.OrderStats
	statsErr   error
	statsCalls int

	reviewErr error

	contactResp *model.Contact
	contactErr  error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) DeleteProduct(ctx context.Context, id int64) error { return s.productErr }

func (s *stubService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return s.productResp, s.productErr
}

func (s *stubService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	return nil, 0, s.productsErr
}

func (s *stubService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, nil
}

func (s *stubService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	return &model.Category{Name: name}, nil
}

func (s *stubService) GetCart(ctx context.Context, userID int64) (*service.CartView, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) AddToCart(ctx context.Context, userID int64, item model.CartItem) (*service.CartView, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) UpdateCartItem(ctx context.Context, userID, productID int64, qty int) (*service.CartView, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) RemoveCartItem(ctx context.Context, userID, productID int64) (*service.CartView, error) {
	return s.cartResp, s.cartErr
}

func (s *stubService) CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) GetOrderForUser(ctx context.Context, orderID string, userID int64, isAdmin bool) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) ListOrdersForUser(ctx context.Context, userID int64, isAdmin bool) ([]model.Order, error) {
	return s.ordersResp, s.ordersErr
}

func (s *stubService) UpdateOrderStatus(ctx context.Context, orderID string, newStatus model.OrderStatus) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) CancelOrder(ctx context.Context, orderID string, userID int64, isAdmin bool) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) GetOrderStats(ctx context.Context) (*repository.OrderStats, error) {
	s.statsCalls++
	return s.statsResp, s.statsErr
}

func (s *stubService) AddReview(ctx context.Context, rev *model.Review) error { return s.reviewErr }

func (s *stubService) ListReviews(ctx context.Context, productID *int64) ([]model.Review, error) {
	return nil, nil
}

func (s *stubService) CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	return s.contactResp, s.contactErr
}

func (s *stubService) ListContacts(ctx context.Context) ([]model.Contact, error) { return nil, nil }

func (s *stubService) DeleteContact(ctx context.Context, id int64) error { return s.contactErr }

func (s *stubService) ReplyContact(ctx context.Context, id, adminID int64, reply string) (*model.Contact, error) {
	return s.contactResp, s.contactErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth, nil)
}

func doRequest(t *testing.T, h *Handler, method, target string, body any, userID int64, role model.Role) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+h.authMiddleware.Token(userID, role))
	}

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{registerUserID: 42}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/auth/register",
		credentialsRequest{Login: "user", Password: "pass"}, 0, "")

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp authResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 42 || resp.Token == "" {
		t.Fatalf("unexpected auth response: %+v", resp)
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{registerErr: repository.ErrUserExists}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/auth/register",
		credentialsRequest{Login: "user", Password: "pass"}, 0, "")

	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{authErr: service.ErrInvalidCredentials}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/auth/login",
		credentialsRequest{Login: "user", Password: "wrong"}, 0, "")

	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestCreateOrder_Created(t *testing.T) {
	svc := &stubService{orderResp: &model.Order{ID: "o-1", Status: model.OrderStatusPending}}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/orders",
		checkoutRequest{Items: []checkoutItemRequest{{ProductID: 1, Qty: 2}}},
		7, model.RoleUser)

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
}

func TestCreateOrder_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty order", service.ErrEmptyOrder, http.StatusBadRequest},
		{"insufficient stock", fmt.Errorf("%w: cake", service.ErrInsufficientStock), http.StatusBadRequest},
		{"invalid quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"unknown product", repository.ErrProductNotFound, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{orderErr: tt.err}
			h := newTestHandler(t, svc)

			res := doRequest(t, h, http.MethodPost, "/api/orders",
				checkoutRequest{Items: []checkoutItemRequest{{ProductID: 1, Qty: 1}}},
				7, model.RoleUser)

			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}

			var msg messageResponse
			if err := json.NewDecoder(res.Body).Decode(&msg); err != nil {
				t.Fatalf("decode message: %v", err)
			}
			if msg.Message == "" {
				t.Fatalf("error response has empty message")
			}
		})
	}
}

func TestCreateOrder_Unauthorized(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodPost, "/api/orders",
		checkoutRequest{}, 0, "")

	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestGetOrder_ForbiddenAndNotFound(t *testing.T) {
	svc := &stubService{orderErr: service.ErrForbidden}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/orders/o-1", nil, 7, model.RoleUser)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	svc.orderErr = repository.ErrOrderNotFound
	res = doRequest(t, h, http.MethodGet, "/api/orders/o-1", nil, 7, model.RoleUser)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestUpdateOrderStatus_AdminOnly(t *testing.T) {
	svc := &stubService{orderResp: &model.Order{ID: "o-1", Status: model.OrderStatusConfirmed}}
	h := newTestHandler(t, svc)

	body := updateStatusRequest{Status: model.OrderStatusConfirmed}

	res := doRequest(t, h, http.MethodPut, "/api/orders/o-1", body, 7, model.RoleUser)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("user role: status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doRequest(t, h, http.MethodPut, "/api/orders/o-1", body, 1, model.RoleAdmin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin role: status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestGetOrderStats_AdminOnly(t *testing.T) {
	svc := &stubService{statsResp: &repository.OrderStats{TotalOrders: 3}}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/orders/stats", nil, 7, model.RoleUser)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("user role: status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doRequest(t, h, http.MethodGet, "/api/orders/stats", nil, 1, model.RoleAdmin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin role: status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var stats repository.OrderStats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalOrders != 3 {
		t.Fatalf("total orders = %d, want 3", stats.TotalOrders)
	}
}

func TestCreateProduct_AdminOnly(t *testing.T) {
	svc := &stubService{productResp: &model.Product{ID: 1, Name: "Bánh kem"}}
	h := newTestHandler(t, svc)

	body := model.Product{Name: "Bánh kem", Price: 100000, Stock: 5}

	res := doRequest(t, h, http.MethodPost, "/api/products", body, 7, model.RoleUser)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("user role: status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doRequest(t, h, http.MethodPost, "/api/products", body, 1, model.RoleAdmin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("admin role: status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
}

func TestCreateProduct_InvalidInput(t *testing.T) {
	svc := &stubService{productErr: fmt.Errorf("%w: flash sale price must be below base price", service.ErrInvalidInput)}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/products",
		model.Product{Name: "Bánh kem"}, 1, model.RoleAdmin)

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestGetProducts_Public(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodGet, "/api/products?flashSale=true&page=2", nil, 0, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}

func TestCart_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{cartResp: &service.CartView{}})

	res := doRequest(t, h, http.MethodGet, "/api/cart", nil, 0, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	res = doRequest(t, h, http.MethodGet, "/api/cart", nil, 7, model.RoleUser)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("authorized: status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestCancelOrder_InvalidTransition(t *testing.T) {
	svc := &stubService{orderErr: fmt.Errorf("%w: cannot cancel order in status completed", service.ErrInvalidTransition)}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPut, "/api/orders/o-1/cancel", nil, 7, model.RoleUser)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestCreateContact_Public(t *testing.T) {
	svc := &stubService{contactResp: &model.Contact{ID: 1, Name: "Lan", Email: "lan@example.com"}}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/contacts",
		contactRequest{Name: "Lan", Email: "lan@example.com", Message: "xin chào"}, 0, "")

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
}
