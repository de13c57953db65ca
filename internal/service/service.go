// Package service реализует бизнес-логику магазина кондитерских изделий.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/mmeshcher/bakeshop-system/internal/pricing"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
	"github.com/mmeshcher/bakeshop-system/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput возвращается при некорректных входных данных запроса.
	ErrInvalidInput = errors.New("invalid input")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*model.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)

	GetCart(ctx context.Context, userID int64) (*model.Cart, error)
	AddCartItem(ctx context.Context, userID int64, item model.CartItem) error
	UpdateCartItemQty(ctx context.Context, userID, productID int64, qty int) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error

	BeginCheckout(ctx context.Context) (repository.CheckoutTx, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, userID *int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, o *model.Order) error
	GetOrderStats(ctx context.Context) (*repository.OrderStats, error)

	UpsertReview(ctx context.Context, rev *model.Review) error
	ListReviews(ctx context.Context, productID *int64) ([]model.Review, error)

	CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	ReplyContact(ctx context.Context, id, adminID int64, reply string) (*model.Contact, error)
}

// Notifier отправляет асинхронные уведомления о событиях заказов.
// Реализация обязана не блокировать вызывающий код.
type Notifier interface {
	OrderCreated(o *model.Order)
	OrderStatusChanged(o *model.Order)
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo          Repository
	notifier      Notifier
	logger        *zap.Logger
	shippingPrice int64
}

// NewService создаёт новый сервис. notifier может быть nil — тогда
// уведомления не отправляются.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger, shippingPrice int64) *Service {
	return &Service{
		repo:          repo,
		notifier:      notifier,
		logger:        logger,
		shippingPrice: shippingPrice,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с ролью user.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed, model.RoleUser)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// presentProduct возвращает копию товара для отдачи наружу: флаг
// флеш-распродажи «корректируется» вне активного окна, но коррекция
// никогда не сохраняется в БД — вычисляемое значение не становится
// вторым источником истины.
func presentProduct(p *model.Product, now time.Time) *model.Product {
	view := *p
	if view.IsFlashSale && !pricing.FlashActive(p, now) {
		view.IsFlashSale = false
	}
	return &view
}

// CreateProduct создаёт товар каталога (административный путь).
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := s.prepareProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct обновляет товар каталога (административный путь).
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := s.prepareProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.UpdateProduct(ctx, p)
}

func (s *Service) prepareProduct(ctx context.Context, p *model.Product) error {
	if p.CategoryID != nil {
		ok, err := s.repo.CategoryExists(ctx, *p.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: category %d does not exist", ErrInvalidInput, *p.CategoryID)
		}
	}

	if p.Slug == "" {
		p.Slug = validation.Slugify(p.Name)
	}

	if err := validation.ValidateProduct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return nil
}

// DeleteProduct удаляет товар каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// GetProduct возвращает товар со скорректированным флагом распродажи.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return presentProduct(p, time.Now().UTC()), nil
}

// GetProductBySlug возвращает товар по слагу.
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return presentProduct(p, time.Now().UTC()), nil
}

// ListProducts возвращает страницу каталога под фильтром.
func (s *Service) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int, error) {
	items, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	for i := range items {
		items[i] = *presentProduct(&items[i], now)
	}
	return items, total, nil
}

// ListCategories возвращает категории каталога.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory создаёт категорию каталога.
func (s *Service) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	return s.repo.CreateCategory(ctx, name, validation.Slugify(name))
}

// CartItemView — позиция корзины со свежей эффективной ценой.
type CartItemView struct {
	Product   *model.Product    `json:"product"`
	Qty       int               `json:"qty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	UnitPrice int64             `json:"unitPrice"`
	Subtotal  int64             `json:"subtotal"`
}

// CartView — корзина пользователя с актуальными ценами. Цены в корзине
// не хранятся и резолвятся заново на каждом чтении.
type CartView struct {
	Items      []CartItemView `json:"items"`
	ItemsPrice int64          `json:"itemsPrice"`
}

// GetCart возвращает корзину пользователя с актуальными ценами.
// Позиции удалённых товаров пропускаются.
func (s *Service) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	view := &CartView{Items: []CartItemView{}}
	for _, it := range cart.Items {
		p, err := s.repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return nil, err
		}

		price, _ := pricing.Resolve(p, now)
		view.Items = append(view.Items, CartItemView{
			Product:   presentProduct(p, now),
			Qty:       it.Qty,
			Attrs:     it.Attrs,
			UnitPrice: price,
			Subtotal:  price * int64(it.Qty),
		})
		view.ItemsPrice += price * int64(it.Qty)
	}

	return view, nil
}

// AddToCart добавляет товар в корзину и возвращает обновлённую корзину.
func (s *Service) AddToCart(ctx context.Context, userID int64, item model.CartItem) (*CartView, error) {
	if item.Qty < 1 {
		return nil, fmt.Errorf("%w: qty must be at least 1", ErrInvalidQuantity)
	}
	if _, err := s.repo.GetProduct(ctx, item.ProductID); err != nil {
		return nil, err
	}
	if err := s.repo.AddCartItem(ctx, userID, item); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// UpdateCartItem устанавливает количество для позиции корзины.
func (s *Service) UpdateCartItem(ctx context.Context, userID, productID int64, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: qty must be at least 1", ErrInvalidQuantity)
	}
	if err := s.repo.UpdateCartItemQty(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveCartItem удаляет позицию из корзины.
func (s *Service) RemoveCartItem(ctx context.Context, userID, productID int64) (*CartView, error) {
	if err := s.repo.RemoveCartItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// AddReview создаёт или обновляет отзыв пользователя о товаре.
func (s *Service) AddReview(ctx context.Context, rev *model.Review) error {
	if err := validation.ValidateRating(rev.Rating); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if _, err := s.repo.GetProduct(ctx, rev.ProductID); err != nil {
		return err
	}
	return s.repo.UpsertReview(ctx, rev)
}

// ListReviews возвращает отзывы (опционально по товару).
func (s *Service) ListReviews(ctx context.Context, productID *int64) ([]model.Review, error) {
	return s.repo.ListReviews(ctx, productID)
}

// CreateContact сохраняет обращение покупателя.
func (s *Service) CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	return s.repo.CreateContact(ctx, c)
}

// ListContacts возвращает все обращения.
func (s *Service) ListContacts(ctx context.Context) ([]model.Contact, error) {
	return s.repo.ListContacts(ctx)
}

// DeleteContact удаляет обращение.
func (s *Service) DeleteContact(ctx context.Context, id int64) error {
	return s.repo.DeleteContact(ctx, id)
}

// ReplyContact сохраняет ответ администратора на обращение.
func (s *Service) ReplyContact(ctx context.Context, id, adminID int64, reply string) (*model.Contact, error) {
	if reply == "" {
		return nil, fmt.Errorf("%w: reply message is required", ErrInvalidInput)
	}
	return s.repo.ReplyContact(ctx, id, adminID, reply)
}
