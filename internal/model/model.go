// Package model содержит доменные сущности магазина кондитерских изделий.
package model

import "time"

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Category описывает категорию товаров каталога.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product описывает товар каталога. Все денежные значения хранятся
// в целых донгах (int64), без дробной части.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	SalePrice   int64     `json:"salePrice"`
	Stock       int       `json:"stock"`
	Flavor      string    `json:"flavor,omitempty"`
	CategoryID  *int64    `json:"category,omitempty"`
	Image       string    `json:"image,omitempty"`
	AvgRating   float64   `json:"avgRating"`
	ReviewCount int       `json:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Поля флеш-распродажи. IsFlashSale — сохранённый флаг намерения,
	// а не гарантия активности: фактическая активность дополнительно
	// требует попадания текущего времени в окно [FlashSaleStart, FlashSaleEnd].
	IsFlashSale    bool       `json:"isFlashSale"`
	FlashSalePrice int64      `json:"flashSalePrice"`
	FlashSaleTotal int        `json:"totalFlashSale"`
	FlashSaleSold  int        `json:"soldCount"`
	FlashSaleStart *time.Time `json:"flashSaleStartDate,omitempty"`
	FlashSaleEnd   *time.Time `json:"flashSaleEndTime,omitempty"`
}

// CartItem описывает позицию корзины. Цена на позиции не хранится:
// она резолвится заново при чтении корзины и при оформлении заказа.
type CartItem struct {
	ProductID int64             `json:"product"`
	Qty       int               `json:"qty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Cart описывает корзину пользователя (одна активная корзина на пользователя).
type Cart struct {
	ID     int64      `json:"id"`
	UserID int64      `json:"user"`
	Items  []CartItem `json:"items"`
}

// ShippingAddress содержит адрес доставки заказа.
type ShippingAddress struct {
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	AddressLine string `json:"addressLine"`
	City        string `json:"city"`
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

// PaymentResult фиксирует факт оплаты. Для cod-заказов создаётся
// при переходе в статус completed.
type PaymentResult struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
}

// OrderItem — замороженный снимок товара на момент оформления заказа.
// Последующие правки каталога на него не влияют.
type OrderItem struct {
	ProductID int64             `json:"product"`
	Name      string            `json:"name"`
	Qty       int               `json:"qty"`
	UnitPrice int64             `json:"price"`
	Image     string            `json:"image,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Order описывает оформленный заказ. После создания изменяются только
// статусные поля.
type Order struct {
	ID              string          `json:"id"`
	UserID          int64           `json:"user"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      int64           `json:"itemsPrice"`
	ShippingPrice   int64           `json:"shippingPrice"`
	TaxPrice        int64           `json:"taxPrice"`
	TotalPrice      int64           `json:"totalPrice"`
	Status          OrderStatus     `json:"status"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CheckoutItem — позиция запроса на оформление заказа. Цена клиентом
// не передаётся: она резолвится на сервере в момент оформления.
type CheckoutItem struct {
	ProductID int64
	Qty       int
	Attrs     map[string]string
}

// CheckoutRequest — запрос на оформление заказа. Может содержать
// подмножество корзины: невыбранные позиции остаются в корзине.
type CheckoutRequest struct {
	Items           []CheckoutItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	TaxPrice        int64
}

// Review описывает отзыв пользователя о товаре. Один пользователь —
// один отзыв на товар.
type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user"`
	ProductID int64     `json:"product"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Contact описывает обращение покупателя в поддержку.
type Contact struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Message      string    `json:"message"`
	ReplyMessage string    `json:"replyMessage,omitempty"`
	RepliedBy    *int64    `json:"repliedBy,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}
