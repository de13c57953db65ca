package model

// OrderStatus описывает статус жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValidOrderStatus проверяет, что значение входит в закрытый набор статусов.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// validNext задаёт штатные переходы жизненного цикла:
// pending -> confirmed -> delivered -> completed, отмена возможна
// только из pending. Терминальные статусы: completed, cancelled.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusDelivered: true},
	OrderStatusDelivered: {OrderStatusCompleted: true},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransition сообщает, является ли переход from -> to штатным.
// Администратор не ограничен этой таблицей, но нештатные переходы логируются.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal сообщает, является ли статус терминальным.
func IsTerminal(s OrderStatus) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}
