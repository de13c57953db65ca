// Package notify отправляет асинхронные уведомления о событиях заказов в Kafka.
//
// Отправка никогда не блокирует и не откатывает породившую её операцию:
// ошибки публикации только логируются.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmeshcher/bakeshop-system/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Типы событий заказа.
const (
	EventOrderCreated   = "OrderCreated"
	EventOrderDelivered = "OrderDelivered"
	EventOrderCompleted = "OrderCompleted"
	EventOrderCancelled = "OrderCancelled"
)

// Topic — единый топик событий заказов. Ключ партиционирования — id заказа,
// чтобы события одного заказа сохраняли порядок.
const Topic = "bakeshop.order.events"

// Envelope — конверт события заказа (версия 1).
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	OrderID      string          `json:"order_id"`
	Payload      json.RawMessage `json:"payload"`
}

// OrderEventPayload — полезная нагрузка события заказа.
type OrderEventPayload struct {
	OrderID    string            `json:"order_id"`
	UserID     int64             `json:"user_id"`
	Status     model.OrderStatus `json:"status"`
	TotalPrice int64             `json:"total_price"`
}

// KafkaNotifier публикует события заказов через буферизованный канал:
// горутина-писатель забирает сообщения из inbox и пишет их в Kafka.
type KafkaNotifier struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	service string
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaNotifier создаёт нотификатор для указанных брокеров.
func NewKafkaNotifier(brokers []string, service string, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, 1024),
		closeCh: make(chan struct{}),
		service: service,
		logger:  logger,
	}
}

// Start запускает горутину-писатель. Она работает до вызова Close:
// inbox закрывает только Close, поэтому публикации из запросов,
// дорабатывающих во время остановки HTTP-сервера, безопасны.
func (n *KafkaNotifier) Start() {
	go func() {
		for m := range n.inbox {
			if err := n.w.WriteMessages(context.Background(), m); err != nil {
				n.logger.Warn("notify publish failed",
					zap.Error(err), zap.ByteString("key", m.Key))
			}
		}
		_ = n.w.Close()
		close(n.closeCh)
	}()
}

// Close останавливает приём новых событий и закрывает inbox. Вызывается
// после остановки HTTP-сервера: к этому моменту новые публикации
// невозможны, а остаток inbox дописывается горутиной-писателем.
// Повторный вызов безопасен.
func (n *KafkaNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.inbox)
}

// WaitClosed блокируется до завершения горутины-писателя.
func (n *KafkaNotifier) WaitClosed() { <-n.closeCh }

func (n *KafkaNotifier) publish(eventType string, o *model.Order) {
	payload, err := json.Marshal(OrderEventPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
	})
	if err != nil {
		n.logger.Warn("notify marshal failed", zap.Error(err))
		return
	}

	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     n.service,
		OrderID:      o.ID,
		Payload:      payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		n.logger.Warn("notify marshal failed", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	// Блокировка чтения закрывает гонку с Close: отправка в закрытый
	// inbox невозможна. После Close событие отбрасывается с записью в лог.
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Warn("notify closed, event dropped",
			zap.String("event", eventType), zap.String("order", o.ID))
		return
	}

	// Переполненный inbox не должен блокировать запрос: событие
	// отбрасывается с записью в лог.
	select {
	case n.inbox <- msg:
	default:
		n.logger.Warn("notify inbox full, event dropped",
			zap.String("event", eventType), zap.String("order", o.ID))
	}
}

// OrderCreated публикует событие создания заказа.
func (n *KafkaNotifier) OrderCreated(o *model.Order) {
	n.publish(EventOrderCreated, o)
}

// OrderStatusChanged публикует событие смены статуса для переходов
// в delivered, completed и cancelled. Остальные статусы событий не порождают.
func (n *KafkaNotifier) OrderStatusChanged(o *model.Order) {
	switch o.Status {
	case model.OrderStatusDelivered:
		n.publish(EventOrderDelivered, o)
	case model.OrderStatusCompleted:
		n.publish(EventOrderCompleted, o)
	case model.OrderStatusCancelled:
		n.publish(EventOrderCancelled, o)
	}
}
