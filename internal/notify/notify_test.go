package notify

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mmeshcher/bakeshop-system/internal/model"
)

func testOrder(status model.OrderStatus) *model.Order {
	return &model.Order{
		ID:         "order-1",
		UserID:     7,
		Status:     status,
		TotalPrice: 140000,
	}
}

func TestPublish_EnvelopeShape(t *testing.T) {
	n := NewKafkaNotifier([]string{"localhost:9092"}, "bakeshop-test", zap.NewNop())

	n.OrderCreated(testOrder(model.OrderStatusPending))

	select {
	case msg := <-n.inbox:
		if string(msg.Key) != "order-1" {
			t.Fatalf("message key = %q, want order id", msg.Key)
		}

		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.EventType != EventOrderCreated {
			t.Fatalf("event type = %q, want %q", env.EventType, EventOrderCreated)
		}
		if env.EventID == "" || env.OccurredAt.IsZero() {
			t.Fatalf("envelope missing id or timestamp: %+v", env)
		}
		if env.Producer != "bakeshop-test" || env.OrderID != "order-1" {
			t.Fatalf("envelope identity fields wrong: %+v", env)
		}

		var payload OrderEventPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.UserID != 7 || payload.TotalPrice != 140000 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	default:
		t.Fatalf("no message in inbox")
	}
}

func TestOrderStatusChanged_OnlyTerminalAndDelivered(t *testing.T) {
	n := NewKafkaNotifier([]string{"localhost:9092"}, "bakeshop-test", zap.NewNop())

	n.OrderStatusChanged(testOrder(model.OrderStatusConfirmed))
	if len(n.inbox) != 0 {
		t.Fatalf("confirmed must not publish an event")
	}

	n.OrderStatusChanged(testOrder(model.OrderStatusDelivered))
	n.OrderStatusChanged(testOrder(model.OrderStatusCompleted))
	n.OrderStatusChanged(testOrder(model.OrderStatusCancelled))
	if len(n.inbox) != 3 {
		t.Fatalf("inbox has %d messages, want 3", len(n.inbox))
	}
}

func TestPublish_AfterCloseDropsWithoutPanic(t *testing.T) {
	n := NewKafkaNotifier([]string{"localhost:9092"}, "bakeshop-test", zap.NewNop())

	n.Close()
	// Запрос, дорабатывающий во время остановки сервера, ещё может
	// публиковать события: они отбрасываются, но не роняют процесс.
	n.OrderCreated(testOrder(model.OrderStatusPending))
	n.OrderStatusChanged(testOrder(model.OrderStatusCancelled))

	// Повторный Close тоже безопасен.
	n.Close()
}

func TestStart_DrainsInboxAfterClose(t *testing.T) {
	n := NewKafkaNotifier([]string{"localhost:9092"}, "bakeshop-test", zap.NewNop())

	n.OrderCreated(testOrder(model.OrderStatusPending))
	n.Close()

	// Писатель дописывает остаток inbox и завершается; WriteMessages
	// упадёт без брокера, но это только предупреждение в логе.
	n.Start()
	n.WaitClosed()
}

func TestPublish_DropsWhenInboxFull(t *testing.T) {
	n := NewKafkaNotifier([]string{"localhost:9092"}, "bakeshop-test", zap.NewNop())
	n.inbox = make(chan kafka.Message, 1)

	n.OrderCreated(testOrder(model.OrderStatusPending))
	// Второе событие не должно блокировать вызывающий код.
	n.OrderCreated(testOrder(model.OrderStatusPending))

	if len(n.inbox) != 1 {
		t.Fatalf("inbox has %d messages, want 1", len(n.inbox))
	}
}
