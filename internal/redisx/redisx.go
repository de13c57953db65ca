// Package redisx содержит клиент Redis и соглашения по ключам кэша.
package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyOrderStatus — кэш статуса заказа: order_status:{order_id} -> статус.
	KeyOrderStatus = "order_status:%s"

	// KeyOrderStats — кэш агрегатов панели администратора (JSON целиком).
	KeyOrderStats = "order_stats"
)

var (
	TTLOrderStatus = 5 * time.Minute
	TTLOrderStats  = 1 * time.Minute
)

// New создаёт клиент Redis. Пустой адрес означает работу без кэша:
// вызывающий код обязан переносить nil-клиент.
func New(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}
