// Package pricing реализует резолв эффективной цены товара.
//
// Приоритет цен фиксированный и не переупорядочивается:
// флеш-распродажа > обычная скидка > базовая цена.
package pricing

import (
	"time"

	"github.com/mmeshcher/bakeshop-system/internal/model"
)

// Source указывает, по какой ветке была получена эффективная цена.
type Source int

const (
	SourceBase Source = iota
	SourceSale
	SourceFlashSale
)

// String возвращает текстовое обозначение источника цены.
func (s Source) String() string {
	switch s {
	case SourceFlashSale:
		return "flash_sale"
	case SourceSale:
		return "sale"
	default:
		return "base"
	}
}

// FlashActive сообщает, активна ли флеш-распродажа товара в момент now.
// Сохранённый флаг IsFlashSale — только намерение: активность требует
// положительной цены, непустого окна и попадания now в окно включительно.
// Нулевые границы окна трактуются как "никогда не активна".
// Исчерпанная квота (FlashSaleTotal > 0 и FlashSaleSold >= FlashSaleTotal)
// также выключает распродажу; FlashSaleTotal == 0 означает квоту без лимита.
func FlashActive(p *model.Product, now time.Time) bool {
	if !p.IsFlashSale || p.FlashSalePrice <= 0 {
		return false
	}
	if p.FlashSaleStart == nil || p.FlashSaleEnd == nil {
		return false
	}
	if p.FlashSaleStart.IsZero() || p.FlashSaleEnd.IsZero() {
		return false
	}
	if now.Before(*p.FlashSaleStart) || now.After(*p.FlashSaleEnd) {
		return false
	}
	if p.FlashSaleTotal > 0 && p.FlashSaleSold >= p.FlashSaleTotal {
		return false
	}
	return true
}

// Resolve возвращает эффективную цену единицы товара в момент now.
// Функция чистая: ничего не изменяет, в том числе флаг IsFlashSale, —
// витринная «коррекция» флага вне окна выполняется на чтении и никогда
// не сохраняется.
func Resolve(p *model.Product, now time.Time) (int64, Source) {
	if FlashActive(p, now) {
		return p.FlashSalePrice, SourceFlashSale
	}
	if p.SalePrice > 0 && p.SalePrice < p.Price {
		return p.SalePrice, SourceSale
	}
	return p.Price, SourceBase
}

// ResolveForQty резолвит цену для покупки qty единиц. Если оставшаяся
// квота распродажи не покрывает qty целиком, вся позиция уходит по
// не-флеш цене (частичный сплит позиции не делаем).
func ResolveForQty(p *model.Product, now time.Time, qty int) (int64, Source) {
	price, src := Resolve(p, now)
	if src != SourceFlashSale {
		return price, src
	}
	if p.FlashSaleTotal > 0 && p.FlashSaleSold+qty > p.FlashSaleTotal {
		if p.SalePrice > 0 && p.SalePrice < p.Price {
			return p.SalePrice, SourceSale
		}
		return p.Price, SourceBase
	}
	return price, src
}
