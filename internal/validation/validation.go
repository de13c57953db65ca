// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mmeshcher/bakeshop-system/internal/model"
)

// Slugify строит слаг из названия: нижний регистр, разделители — дефисы.
func Slugify(name string) string {
	var b strings.Builder
	prevDash := true // ведущие дефисы не нужны

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteRune('-')
				prevDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// ValidateProduct проверяет инварианты товара на административном пути записи.
func ValidateProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if p.Price <= 0 {
		return errors.New("product price must be positive")
	}
	if p.SalePrice < 0 {
		return errors.New("sale price must not be negative")
	}
	if p.SalePrice > 0 && p.SalePrice >= p.Price {
		return errors.New("sale price must be below the base price")
	}
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return validateFlashSale(p)
}

// validateFlashSale проверяет поля флеш-распродажи: положительная цена ниже
// базовой, квота в пределах остатка, продано не больше квоты, окно задано
// и непустое. Путь оформления заказа эти поля не перепроверяет — он только
// увеличивает счётчик проданного.
func validateFlashSale(p *model.Product) error {
	if !p.IsFlashSale {
		return nil
	}
	if p.FlashSalePrice <= 0 {
		return errors.New("flash sale price must be positive")
	}
	if p.FlashSalePrice >= p.Price {
		return errors.New("flash sale price must be below the base price")
	}
	if p.FlashSaleTotal < 0 {
		return errors.New("flash sale allocation must not be negative")
	}
	if p.FlashSaleTotal > p.Stock {
		return fmt.Errorf("flash sale allocation %d exceeds stock %d", p.FlashSaleTotal, p.Stock)
	}
	if p.FlashSaleTotal > 0 && p.FlashSaleSold > p.FlashSaleTotal {
		return fmt.Errorf("flash sale sold %d exceeds allocation %d", p.FlashSaleSold, p.FlashSaleTotal)
	}
	if p.FlashSaleStart == nil || p.FlashSaleEnd == nil {
		return errors.New("flash sale window is required")
	}
	if p.FlashSaleEnd.Before(*p.FlashSaleStart) {
		return errors.New("flash sale window must not be empty")
	}
	return nil
}

// ValidateRating проверяет оценку отзыва.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}
