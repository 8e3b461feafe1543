package service

import (
	"math"

	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// Totals is the server-computed price breakdown of an order.
type Totals struct {
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

// ComputeTotals derives the full price breakdown from the order items.
// Client-supplied totals are never trusted: shipping is free above the
// configured minimum, tax is a flat rate on the items subtotal, and every
// figure is rounded to cents.
func ComputeTotals(items []models.OrderItem, cfg config.PricingConfig) Totals {
	var itemsPrice float64
	for _, item := range items {
		itemsPrice += item.Price * float64(item.Quantity)
	}
	itemsPrice = round2(itemsPrice)

	taxPrice := round2(itemsPrice * cfg.TaxRate)

	shippingPrice := cfg.FlatShippingRate
	if itemsPrice > cfg.FreeShippingMin {
		shippingPrice = 0
	}

	return Totals{
		ItemsPrice:    itemsPrice,
		TaxPrice:      taxPrice,
		ShippingPrice: shippingPrice,
		TotalPrice:    round2(itemsPrice + taxPrice + shippingPrice),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
