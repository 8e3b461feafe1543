package service

import (
	"strings"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

// Card brands recognized by prefix.
const (
	CardBrandVisa       = "Visa"
	CardBrandMastercard = "Mastercard"
	CardBrandAmex       = "American Express"
	CardBrandDiscover   = "Discover"
	CardBrandUnknown    = "Unknown"
)

// DetectCardBrand classifies a card number by its issuer prefix.
func DetectCardBrand(number string) string {
	number = normalizeCardNumber(number)
	switch {
	case strings.HasPrefix(number, "4"):
		return CardBrandVisa
	case len(number) >= 2 && number[0] == '5' && number[1] >= '1' && number[1] <= '5':
		return CardBrandMastercard
	case strings.HasPrefix(number, "34") || strings.HasPrefix(number, "37"):
		return CardBrandAmex
	case strings.HasPrefix(number, "6011") || strings.HasPrefix(number, "65"):
		return CardBrandDiscover
	default:
		return CardBrandUnknown
	}
}

// MaskCard reduces raw card input to the subset safe to persist. The full
// number and CVV are dropped here and never reach storage.
func MaskCard(input *models.CardInput) *models.CardDetails {
	number := normalizeCardNumber(input.CardNumber)
	lastFour := number
	if len(number) > 4 {
		lastFour = number[len(number)-4:]
	}
	return &models.CardDetails{
		LastFour:   lastFour,
		CardType:   DetectCardBrand(number),
		ExpiryDate: input.ExpDate,
	}
}

func validateCard(card *models.CardInput) error {
	number := normalizeCardNumber(card.CardNumber)
	if len(number) < 13 || len(number) > 19 || !allDigits(number) {
		return apperrors.NewValidationError("cardNumber", "card number must be 13 to 19 digits")
	}
	if l := len(card.CVV); l < 3 || l > 4 || !allDigits(card.CVV) {
		return apperrors.NewValidationError("cvv", "cvv must be 3 or 4 digits")
	}
	if card.ExpDate == "" {
		return apperrors.NewValidationError("expDate", "expiry date is required")
	}
	return nil
}

func normalizeCardNumber(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	return strings.ReplaceAll(number, "-", "")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
