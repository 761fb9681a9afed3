package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ShoppingSession is the anonymous cart owned by a device cookie.
type ShoppingSession struct {
	ID           int64
	Cookie       string
	CreatedAtUtc time.Time
	ExpireAtUtc  time.Time
}

// CartLine is a cart item priced in one currency.
type CartLine struct {
	Sku       string
	Quantity  int
	UnitPrice decimal.Decimal
	Weight    decimal.Decimal
}

// CartKey recovers the session lookup key from a cart cookie value of the
// form "<sessionKey><split><suffix>".
func CartKey(cookieValue, split string) string {
	if split == "" {
		return strings.TrimSpace(cookieValue)
	}
	key, _, _ := strings.Cut(cookieValue, split)
	return strings.TrimSpace(key)
}
