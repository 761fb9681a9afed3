package domain

import (
	"fmt"
	"strings"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyNGN Currency = "NGN"
)

// ParseCurrency accepts the supported currencies case-insensitively.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case CurrencyUSD, CurrencyNGN:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unsupported currency %q", ErrInvalidArgument, s)
	}
}
