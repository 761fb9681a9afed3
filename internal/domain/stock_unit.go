package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockUnit is a purchasable SKU. Inventory is the amount still available to
// new holds: PENDING reservations have already been deducted from it.
type StockUnit struct {
	Sku          string
	ProductName  string
	Inventory    int
	Weight       decimal.Decimal
	UpdatedAtUtc time.Time
}

// SkuPrice is the unit price of a SKU in one currency.
type SkuPrice struct {
	Currency Currency
	Price    decimal.Decimal
}
