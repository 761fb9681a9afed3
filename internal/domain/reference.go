package domain

import "github.com/shopspring/decimal"

// ActiveTaxID is the reference row used for every checkout.
const ActiveTaxID int64 = 1

// DefaultShipCountry names the fallback ship setting.
const DefaultShipCountry = "default"

type Tax struct {
	ID   int64           `json:"id"`
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

type ShipSetting struct {
	ID       int64           `json:"id"`
	Country  string          `json:"country"`
	UsdPrice decimal.Decimal `json:"usd_price"`
	NgnPrice decimal.Decimal `json:"ngn_price"`
}

// Price picks the stored shipping price for the currency.
func (s ShipSetting) Price(c Currency) decimal.Decimal {
	if c == CurrencyUSD {
		return s.UsdPrice
	}
	return s.NgnPrice
}
