package domain

import "github.com/shopspring/decimal"

// moneyPlaces is the rounding applied to computed money amounts.
const moneyPlaces = 2

// CheckoutQuote is the priced, unpersisted summary of a cart.
type CheckoutQuote struct {
	Principal string
	Currency  Currency
	Subtotal  decimal.Decimal
	TaxName   string
	TaxRate   decimal.Decimal
	TaxTotal  decimal.Decimal
	Shipping  decimal.Decimal
	Weight    decimal.Decimal
	Total     decimal.Decimal
}

// PriceCart computes a quote from cart lines and reference data. It is a pure
// function: the same inputs always yield the same quote.
func PriceCart(lines []CartLine, tax Tax, ship ShipSetting, currency Currency) CheckoutQuote {
	subtotal := decimal.Zero
	weight := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal = subtotal.Add(l.UnitPrice.Mul(qty))
		weight = weight.Add(l.Weight.Mul(qty))
	}

	shipping := ship.Price(currency)
	taxTotal := subtotal.Mul(tax.Rate).Round(moneyPlaces)

	return CheckoutQuote{
		Currency: currency,
		Subtotal: subtotal,
		TaxName:  tax.Name,
		TaxRate:  tax.Rate,
		TaxTotal: taxTotal,
		Shipping: shipping,
		Weight:   weight,
		Total:    subtotal.Add(shipping).Add(taxTotal),
	}
}
