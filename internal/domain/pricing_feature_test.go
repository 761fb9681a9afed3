package domain_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

type pricingTestContext struct {
	tax    domain.Tax
	ship   domain.ShipSetting
	lines  []domain.CartLine
	quote  domain.CheckoutQuote
	repeat domain.CheckoutQuote
}

func (c *pricingTestContext) reset() {
	*c = pricingTestContext{}
}

func (c *pricingTestContext) theActiveTaxIsAtRate(name, rate string) error {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return err
	}
	c.tax = domain.Tax{ID: domain.ActiveTaxID, Name: name, Rate: r}
	return nil
}

func (c *pricingTestContext) shippingCosts(usd, ngn string) error {
	c.ship = domain.ShipSetting{
		Country:  domain.DefaultShipCountry,
		UsdPrice: decimal.RequireFromString(usd),
		NgnPrice: decimal.RequireFromString(ngn),
	}
	return nil
}

func (c *pricingTestContext) theCartHolds(qty int, sku, price, weight string) error {
	c.lines = append(c.lines, domain.CartLine{
		Sku:       sku,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Weight:    decimal.RequireFromString(weight),
	})
	return nil
}

func (c *pricingTestContext) theCartIsPricedIn(currency string) error {
	cur, err := domain.ParseCurrency(currency)
	if err != nil {
		return err
	}
	c.quote = domain.PriceCart(c.lines, c.tax, c.ship, cur)
	return nil
}

func (c *pricingTestContext) theCartIsPricedAgain(currency string) error {
	cur, err := domain.ParseCurrency(currency)
	if err != nil {
		return err
	}
	c.repeat = domain.PriceCart(c.lines, c.tax, c.ship, cur)
	return nil
}

func expectMoney(field string, got decimal.Decimal, want string) error {
	if got.StringFixed(2) != want {
		return fmt.Errorf("%s: expected %s, got %s", field, want, got.StringFixed(2))
	}
	return nil
}

func (c *pricingTestContext) theSubtotalIs(want string) error {
	return expectMoney("subtotal", c.quote.Subtotal, want)
}

func (c *pricingTestContext) theTaxIs(want string) error {
	return expectMoney("tax", c.quote.TaxTotal, want)
}

func (c *pricingTestContext) theShippingIs(want string) error {
	return expectMoney("shipping", c.quote.Shipping, want)
}

func (c *pricingTestContext) theWeightIs(want string) error {
	return expectMoney("weight", c.quote.Weight, want)
}

func (c *pricingTestContext) theTotalIs(want string) error {
	return expectMoney("total", c.quote.Total, want)
}

func (c *pricingTestContext) bothQuotesAreIdentical() error {
	a, b := c.quote, c.repeat
	if !a.Total.Equal(b.Total) || !a.Subtotal.Equal(b.Subtotal) ||
		!a.TaxTotal.Equal(b.TaxTotal) || !a.Weight.Equal(b.Weight) {
		return fmt.Errorf("quotes differ: %+v vs %+v", a, b)
	}
	return nil
}

func InitializePricingScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the active tax is "([^"]*)" at rate ([\d.]+)$`, tc.theActiveTaxIsAtRate)
	ctx.Step(`^shipping costs ([\d.]+) USD and ([\d.]+) NGN$`, tc.shippingCosts)
	ctx.Step(`^the cart holds (\d+) of "([^"]*)" at ([\d.]+) weighing ([\d.]+) kg$`, tc.theCartHolds)

	// When steps
	ctx.Step(`^the cart is priced in "([^"]*)"$`, tc.theCartIsPricedIn)
	ctx.Step(`^the cart is priced in "([^"]*)" again$`, tc.theCartIsPricedAgain)

	// Then steps
	ctx.Step(`^the subtotal is ([\d.]+)$`, tc.theSubtotalIs)
	ctx.Step(`^the tax is ([\d.]+)$`, tc.theTaxIs)
	ctx.Step(`^the shipping is ([\d.]+)$`, tc.theShippingIs)
	ctx.Step(`^the weight is ([\d.]+) kg$`, tc.theWeightIs)
	ctx.Step(`^the total is ([\d.]+)$`, tc.theTotalIs)
	ctx.Step(`^both quotes are identical$`, tc.bothQuotesAreIdentical)
}

func TestPricingFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializePricingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
