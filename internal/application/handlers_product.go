package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/shopspring/decimal"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

const adjustReasonInitialLoad = "INITIAL_LOAD"

type EventHandler interface {
	Handle(ctx context.Context, ev primitives.Event) error
}

// ProductCreatedHandler keeps the local SKU table in step with the catalog.
// A new SKU starts with the catalog's stock quantity; an existing SKU only
// gets its name, weight and prices refreshed, since its inventory is owned
// by reservations from then on.
type ProductCreatedHandler struct {
	store domain.Store
}

func NewProductCreatedHandler(store domain.Store) *ProductCreatedHandler {
	return &ProductCreatedHandler{store: store}
}

func (h *ProductCreatedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		slog.WarnContext(ctx, "ProductCreatedHandler: invalid event type", "type", typeNameOf(ev))
		return nil
	}
	if env.Type != "ProductCreated" {
		return nil
	}

	var payload domain.ProductCreatedPayload
	if err := json.Unmarshal([]byte(env.PayloadJSON), &payload); err != nil {
		slog.WarnContext(ctx, "ProductCreatedHandler: failed to unmarshal payload", "error", err)
		return nil
	}

	if strings.TrimSpace(payload.Sku) == "" {
		slog.WarnContext(ctx, "ProductCreatedHandler: missing sku")
		return nil
	}

	unit, prices, err := catalogData(payload)
	if err != nil {
		slog.WarnContext(ctx, "ProductCreatedHandler: invalid catalog data",
			"sku", payload.Sku,
			"error", err)
		return nil
	}

	slog.InfoContext(ctx, "ProductCreatedHandler: received ProductCreated",
		"sku", payload.Sku,
		"qty", payload.StockQuantity)

	return h.store.InTx(ctx, func(tx domain.Store) error {
		inserted, err := tx.Stock().InsertIfAbsent(ctx, unit)
		if err != nil {
			return err
		}
		if err := tx.Stock().UpdateCatalogData(ctx, unit, prices); err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		return enqueueAll(ctx, tx, domain.NewCatalogStockAdjustedEvent(
			unit.Sku,
			unit.Inventory,
			adjustReasonInitialLoad,
		))
	})
}

func catalogData(p domain.ProductCreatedPayload) (*domain.StockUnit, []domain.SkuPrice, error) {
	weight := decimal.Zero
	if strings.TrimSpace(p.WeightKg) != "" {
		w, err := decimal.NewFromString(p.WeightKg)
		if err != nil {
			return nil, nil, err
		}
		weight = w
	}

	qty := p.StockQuantity
	if qty < 0 {
		qty = 0
	}

	prices := make([]domain.SkuPrice, 0, len(p.Prices))
	for _, pr := range p.Prices {
		c, err := domain.ParseCurrency(pr.Currency)
		if err != nil {
			// prices in currencies we do not sell in are skipped
			continue
		}
		amount, err := decimal.NewFromString(pr.Amount)
		if err != nil {
			return nil, nil, err
		}
		prices = append(prices, domain.SkuPrice{Currency: c, Price: amount})
	}

	return &domain.StockUnit{
		Sku:         strings.TrimSpace(p.Sku),
		ProductName: p.Name,
		Inventory:   qty,
		Weight:      weight,
	}, prices, nil
}
