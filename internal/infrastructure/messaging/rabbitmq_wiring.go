package messaging

import (
	"context"
	"log/slog"

	messaging "github.com/rodolfodevapp/eventshop-messaging-go/rabbitmq"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/application"
)

const (
	CheckoutExchange = "checkout.events"
	CatalogExchange  = "catalog.events"
)

func options(rabbitUri, exchange, queuePrefix string) messaging.RabbitMqOptions {
	return messaging.RabbitMqOptions{
		URI:          rabbitUri,
		ExchangeName: exchange,
		QueuePrefix:  queuePrefix,
		Prefetch:     32,
		RetryDelayMs: 30000,
	}
}

// Producer for checkout.events, fed by the outbox dispatcher.
func NewProducerBus(rabbitUri string) *messaging.RabbitMqEventBus {
	return messaging.NewRabbitMqEventBus(options(rabbitUri, CheckoutExchange, "checkout.dispatcher.v1"), nil, nil)
}

// Consumer for catalog.events
func NewCatalogEventBus(rabbitUri, queuePrefix string) *messaging.RabbitMqEventBus {
	return messaging.NewRabbitMqEventBus(options(rabbitUri, CatalogExchange, queuePrefix), nil, nil)
}

func RegisterCatalogSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	productCreatedHandler application.EventHandler,
) error {
	bus.Subscribe("ProductCreated", productCreatedHandler)

	if err := bus.StartConsumers(ctx); err != nil {
		slog.ErrorContext(ctx, "error starting catalog consumers", "error", err)
		return err
	}
	return nil
}
