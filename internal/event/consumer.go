package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Invalidator drops cached catalog data. *catalog.Store satisfies it.
type Invalidator interface {
	Invalidate()
}

// Consumer handles events that affect data cached by the API.
type Consumer struct {
	catalog Invalidator
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(catalog Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		catalog: catalog,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicCatalogUpdated:
		return c.handleCatalogUpdated(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleCatalogUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data CatalogUpdatedData
	if err := event.DecodeData(&data); err != nil {
		return fmt.Errorf("unmarshal catalog.updated data: %w", err)
	}

	c.catalog.Invalidate()

	c.logger.InfoContext(ctx, "catalog cache invalidated",
		slog.Int("product_count", len(data.ProductIDs)),
		slog.String("event_id", event.EventID),
	)
	return nil
}
