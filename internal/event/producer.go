package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics published by the storefront API.
var (
	TopicCartUpdated    = pkgkafka.Topic("cart", "updated")
	TopicCartCleared    = pkgkafka.Topic("cart", "cleared")
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicCatalogUpdated = pkgkafka.Topic("catalog", "updated")
)

// Aggregate types.
const (
	AggregateTypeCart    = "cart"
	AggregateTypeUser    = "user"
	AggregateTypeCatalog = "catalog"
)

// Source identifies events originating from this service.
const Source = "storefront-api"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID      string         `json:"user_id"`
	Version     int            `json:"version"`
	Items       []CartItemData `json:"items"`
	SavedCount  int            `json:"saved_count"`
	ItemCount   int            `json:"item_count"`
	TotalAmount int64          `json:"total_amount"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CatalogUpdatedData is the payload for a catalog.updated event. An empty
// ProductIDs means the whole catalog changed.
type CatalogUpdatedData struct {
	ProductIDs []string `json:"product_ids,omitempty"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, 0, len(cart.Cart))
	for _, li := range cart.Cart {
		items = append(items, CartItemData{
			ProductID: li.Product.ID,
			Size:      li.Size,
			Color:     li.Color,
			Price:     li.Product.Price,
			Quantity:  li.Quantity,
		})
	}

	data := CartUpdatedData{
		UserID:      cart.UserID,
		Version:     cart.Version,
		Items:       items,
		SavedCount:  len(cart.SavedForLater),
		ItemCount:   cart.TotalItems(),
		TotalAmount: cart.TotalPrice(),
	}
	return p.publish(ctx, TopicCartUpdated, cart.UserID, AggregateTypeCart, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicCartCleared, userID, AggregateTypeCart, CartClearedData{UserID: userID})
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{ID: user.ID, Name: user.Name, Email: user.Email}
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, data)
}

// PublishCatalogUpdated publishes a catalog.updated event.
func (p *Producer) PublishCatalogUpdated(ctx context.Context, productIDs []string) error {
	return p.publish(ctx, TopicCatalogUpdated, AggregateTypeCatalog, AggregateTypeCatalog,
		CatalogUpdatedData{ProductIDs: productIDs})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
