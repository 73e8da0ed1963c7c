package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"agent-storefront/internal/models"
	"agent-storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing order lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPaid publishes OrderPaid event
func (ep *EventPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishOrderFulfilled publishes OrderFulfilled event
func (ep *EventPublisher) PublishOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishFulfillmentFailed publishes FulfillmentFailed event
func (ep *EventPublisher) PublishFulfillmentFailed(ctx context.Context, event *models.FulfillmentFailedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishReceiptMinted publishes ReceiptMinted event
func (ep *EventPublisher) PublishReceiptMinted(ctx context.Context, event *models.ReceiptMintedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishReceiptFailed publishes ReceiptFailed event
func (ep *EventPublisher) PublishReceiptFailed(ctx context.Context, event *models.ReceiptFailedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// EventHandler routes consumed events to registered handlers
type EventHandler struct {
	onReceiptFailed func(context.Context, *models.ReceiptFailedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnReceiptFailed registers a handler for ReceiptFailed events
func (eh *EventHandler) OnReceiptFailed(handler func(context.Context, *models.ReceiptFailedEvent) error) {
	eh.onReceiptFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeReceiptFailed:
		if eh.onReceiptFailed != nil {
			var event models.ReceiptFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReceiptFailed event: %w", err)
			}
			return eh.onReceiptFailed(ctx, &event)
		}

	default:
		// Other lifecycle events are an outbound audit stream only.
		util.GetLogger().Debug("Ignoring event", zap.String("type", baseEvent.EventType))
	}

	return nil
}
