package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox/idempotency"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox/payloads"
)

const fanoutConsumer = "notification-fanout"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type orderDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type returnDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderItemReturn, error)
}

// Consumer fans domain events out into per-user notifications. Each
// notification is persisted first and then pushed through the sink.
type Consumer struct {
	repo         repository
	orders       orderDirectory
	returns      returnDirectory
	sink         Sink
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fan-out consumer.
func NewConsumer(repo repository, orders orderDirectory, returns returnDirectory, sink Sink, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders directory required")
	}
	if returns == nil {
		return nil, fmt.Errorf("returns directory required")
	}
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		orders:       orders,
		returns:      returns,
		sink:         sink,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, fanoutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.route(ctx, eventType, envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification fan-out failed", err)
		_ = c.idempotency.Delete(ctx, fanoutConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) route(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderPlaced:
		return c.onOrderPlaced(ctx, data)
	case enums.EventOrderDelivered:
		return c.onOrderDelivered(ctx, data)
	case enums.EventPaymentCaptured, enums.EventPaymentFailed:
		return c.onPaymentStatus(ctx, data)
	case enums.EventRefundIssued:
		return c.onRefundIssued(ctx, data)
	case enums.EventReturnApproved:
		return c.onReturnApproved(ctx, data)
	case enums.EventReturnCompleted:
		return c.onReturnCompleted(ctx, data)
	case enums.EventCourierAssigned:
		return c.onCourierAssigned(ctx, data)
	default:
		return nil
	}
}

func (c *Consumer) onOrderPlaced(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderPlacedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order_placed payload: %w", err)
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   payload.UserID,
		Audience: enums.NotificationAudienceBuyer,
		Type:     enums.NotificationTypeOrderUpdate,
		Title:    "Order placed",
		Message:  fmt.Sprintf("Order #%d is with the sellers for confirmation.", payload.OrderNumber),
		Link:     orderLink(payload.OrderID),
	})
}

func (c *Consumer) onOrderDelivered(ctx context.Context, data json.RawMessage) error {
	var payload payloads.OrderDeliveredEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order_delivered payload: %w", err)
	}
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   order.UserID,
		Audience: enums.NotificationAudienceBuyer,
		Type:     enums.NotificationTypeDeliveryUpdate,
		Title:    "Order delivered",
		Message:  fmt.Sprintf("Order #%d has been delivered. Enjoy!", order.OrderNumber),
		Link:     orderLink(order.ID),
	})
}

func (c *Consumer) onPaymentStatus(ctx context.Context, data json.RawMessage) error {
	var payload payloads.PaymentStatusEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse payment payload: %w", err)
	}
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}

	title := "Payment received"
	message := fmt.Sprintf("Payment of %s for order #%d was captured.", payload.Amount.StringFixed(2), order.OrderNumber)
	if payload.Status == enums.PaymentStatusFailed {
		title = "Payment failed"
		message = fmt.Sprintf("Payment for order #%d failed and the order was cancelled.", order.OrderNumber)
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   order.UserID,
		Audience: enums.NotificationAudienceBuyer,
		Type:     enums.NotificationTypeOrderUpdate,
		Title:    title,
		Message:  message,
		Link:     orderLink(order.ID),
	})
}

func (c *Consumer) onRefundIssued(ctx context.Context, data json.RawMessage) error {
	var payload payloads.RefundIssuedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse refund_issued payload: %w", err)
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   payload.UserID,
		Audience: enums.NotificationAudienceBuyer,
		Type:     enums.NotificationTypePayout,
		Title:    "Refund credited",
		Message:  fmt.Sprintf("%s has been credited to your wallet.", payload.Amount.StringFixed(2)),
		Link:     stringPtr("/wallet"),
	})
}

func (c *Consumer) onReturnApproved(ctx context.Context, data json.RawMessage) error {
	var payload payloads.ReturnApprovedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse return_approved payload: %w", err)
	}
	ret, err := c.returns.FindByID(ctx, payload.ReturnID)
	if err != nil {
		return fmt.Errorf("load return %s: %w", payload.ReturnID, err)
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   ret.UserID,
		Audience: enums.NotificationAudienceBuyer,
		Type:     enums.NotificationTypeReturnUpdate,
		Title:    "Return approved",
		Message:  "The seller approved your return. A courier will pick the item up soon.",
		Link:     returnLink(ret.ID),
	})
}

func (c *Consumer) onReturnCompleted(ctx context.Context, data json.RawMessage) error {
	var payload payloads.ReturnCompletedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse return_completed payload: %w", err)
	}
	ret, err := c.returns.FindByID(ctx, payload.ReturnID)
	if err != nil {
		return fmt.Errorf("load return %s: %w", payload.ReturnID, err)
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   ret.UserID,
		Audience: enums.NotificationAudienceBuyer,
		Type:     enums.NotificationTypeReturnUpdate,
		Title:    "Return completed",
		Message:  fmt.Sprintf("Your return finished and %s was refunded to your wallet.", refundAmount(payload.RefundAmount)),
		Link:     returnLink(ret.ID),
	})
}

func (c *Consumer) onCourierAssigned(ctx context.Context, data json.RawMessage) error {
	var payload payloads.CourierAssignedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse courier_assigned payload: %w", err)
	}
	title := "Delivery job accepted"
	if payload.Type == enums.AssignmentTypeReturnPickup {
		title = "Return pickup accepted"
	}
	return c.deliver(ctx, &models.Notification{
		UserID:   payload.CourierID,
		Audience: enums.NotificationAudienceCourier,
		Type:     enums.NotificationTypeDeliveryUpdate,
		Title:    title,
		Message:  "Route details are ready in your job list.",
		Link:     stringPtr(fmt.Sprintf("/courier/jobs/%s", payload.AssignmentID)),
	})
}

// deliver persists the row and then pushes it. A push failure is logged
// and swallowed so the event is not redelivered for a transient sink
// outage, the in-app row already exists.
func (c *Consumer) deliver(ctx context.Context, notification *models.Notification) error {
	if err := c.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	if err := c.sink.Push(ctx, notification); err != nil {
		c.logg.Error(ctx, "push delivery failed", err)
	}
	return nil
}

func orderLink(orderID uuid.UUID) *string {
	return stringPtr(fmt.Sprintf("/orders/%s", orderID))
}

func returnLink(returnID uuid.UUID) *string {
	return stringPtr(fmt.Sprintf("/returns/%s", returnID))
}

func refundAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func stringPtr(value string) *string {
	return &value
}
