package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateOrderItem  OutboxAggregateType = "order_item"
	AggregateReturn     OutboxAggregateType = "return"
	AggregateStatement  OutboxAggregateType = "statement"
	AggregateAssignment OutboxAggregateType = "assignment"
	AggregateZone       OutboxAggregateType = "zone"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderItem,
	AggregateReturn,
	AggregateStatement,
	AggregateAssignment,
	AggregateZone,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced           OutboxEventType = "order_placed"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventOrderItemStateChanged OutboxEventType = "order_item_state_changed"
	EventOrderItemCancelled    OutboxEventType = "order_item_cancelled"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventPaymentCaptured       OutboxEventType = "payment_captured"
	EventPaymentFailed         OutboxEventType = "payment_failed"
	EventCashCollected         OutboxEventType = "cash_collected"
	EventRefundIssued          OutboxEventType = "refund_issued"
	EventReturnRequested       OutboxEventType = "return_requested"
	EventReturnApproved        OutboxEventType = "return_approved"
	EventReturnCompleted       OutboxEventType = "return_completed"
	EventReturnRefundParked    OutboxEventType = "return_refund_parked"
	EventSellerCredited        OutboxEventType = "seller_credited"
	EventSellerDebited         OutboxEventType = "seller_debited"
	EventCourierAssigned       OutboxEventType = "courier_assigned"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderCancelled,
	EventOrderItemStateChanged,
	EventOrderItemCancelled,
	EventOrderDelivered,
	EventPaymentCaptured,
	EventPaymentFailed,
	EventCashCollected,
	EventRefundIssued,
	EventReturnRequested,
	EventReturnApproved,
	EventReturnCompleted,
	EventReturnRefundParked,
	EventSellerCredited,
	EventSellerDebited,
	EventCourierAssigned,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
