package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// OrderPlacedEvent signals a checkout that produced a new order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   int64               `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	ZoneID        uuid.UUID           `json:"zone_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PayableTotal  decimal.Decimal     `json:"payable_total"`
	StoreCount    int                 `json:"store_count"`
}

// OrderCancelledEvent is emitted when a buyer cancels a whole order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderItemStateChangedEvent records one item moving along the
// fulfillment path.
type OrderItemStateChangedEvent struct {
	OrderItemID   uuid.UUID             `json:"order_item_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	SellerOrderID uuid.UUID             `json:"seller_order_id"`
	From          enums.OrderItemStatus `json:"from"`
	To            enums.OrderItemStatus `json:"to"`
	ActorRole     string                `json:"actor_role,omitempty"`
}

// OrderItemCancelledEvent is emitted when a single line is cancelled
// and the order totals were recalculated.
type OrderItemCancelledEvent struct {
	OrderItemID  uuid.UUID       `json:"order_item_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// OrderDeliveredEvent surfaces the completed delivery.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CourierID   uuid.UUID `json:"courier_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// PaymentStatusEvent carries capture and failure outcomes.
type PaymentStatusEvent struct {
	OrderID    uuid.UUID           `json:"order_id"`
	Status     enums.PaymentStatus `json:"status"`
	Amount     decimal.Decimal     `json:"amount"`
	PaymentRef string              `json:"payment_ref,omitempty"`
}

// CashCollectedEvent records COD cash handed to a courier.
type CashCollectedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	CourierID   uuid.UUID       `json:"courier_id"`
	Amount      decimal.Decimal `json:"amount"`
	CollectedAt time.Time       `json:"collected_at"`
}

// RefundIssuedEvent records a wallet refund credited to a buyer.
type RefundIssuedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderItemID *uuid.UUID      `json:"order_item_id,omitempty"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"`
}

// ReturnRequestedEvent is emitted when a buyer opens a return.
type ReturnRequestedEvent struct {
	ReturnID    uuid.UUID `json:"return_id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	UserID      uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason"`
}

// ReturnApprovedEvent is emitted when the seller approves a return.
type ReturnApprovedEvent struct {
	ReturnID   uuid.UUID `json:"return_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	ApprovedAt time.Time `json:"approved_at"`
}

// ReturnCompletedEvent closes a return after the refund succeeded.
type ReturnCompletedEvent struct {
	ReturnID     uuid.UUID       `json:"return_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// ReturnRefundParkedEvent flags a return whose refund attempt failed
// and is waiting for reconciliation.
type ReturnRefundParkedEvent struct {
	ReturnID uuid.UUID       `json:"return_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// SellerStatementEvent records a credit or debit posted to a seller.
type SellerStatementEvent struct {
	StatementID uuid.UUID                `json:"statement_id"`
	SellerID    uuid.UUID                `json:"seller_id"`
	EntryType   enums.StatementEntryType `json:"entry_type"`
	Reason      enums.StatementReason    `json:"reason"`
	Amount      decimal.Decimal          `json:"amount"`
}

// CourierAssignedEvent is emitted when a courier picks up a job.
type CourierAssignedEvent struct {
	AssignmentID uuid.UUID            `json:"assignment_id"`
	CourierID    uuid.UUID            `json:"courier_id"`
	OrderID      *uuid.UUID           `json:"order_id,omitempty"`
	ReturnID     *uuid.UUID           `json:"return_id,omitempty"`
	Type         enums.AssignmentType `json:"type"`
}

// NotificationRequestedEvent tells downstream systems to alert a user.
type NotificationRequestedEvent struct {
	UserID   uuid.UUID                  `json:"user_id"`
	Audience enums.NotificationAudience `json:"audience"`
	Type     enums.NotificationType     `json:"type"`
	Title    string                     `json:"title"`
	Message  string                     `json:"message"`
}
