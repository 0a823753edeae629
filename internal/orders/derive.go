package orders

import (
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// deriveSellerOrderStatus summarizes a seller's slice of an order from
// its item statuses. Cancelled and failed items drop out of the
// derivation; rejected items only matter when nothing else is left.
func deriveSellerOrderStatus(items []models.OrderItem) enums.SellerOrderStatus {
	var awaiting, delivered, rejected, live int
	for _, item := range items {
		switch item.Status {
		case enums.OrderItemStatusRejected:
			rejected++
		case enums.OrderItemStatusCancelled, enums.OrderItemStatusFailed:
			// dropped from the derivation
		case enums.OrderItemStatusPending, enums.OrderItemStatusAwaitingStoreResponse:
			awaiting++
			live++
		case enums.OrderItemStatusDelivered, enums.OrderItemStatusReturned, enums.OrderItemStatusRefunded:
			delivered++
			live++
		default:
			live++
		}
	}
	switch {
	case live == 0 && rejected > 0:
		return enums.SellerOrderStatusRejectedBySeller
	case live == 0:
		return enums.SellerOrderStatusAwaitingStoreResponse
	case awaiting == live:
		return enums.SellerOrderStatusAwaitingStoreResponse
	case awaiting > 0:
		return enums.SellerOrderStatusPartiallyAccepted
	case delivered == live:
		return enums.SellerOrderStatusCompleted
	default:
		return enums.SellerOrderStatusReadyForPickup
	}
}

// deriveDeliveryStatus summarizes courier progress over the items that
// are still travelling. Rejected, cancelled and failed items do not
// count.
func deriveDeliveryStatus(items []models.OrderItem, hasAssignment bool) enums.DeliveryStatus {
	var live, delivered, moving int
	for _, item := range items {
		switch item.Status {
		case enums.OrderItemStatusRejected, enums.OrderItemStatusCancelled, enums.OrderItemStatusFailed:
			continue
		case enums.OrderItemStatusDelivered, enums.OrderItemStatusReturned, enums.OrderItemStatusRefunded:
			delivered++
			moving++
		case enums.OrderItemStatusCollected:
			moving++
		}
		live++
	}
	switch {
	case live == 0:
		return enums.DeliveryStatusPending
	case delivered == live:
		return enums.DeliveryStatusDelivered
	case moving == live:
		return enums.DeliveryStatusOutForDelivery
	case hasAssignment:
		return enums.DeliveryStatusAssigned
	default:
		return enums.DeliveryStatusPending
	}
}

// deriveOrderStatus lifts the buyer-facing order status out of the
// item statuses, surfacing the seller-response phases the same way the
// per-seller derivation does. Items still waiting on payment capture
// keep the order at placed.
func deriveOrderStatus(items []models.OrderItem) enums.OrderStatus {
	var pendingPayment, awaiting, delivered, rejected, live int
	for _, item := range items {
		switch item.Status {
		case enums.OrderItemStatusRejected:
			rejected++
		case enums.OrderItemStatusCancelled, enums.OrderItemStatusFailed:
			// dropped from the derivation
		case enums.OrderItemStatusPending:
			pendingPayment++
			live++
		case enums.OrderItemStatusAwaitingStoreResponse:
			awaiting++
			live++
		case enums.OrderItemStatusDelivered, enums.OrderItemStatusReturned, enums.OrderItemStatusRefunded:
			delivered++
			live++
		default:
			live++
		}
	}
	switch {
	case live == 0 && rejected > 0:
		return enums.OrderStatusRejectedBySeller
	case live == 0:
		return enums.OrderStatusCancelled
	case pendingPayment == live:
		return enums.OrderStatusPlaced
	case pendingPayment+awaiting == live:
		return enums.OrderStatusAwaitingStoreResponse
	case pendingPayment+awaiting > 0:
		return enums.OrderStatusPartiallyAccepted
	case delivered == live:
		return enums.OrderStatusCompleted
	default:
		return enums.OrderStatusReadyForPickup
	}
}
