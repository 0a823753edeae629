package orders

import (
	"testing"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

func itemsWith(statuses ...enums.OrderItemStatus) []models.OrderItem {
	items := make([]models.OrderItem, len(statuses))
	for i, status := range statuses {
		items[i].Status = status
	}
	return items
}

func TestDeriveSellerOrderStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []enums.OrderItemStatus
		want     enums.SellerOrderStatus
	}{
		{
			"all awaiting",
			[]enums.OrderItemStatus{enums.OrderItemStatusAwaitingStoreResponse, enums.OrderItemStatusAwaitingStoreResponse},
			enums.SellerOrderStatusAwaitingStoreResponse,
		},
		{
			"pending counts as awaiting",
			[]enums.OrderItemStatus{enums.OrderItemStatusPending},
			enums.SellerOrderStatusAwaitingStoreResponse,
		},
		{
			"all rejected",
			[]enums.OrderItemStatus{enums.OrderItemStatusRejected, enums.OrderItemStatusRejected},
			enums.SellerOrderStatusRejectedBySeller,
		},
		{
			"mixed response",
			[]enums.OrderItemStatus{enums.OrderItemStatusAccepted, enums.OrderItemStatusAwaitingStoreResponse},
			enums.SellerOrderStatusPartiallyAccepted,
		},
		{
			"rejection plus awaiting still awaiting",
			[]enums.OrderItemStatus{enums.OrderItemStatusRejected, enums.OrderItemStatusAwaitingStoreResponse},
			enums.SellerOrderStatusAwaitingStoreResponse,
		},
		{
			"all responded",
			[]enums.OrderItemStatus{enums.OrderItemStatusAccepted, enums.OrderItemStatusPreparing},
			enums.SellerOrderStatusReadyForPickup,
		},
		{
			"all delivered",
			[]enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusDelivered},
			enums.SellerOrderStatusCompleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveSellerOrderStatus(itemsWith(tt.statuses...)); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeriveDeliveryStatus(t *testing.T) {
	tests := []struct {
		name          string
		statuses      []enums.OrderItemStatus
		hasAssignment bool
		want          enums.DeliveryStatus
	}{
		{
			"all delivered",
			[]enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusDelivered},
			true,
			enums.DeliveryStatusDelivered,
		},
		{
			"rejected items ignored",
			[]enums.OrderItemStatus{enums.OrderItemStatusDelivered, enums.OrderItemStatusRejected},
			true,
			enums.DeliveryStatusDelivered,
		},
		{
			"collected plus delivered is out for delivery",
			[]enums.OrderItemStatus{enums.OrderItemStatusCollected, enums.OrderItemStatusDelivered},
			true,
			enums.DeliveryStatusOutForDelivery,
		},
		{
			"preparing with assignment",
			[]enums.OrderItemStatus{enums.OrderItemStatusPreparing},
			true,
			enums.DeliveryStatusAssigned,
		},
		{
			"preparing without assignment",
			[]enums.OrderItemStatus{enums.OrderItemStatusPreparing},
			false,
			enums.DeliveryStatusPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveDeliveryStatus(itemsWith(tt.statuses...), tt.hasAssignment); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []enums.OrderItemStatus
		want     enums.OrderStatus
	}{
		{"all cancelled", []enums.OrderItemStatus{enums.OrderItemStatusCancelled}, enums.OrderStatusCancelled},
		{"cancelled and rejected", []enums.OrderItemStatus{enums.OrderItemStatusCancelled, enums.OrderItemStatusRejected}, enums.OrderStatusRejectedBySeller},
		{"payment pending", []enums.OrderItemStatus{enums.OrderItemStatusPending}, enums.OrderStatusPlaced},
		{"all awaiting", []enums.OrderItemStatus{enums.OrderItemStatusAwaitingStoreResponse}, enums.OrderStatusAwaitingStoreResponse},
		{"partially accepted", []enums.OrderItemStatus{enums.OrderItemStatusAccepted, enums.OrderItemStatusAwaitingStoreResponse}, enums.OrderStatusPartiallyAccepted},
		{"all preparing", []enums.OrderItemStatus{enums.OrderItemStatusPreparing, enums.OrderItemStatusAccepted}, enums.OrderStatusReadyForPickup},
		{"all delivered", []enums.OrderItemStatus{enums.OrderItemStatusDelivered}, enums.OrderStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveOrderStatus(itemsWith(tt.statuses...)); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}
