package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/routing"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox/payloads"
)

// Wallet transaction references written by the lifecycle.
const (
	walletRefOrderPayment    = "order_payment"
	walletRefOrderItemCancel = "order_item_cancel"
)

// SellerAction applies a seller decision to one of their items.
func (s *service) SellerAction(ctx context.Context, input SellerActionInput) error {
	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return err
	}
	if item.SellerID != input.SellerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "item belongs to another seller")
	}
	order, err := s.GetOrder(ctx, item.OrderID)
	if err != nil {
		return err
	}
	if order.PaymentMethod == enums.PaymentMethodOnline && order.PaymentStatus == enums.PaymentStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is awaiting payment")
	}
	if order.PaymentStatus == enums.PaymentStatusFailed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment failed")
	}

	var target enums.OrderItemStatus
	switch input.Action {
	case SellerItemActionAccept:
		if item.Status != enums.OrderItemStatusAwaitingStoreResponse {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not awaiting a response")
		}
		target = enums.OrderItemStatusAccepted
	case SellerItemActionReject:
		target = enums.OrderItemStatusRejected
	case SellerItemActionPreparing:
		if item.Status != enums.OrderItemStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item must be accepted before preparing")
		}
		target = enums.OrderItemStatusPreparing
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown seller action")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.transitionItem(ctx, tx, item, target, actorRoleSeller); err != nil {
			return err
		}
		if target == enums.OrderItemStatusRejected {
			if err := s.stock.ReleaseStock(ctx, tx, item.StoreProductVariantID, item.Quantity); err != nil {
				return err
			}
			if err := s.refundItem(ctx, tx, order, item); err != nil {
				return err
			}
			if err := s.recalcTotals(ctx, tx, order.ID); err != nil {
				return err
			}
		}
		return s.refreshDerived(ctx, tx, order.ID)
	})
}

// Collect marks every preparing item of a seller order as picked up by
// the courier and opens (or reuses) the delivery assignment.
func (s *service) Collect(ctx context.Context, courierID, sellerOrderID uuid.UUID) error {
	if courierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id is required")
	}
	sellerOrder, err := s.repo.FindSellerOrder(ctx, sellerOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "seller order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading seller order")
	}
	var ready []*models.OrderItem
	for i := range sellerOrder.Items {
		if sellerOrder.Items[i].Status == enums.OrderItemStatusPreparing {
			ready = append(ready, &sellerOrder.Items[i])
		}
	}
	if len(ready) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no items ready for pickup")
	}
	order, err := s.GetOrder(ctx, sellerOrder.OrderID)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range ready {
			if err := s.transitionItem(ctx, tx, item, enums.OrderItemStatusCollected, actorRoleCourier); err != nil {
				return err
			}
		}
		if err := s.ensureAssignment(ctx, tx, order, courierID); err != nil {
			return err
		}
		return s.refreshDerived(ctx, tx, order.ID)
	})
}

// Deliver closes an order at the customer's door. When a product in the
// order requires a confirmation code, the OTP must match on the first
// attempt to verify; once verified it is never re-checked.
func (s *service) Deliver(ctx context.Context, courierID, orderID uuid.UUID, otp string) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Delivery == enums.DeliveryStatusDelivered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already delivered")
	}

	var travelling []*models.OrderItem
	for i := range order.Items {
		item := &order.Items[i]
		if item.Status.IsTerminal() || item.Status == enums.OrderItemStatusDelivered {
			continue
		}
		if item.Status != enums.OrderItemStatusCollected {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "some items are not collected yet")
		}
		travelling = append(travelling, item)
	}
	if len(travelling) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "nothing to deliver")
	}

	// Only items whose product demands a confirmation code gate the
	// handover; ordinary orders complete without one.
	needsOTP := false
	for _, item := range travelling {
		if item.RequiresOTP {
			needsOTP = true
			break
		}
	}
	if needsOTP && !order.OTPVerified {
		if order.DeliveryOTP == nil || otp != *order.DeliveryOTP {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid otp")
		}
	}

	now := time.Now()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		for _, item := range travelling {
			if err := s.transitionItem(ctx, tx, item, enums.OrderItemStatusDelivered, actorRoleCourier); err != nil {
				return err
			}
			if err := s.creditSeller(ctx, tx, item); err != nil {
				return err
			}
		}

		if needsOTP {
			order.OTPVerified = true
		}
		order.Delivery = enums.DeliveryStatusDelivered
		order.Status = enums.OrderStatusCompleted
		order.DeliveredAt = &now
		if order.PaymentMethod == enums.PaymentMethodCOD {
			order.PaymentStatus = enums.PaymentStatusCompleted
			if err := txRepo.CreateCashCollection(ctx, &models.CashCollection{
				OrderID:     order.ID,
				CourierID:   courierID,
				Amount:      order.PayableTotal,
				CollectedAt: now,
			}); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCashCollected,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.CashCollectedEvent{
					OrderID:     order.ID,
					CourierID:   courierID,
					Amount:      order.PayableTotal,
					CollectedAt: now,
				},
			}); err != nil {
				return err
			}
		}
		if err := txRepo.SaveOrder(ctx, order); err != nil {
			return err
		}

		if err := s.completeAssignment(ctx, txRepo, order.ID, courierID, now); err != nil {
			return err
		}
		if err := s.refreshDerived(ctx, tx, order.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				CourierID:   courierID,
				DeliveredAt: now,
			},
		})
	})
}

// CancelItem lets the buyer drop a line while the product's
// cancellation window is still open.
func (s *service) CancelItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	order, err := s.GetOrder(ctx, item.OrderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if !item.IsCancelable {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "item cannot be cancelled")
	}
	if item.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "item is already closed")
	}
	if item.Status.Rank() > item.CancelableTill.Rank() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the cancellation window has passed")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.transitionItem(ctx, tx, item, enums.OrderItemStatusCancelled, actorRoleBuyer); err != nil {
			return err
		}
		if err := s.stock.ReleaseStock(ctx, tx, item.StoreProductVariantID, item.Quantity); err != nil {
			return err
		}
		if err := s.refundItem(ctx, tx, order, item); err != nil {
			return err
		}
		if err := s.recalcTotals(ctx, tx, order.ID); err != nil {
			return err
		}
		if err := s.refreshDerived(ctx, tx, order.ID); err != nil {
			return err
		}
		refund := item.Subtotal.Sub(item.PromoShare)
		if refund.IsNegative() {
			refund = decimal.Zero
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemCancelled,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Data: payloads.OrderItemCancelledEvent{
				OrderItemID:  item.ID,
				OrderID:      order.ID,
				RefundAmount: refund,
			},
		})
	})
}

// MarkPaymentCaptured confirms an online payment and releases the
// order to sellers.
func (s *service) MarkPaymentCaptured(ctx context.Context, orderID uuid.UUID, reference string) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return nil
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order does not use online payment")
	}
	result, err := s.payments.Verify(ctx, reference)
	if err != nil {
		return err
	}
	if !result.Captured {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not captured")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order.PaymentStatus = enums.PaymentStatusCompleted
		order.PaymentRef = &reference
		if err := txRepo.SaveOrder(ctx, order); err != nil {
			return err
		}
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status != enums.OrderItemStatusPending {
				continue
			}
			if err := s.transitionItem(ctx, tx, item, enums.OrderItemStatusAwaitingStoreResponse, actorRoleSystem); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentStatusEvent{
				OrderID:    order.ID,
				Status:     enums.PaymentStatusCompleted,
				Amount:     order.PayableTotal,
				PaymentRef: reference,
			},
		})
	})
}

// MarkPaymentFailed closes an unpaid order and returns its stock.
func (s *service) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == enums.PaymentStatusFailed {
		return nil
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already captured")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order.PaymentStatus = enums.PaymentStatusFailed
		if err := txRepo.SaveOrder(ctx, order); err != nil {
			return err
		}
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status != enums.OrderItemStatusPending {
				continue
			}
			if err := s.transitionItem(ctx, tx, item, enums.OrderItemStatusFailed, actorRoleSystem); err != nil {
				return err
			}
			if err := s.stock.ReleaseStock(ctx, tx, item.StoreProductVariantID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.refreshDerived(ctx, tx, order.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentStatusEvent{
				OrderID: order.ID,
				Status:  enums.PaymentStatusFailed,
				Amount:  order.PayableTotal,
			},
		})
	})
}

// CourierRoute plans the pickup route for an order and prices the run
// from the zone's courier tariff.
func (s *service) CourierRoute(ctx context.Context, orderID uuid.UUID) (*DispatchRoute, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	stores, err := s.activeStores(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no active pickups on this order")
	}
	plan, err := routing.Plan(order.DeliveryLat, order.DeliveryLng, stores)
	if err != nil {
		return nil, err
	}
	zone, err := s.zones.GetZone(ctx, order.ZoneID)
	if err != nil {
		return nil, err
	}
	earnings := courierEarnings(zone, len(stores), plan.TotalKM)
	return &DispatchRoute{
		OrderID:  order.ID,
		Plan:     plan,
		Earnings: earnings,
	}, nil
}

func (s *service) loadItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order item")
	}
	return item, nil
}

// transitionItem performs the guarded status update and emits the
// state-change event. The caller's copy is advanced on success.
func (s *service) transitionItem(ctx context.Context, tx *gorm.DB, item *models.OrderItem, to enums.OrderItemStatus, actorRole string) error {
	if !item.Status.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid item status change").
			WithDetails(map[string]string{"from": item.Status.String(), "to": to.String()})
	}
	ok, err := s.repo.WithTx(tx).UpdateItemStatus(ctx, item.ID, item.Status, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating item status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "item was updated concurrently")
	}
	from := item.Status
	item.Status = to
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderItemStateChanged,
		AggregateType: enums.AggregateOrderItem,
		AggregateID:   item.ID,
		Data: payloads.OrderItemStateChangedEvent{
			OrderItemID:   item.ID,
			OrderID:       item.OrderID,
			SellerOrderID: item.SellerOrderID,
			From:          from,
			To:            to,
			ActorRole:     actorRole,
		},
	})
}

// refundItem credits the buyer's wallet for a line that died after the
// payment was captured. COD orders owe nothing. The write is keyed on
// the item so a retry never double-credits.
func (s *service) refundItem(ctx context.Context, tx *gorm.DB, order *models.Order, item *models.OrderItem) error {
	if order.PaymentStatus != enums.PaymentStatusCompleted || order.PaymentMethod == enums.PaymentMethodCOD {
		return nil
	}
	refund := item.Subtotal.Sub(item.PromoShare)
	if !refund.IsPositive() {
		return nil
	}
	itemID := item.ID
	if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
		UserID:    order.UserID,
		Amount:    refund,
		Reference: walletRefOrderItemCancel,
		SourceID:  &itemID,
	}); err != nil {
		return err
	}
	item.Refunded = true
	if err := s.repo.WithTx(tx).SaveItem(ctx, item); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRefundIssued,
		AggregateType: enums.AggregateOrderItem,
		AggregateID:   item.ID,
		Data: payloads.RefundIssuedEvent{
			OrderID:     order.ID,
			OrderItemID: &itemID,
			UserID:      order.UserID,
			Amount:      refund,
			Reference:   walletRefOrderItemCancel,
		},
	})
}

// creditSeller posts the delivery commission credit for one item. The
// statement ledger drops the write silently when it already exists.
func (s *service) creditSeller(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error {
	amount := item.Subtotal.Sub(item.AdminCommission)
	if !amount.IsPositive() {
		return nil
	}
	_, err := s.statements.Post(ctx, tx, ledger.PostStatementInput{
		SellerID:  item.SellerID,
		SourceID:  item.ID,
		EntryType: enums.StatementEntryTypeCredit,
		Reason:    enums.StatementReasonOrderItemDelivery,
		Amount:    amount,
	})
	return err
}

func (s *service) ensureAssignment(ctx context.Context, tx *gorm.DB, order *models.Order, courierID uuid.UUID) error {
	txRepo := s.repo.WithTx(tx)
	assignment, err := txRepo.FindAssignment(ctx, order.ID, courierID)
	if err == nil {
		if assignment.Status == enums.AssignmentStatusAssigned {
			assignment.Status = enums.AssignmentStatusActive
			return txRepo.SaveAssignment(ctx, assignment)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	stores, err := s.activeStores(ctx, order)
	if err != nil {
		return err
	}
	zone, err := s.zones.GetZone(ctx, order.ZoneID)
	if err != nil {
		return err
	}
	earnings := courierEarnings(zone, len(stores), order.DistanceKM)
	orderID := order.ID
	assignment = &models.CourierAssignment{
		CourierID:   courierID,
		OrderID:     &orderID,
		Type:        enums.AssignmentTypeDelivery,
		Status:      enums.AssignmentStatusActive,
		DistanceKM:  order.DistanceKM,
		BaseFee:     earnings.BaseFee,
		PickupFees:  earnings.PickupFees,
		DistanceFee: earnings.DistanceFee,
		Incentive:   earnings.Incentive,
		Earnings:    earnings.Total,
	}
	if err := txRepo.CreateAssignment(ctx, assignment); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCourierAssigned,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   assignment.ID,
		Data: payloads.CourierAssignedEvent{
			AssignmentID: assignment.ID,
			CourierID:    courierID,
			OrderID:      &orderID,
			Type:         enums.AssignmentTypeDelivery,
		},
	})
}

func (s *service) completeAssignment(ctx context.Context, txRepo Repository, orderID, courierID uuid.UUID, at time.Time) error {
	assignment, err := txRepo.FindAssignment(ctx, orderID, courierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	assignment.Status = enums.AssignmentStatusCompleted
	assignment.CompletedAt = &at
	return txRepo.SaveAssignment(ctx, assignment)
}

// activeStores returns the distinct stores still owed a pickup, in
// item order.
func (s *service) activeStores(ctx context.Context, order *models.Order) ([]models.Store, error) {
	seen := map[uuid.UUID]bool{}
	var stores []models.Store
	for _, item := range order.Items {
		if item.Status.IsTerminal() || seen[item.StoreID] {
			continue
		}
		seen[item.StoreID] = true
		store, err := s.stores.GetStore(ctx, item.StoreID)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *store)
	}
	return stores, nil
}

// recalcTotals reprices the order over its surviving items. Fee
// snapshots stay as charged; only the subtotal, the promo discount and
// the derived totals move.
func (s *service) recalcTotals(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	txRepo := s.repo.WithTx(tx)
	order, err := txRepo.LockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	items, err := txRepo.ListItemsByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	subtotal := decimal.Zero
	promo := decimal.Zero
	bySellerOrder := map[uuid.UUID][]models.OrderItem{}
	for _, item := range items {
		bySellerOrder[item.SellerOrderID] = append(bySellerOrder[item.SellerOrderID], item)
		if item.Status == enums.OrderItemStatusRejected || item.Status == enums.OrderItemStatusCancelled ||
			item.Status == enums.OrderItemStatusFailed {
			continue
		}
		subtotal = subtotal.Add(item.Subtotal)
		promo = promo.Add(item.PromoShare)
	}
	if promo.GreaterThan(order.PromoDiscount) {
		promo = order.PromoDiscount
	}

	order.ItemsTotal = subtotal
	order.PromoDiscount = promo
	if order.Promo != nil {
		order.Promo.Discount = promo
	}
	order.FinalTotal = subtotal.
		Add(order.DeliveryCharge).
		Add(order.HandlingFee).
		Add(order.DropoffFee).
		Sub(promo).
		Sub(order.GiftCardDiscount)
	payable := order.FinalTotal.Sub(order.WalletApplied)
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	order.PayableTotal = payable
	if err := txRepo.SaveOrder(ctx, order); err != nil {
		return err
	}

	for sellerOrderID, group := range bySellerOrder {
		sellerOrder, err := txRepo.FindSellerOrder(ctx, sellerOrderID)
		if err != nil {
			return err
		}
		sub, commission := decimal.Zero, decimal.Zero
		for _, item := range group {
			if item.Status == enums.OrderItemStatusRejected || item.Status == enums.OrderItemStatusCancelled ||
				item.Status == enums.OrderItemStatusFailed {
				continue
			}
			sub = sub.Add(item.Subtotal)
			commission = commission.Add(item.AdminCommission)
		}
		if sellerOrder.Subtotal.Equal(sub) && sellerOrder.CommissionAmount.Equal(commission) {
			continue
		}
		sellerOrder.Subtotal = sub
		sellerOrder.CommissionAmount = commission
		if err := txRepo.SaveSellerOrder(ctx, sellerOrder); err != nil {
			return err
		}
	}
	return nil
}

// refreshDerived recomputes the derived seller-order, delivery and
// order statuses after any item moved.
func (s *service) refreshDerived(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	txRepo := s.repo.WithTx(tx)
	order, err := txRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	byID := map[uuid.UUID][]models.OrderItem{}
	for _, item := range order.Items {
		byID[item.SellerOrderID] = append(byID[item.SellerOrderID], item)
	}
	for i := range order.SellerOrders {
		sellerOrder := &order.SellerOrders[i]
		derived := deriveSellerOrderStatus(byID[sellerOrder.ID])
		if derived == sellerOrder.Status {
			continue
		}
		sellerOrder.Status = derived
		if err := txRepo.SaveSellerOrder(ctx, sellerOrder); err != nil {
			return err
		}
	}

	dirty := false
	delivery := deriveDeliveryStatus(order.Items, len(order.Assignments) > 0)
	if order.Delivery != enums.DeliveryStatusDelivered && delivery != order.Delivery {
		order.Delivery = delivery
		dirty = true
	}
	derived := deriveOrderStatus(order.Items)
	switch {
	case order.Status == enums.OrderStatusCompleted || order.Status == enums.OrderStatusCancelled:
		// terminal order statuses never move again
	case derived == enums.OrderStatusCancelled:
		now := time.Now()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		dirty = true
	case derived != order.Status:
		order.Status = derived
		dirty = true
	}
	if !dirty {
		return nil
	}
	return txRepo.SaveOrder(ctx, order)
}

func courierEarnings(zone *models.DeliveryZone, storeCount int, distanceKM float64) EarningsBreakdown {
	pickups := zone.CourierPerStorePickupFee.Mul(decimal.NewFromInt(int64(storeCount)))
	distance := zone.CourierDistanceFeePerKM.Mul(decimal.NewFromFloat(distanceKM)).Round(2)
	total := zone.CourierBaseFee.Add(pickups).Add(distance).Add(zone.CourierPerOrderIncentive)
	return EarningsBreakdown{
		BaseFee:     zone.CourierBaseFee,
		PickupFees:  pickups,
		DistanceFee: distance,
		Incentive:   zone.CourierPerOrderIncentive,
		Total:       total,
	}
}
