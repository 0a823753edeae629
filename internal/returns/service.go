package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/orders"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/media"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox/payloads"
)

const walletRefReturnRefund = "return_refund"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type zoneService interface {
	GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
}

type storeDirectory interface {
	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
}

type walletLedger interface {
	Credit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
}

type statementPoster interface {
	Post(ctx context.Context, tx *gorm.DB, input ledger.PostStatementInput) (*models.SellerStatement, error)
}

// RequestReturnInput opens a return for one delivered item.
type RequestReturnInput struct {
	ItemID    uuid.UUID
	Reason    string
	PhotoKeys []string
}

// ReturnDetail pairs a return with its photo URLs.
type ReturnDetail struct {
	Return *models.OrderItemReturn `json:"return"`
	Photos []string                `json:"photos"`
}

// Service drives an item return from request through refund.
type Service interface {
	RequestReturn(ctx context.Context, userID uuid.UUID, input RequestReturnInput) (*models.OrderItemReturn, error)
	GetReturn(ctx context.Context, returnID uuid.UUID) (*ReturnDetail, error)
	ListUserReturns(ctx context.Context, userID uuid.UUID, limit int) ([]models.OrderItemReturn, error)
	ListSellerReturns(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.OrderItemReturn, error)

	CancelReturn(ctx context.Context, userID, returnID uuid.UUID) error
	ApproveReturn(ctx context.Context, sellerID, returnID uuid.UUID) error
	AcceptPickup(ctx context.Context, courierID, returnID uuid.UUID) error
	UpdatePickupStatus(ctx context.Context, courierID, returnID uuid.UUID, status enums.PickupStatus) error

	ReconcileParkedReturns(ctx context.Context) (int, error)
}

type service struct {
	repo       Repository
	orders     orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	zones      zoneService
	stores     storeDirectory
	wallet     walletLedger
	statements statementPoster
	media      media.Store
	cfg        config.DeliveryConfig
	logg       *logger.Logger
}

// NewService builds the return lifecycle service with its collaborators.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	zones zoneService,
	stores storeDirectory,
	walletSvc walletLedger,
	statements statementPoster,
	mediaStore media.Store,
	cfg config.DeliveryConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if zones == nil {
		return nil, fmt.Errorf("zone service required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store directory required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if statements == nil {
		return nil, fmt.Errorf("statement poster required")
	}
	if mediaStore == nil {
		return nil, fmt.Errorf("media store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		orders:     ordersRepo,
		tx:         tx,
		outbox:     outboxSvc,
		zones:      zones,
		stores:     stores,
		wallet:     walletSvc,
		statements: statements,
		media:      mediaStore,
		cfg:        cfg,
		logg:       logg,
	}, nil
}

// RequestReturn opens a return for a delivered, returnable item that
// is still inside its window and has no other open return.
func (s *service) RequestReturn(ctx context.Context, userID uuid.UUID, input RequestReturnInput) (*models.OrderItemReturn, error) {
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a return reason is required")
	}
	item, err := s.orders.FindItem(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order item")
	}
	order, err := s.orders.FindByID(ctx, item.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "item belongs to another customer")
	}
	if item.Status != enums.OrderItemStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered items can be returned")
	}
	if !item.IsReturnable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "this item is not returnable")
	}
	if item.DeliveredAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery time is not recorded")
	}
	window := s.cfg.ReturnWindow
	if item.ReturnWindowDays > 0 {
		window = time.Duration(item.ReturnWindowDays) * 24 * time.Hour
	}
	if time.Now().After(item.DeliveredAt.Add(window)) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "the return window has closed")
	}

	if _, err := s.repo.FindOpenByItem(ctx, item.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a return is already open for this item")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking open returns")
	}

	refund := item.Subtotal.Sub(item.PromoShare)
	if refund.IsNegative() {
		refund = decimal.Zero
	}

	ret := &models.OrderItemReturn{
		ID:           uuid.New(),
		OrderItemID:  item.ID,
		OrderID:      item.OrderID,
		UserID:       userID,
		SellerID:     item.SellerID,
		StoreID:      item.StoreID,
		Reason:       input.Reason,
		Status:       enums.ReturnStatusRequested,
		PickupStatus: enums.PickupStatusPending,
		RefundAmount: refund,
		RefundStatus: enums.RefundStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, ret); err != nil {
			return err
		}
		for _, key := range input.PhotoKeys {
			if _, err := s.media.Attach(ctx, tx, media.AttachInput{
				EntityType: models.AttachmentEntityReturn,
				EntityID:   ret.ID,
				ObjectKey:  key,
			}); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Data: payloads.ReturnRequestedEvent{
				ReturnID:    ret.ID,
				OrderItemID: item.ID,
				UserID:      userID,
				Reason:      input.Reason,
			},
		})
	})
	if err != nil {
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening return")
	}
	return ret, nil
}

func (s *service) GetReturn(ctx context.Context, returnID uuid.UUID) (*ReturnDetail, error) {
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	photos, err := s.media.URLsFor(ctx, models.AttachmentEntityReturn, ret.ID)
	if err != nil {
		return nil, err
	}
	return &ReturnDetail{Return: ret, Photos: photos}, nil
}

func (s *service) ListUserReturns(ctx context.Context, userID uuid.UUID, limit int) ([]models.OrderItemReturn, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rets, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing returns")
	}
	return rets, nil
}

func (s *service) ListSellerReturns(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.OrderItemReturn, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	rets, err := s.repo.ListBySeller(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing returns")
	}
	return rets, nil
}

// CancelReturn withdraws a return before the courier leg starts.
func (s *service) CancelReturn(ctx context.Context, userID, returnID uuid.UUID) error {
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return err
	}
	if ret.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "return belongs to another customer")
	}
	if ret.Status != enums.ReturnStatusRequested && ret.Status != enums.ReturnStatusSellerApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return can no longer be cancelled").
			WithDetails(map[string]string{"status": ret.Status.String()})
	}
	now := time.Now()
	ret.Status = enums.ReturnStatusCancelled
	ret.CancelledAt = &now
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Save(ctx, ret)
	})
}

// ApproveReturn is the seller accepting the return for pickup.
func (s *service) ApproveReturn(ctx context.Context, sellerID, returnID uuid.UUID) error {
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return err
	}
	if ret.SellerID != sellerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "return belongs to another seller")
	}
	if ret.Status != enums.ReturnStatusRequested {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not awaiting approval").
			WithDetails(map[string]string{"status": ret.Status.String()})
	}
	now := time.Now()
	ret.Status = enums.ReturnStatusSellerApproved
	ret.ApprovedAt = &now
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, ret); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnApproved,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Data: payloads.ReturnApprovedEvent{
				ReturnID:   ret.ID,
				SellerID:   sellerID,
				ApprovedAt: now,
			},
		})
	})
}

// AcceptPickup assigns a courier to an approved return and snapshots
// their earnings for the pickup leg.
func (s *service) AcceptPickup(ctx context.Context, courierID, returnID uuid.UUID) error {
	if courierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id is required")
	}
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return err
	}
	if ret.Status != enums.ReturnStatusSellerApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not approved for pickup")
	}
	if ret.PickupStatus != enums.PickupStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup is already assigned")
	}

	order, err := s.orders.FindByID(ctx, ret.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	store, err := s.stores.GetStore(ctx, ret.StoreID)
	if err != nil {
		return err
	}
	zone, err := s.zones.GetZone(ctx, order.ZoneID)
	if err != nil {
		return err
	}
	distance := geo.Haversine(order.DeliveryLat, order.DeliveryLng, store.Latitude, store.Longitude)

	baseFee := zone.CourierBaseFee
	pickupFees := zone.CourierPerStorePickupFee
	distanceFee := zone.CourierDistanceFeePerKM.Mul(decimal.NewFromFloat(distance)).Round(2)
	incentive := zone.CourierPerOrderIncentive
	retID := ret.ID
	assignment := &models.CourierAssignment{
		ID:          uuid.New(),
		CourierID:   courierID,
		ReturnID:    &retID,
		Type:        enums.AssignmentTypeReturnPickup,
		Status:      enums.AssignmentStatusActive,
		DistanceKM:  distance,
		BaseFee:     baseFee,
		PickupFees:  pickupFees,
		DistanceFee: distanceFee,
		Incentive:   incentive,
		Earnings:    baseFee.Add(pickupFees).Add(distanceFee).Add(incentive),
	}

	ret.CourierID = &courierID
	ret.PickupStatus = enums.PickupStatusAssigned

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
		if err := txRepo.Save(ctx, ret); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCourierAssigned,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Data: payloads.CourierAssignedEvent{
				AssignmentID: assignment.ID,
				CourierID:    courierID,
				ReturnID:     &retID,
				Type:         enums.AssignmentTypeReturnPickup,
			},
		})
	})
}

// UpdatePickupStatus walks the courier leg forward. Handover at the
// store triggers the refund; a failed refund parks the return instead
// of failing the handover.
func (s *service) UpdatePickupStatus(ctx context.Context, courierID, returnID uuid.UUID, status enums.PickupStatus) error {
	ret, err := s.loadReturn(ctx, returnID)
	if err != nil {
		return err
	}
	if ret.CourierID == nil || *ret.CourierID != courierID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pickup belongs to another courier")
	}

	switch status {
	case enums.PickupStatusPickedUp:
		if ret.PickupStatus != enums.PickupStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup is not assigned")
		}
		return s.markPickedUp(ctx, ret)
	case enums.PickupStatusDeliveredToSeller:
		if ret.PickupStatus != enums.PickupStatusPickedUp {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item has not been picked up")
		}
		return s.markDeliveredToSeller(ctx, ret, courierID)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported pickup status").
			WithDetails(map[string]string{"status": status.String()})
	}
}

func (s *service) markPickedUp(ctx context.Context, ret *models.OrderItemReturn) error {
	now := time.Now()
	ret.PickupStatus = enums.PickupStatusPickedUp
	ret.Status = enums.ReturnStatusPickedUp
	ret.PickedUpAt = &now
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).UpdateItemStatus(ctx, ret.OrderItemID, enums.OrderItemStatusDelivered, enums.OrderItemStatusReturned)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "item was updated concurrently")
		}
		return s.repo.WithTx(tx).Save(ctx, ret)
	})
}

func (s *service) markDeliveredToSeller(ctx context.Context, ret *models.OrderItemReturn, courierID uuid.UUID) error {
	now := time.Now()
	ret.PickupStatus = enums.PickupStatusDeliveredToSeller
	ret.ReceivedAt = &now

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.completeAssignment(ctx, tx, ret.ID, courierID); err != nil {
			return err
		}
		if err := s.settleRefund(ctx, tx, ret); err != nil {
			// The handover stands; the refund parks for reconciliation.
			s.logg.Error(s.logg.WithField(ctx, "return_id", ret.ID.String()), "return refund failed, parking", err)
			ret.Status = enums.ReturnStatusReceivedBySeller
			ret.RefundStatus = enums.RefundStatusFailed
			if saveErr := s.repo.WithTx(tx).Save(ctx, ret); saveErr != nil {
				return saveErr
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventReturnRefundParked,
				AggregateType: enums.AggregateReturn,
				AggregateID:   ret.ID,
				Data:          payloads.ReturnRefundParkedEvent{ReturnID: ret.ID, Amount: ret.RefundAmount},
			})
		}
		return nil
	})
}

// settleRefund credits the wallet, flips the item to refunded, debits
// the seller statement and closes the return. Every leg is idempotent
// so parked returns can re-run it.
func (s *service) settleRefund(ctx context.Context, tx *gorm.DB, ret *models.OrderItemReturn) error {
	retID := ret.ID
	if ret.RefundAmount.IsPositive() {
		if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
			UserID:    ret.UserID,
			Amount:    ret.RefundAmount,
			Reference: walletRefReturnRefund,
			SourceID:  &retID,
		}); err != nil {
			return err
		}
	}

	ordersRepo := s.orders.WithTx(tx)
	item, err := ordersRepo.FindItem(ctx, ret.OrderItemID)
	if err != nil {
		return err
	}
	if item.Status != enums.OrderItemStatusRefunded {
		ok, err := ordersRepo.UpdateItemStatus(ctx, item.ID, item.Status, enums.OrderItemStatusRefunded)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "item was updated concurrently")
		}
	}
	if !item.Refunded {
		item.Refunded = true
		item.Status = enums.OrderItemStatusRefunded
		if err := ordersRepo.SaveItem(ctx, item); err != nil {
			return err
		}
	}

	clawback := item.Subtotal.Sub(item.AdminCommission)
	if clawback.IsPositive() {
		if _, err := s.statements.Post(ctx, tx, ledger.PostStatementInput{
			SellerID:  ret.SellerID,
			SourceID:  ret.ID,
			EntryType: enums.StatementEntryTypeDebit,
			Reason:    enums.StatementReasonOrderItemReturn,
			Amount:    clawback,
		}); err != nil {
			return err
		}
	}

	now := time.Now()
	ret.Status = enums.ReturnStatusCompleted
	ret.RefundStatus = enums.RefundStatusProcessed
	ret.CompletedAt = &now
	if err := s.repo.WithTx(tx).Save(ctx, ret); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReturnCompleted,
		AggregateType: enums.AggregateReturn,
		AggregateID:   ret.ID,
		Data: payloads.ReturnCompletedEvent{
			ReturnID:     ret.ID,
			RefundAmount: ret.RefundAmount,
			CompletedAt:  now,
		},
	})
}

// ReconcileParkedReturns retries refunds for returns parked at
// received_by_seller. Meant to run from a worker on a schedule.
func (s *service) ReconcileParkedReturns(ctx context.Context) (int, error) {
	parked, err := s.repo.ListParked(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing parked returns")
	}
	recovered := 0
	for i := range parked {
		ret := parked[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.settleRefund(ctx, tx, &ret)
		})
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "return_id", ret.ID.String()), "parked refund retry failed", err)
			continue
		}
		recovered++
	}
	return recovered, nil
}

func (s *service) completeAssignment(ctx context.Context, tx *gorm.DB, returnID, courierID uuid.UUID) error {
	txRepo := s.repo.WithTx(tx)
	assignment, err := txRepo.FindAssignment(ctx, returnID, courierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pickup assignment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading assignment")
	}
	if assignment.Status == enums.AssignmentStatusCompleted {
		return nil
	}
	now := time.Now()
	assignment.Status = enums.AssignmentStatusCompleted
	assignment.CompletedAt = &now
	return txRepo.SaveAssignment(ctx, assignment)
}

func (s *service) loadReturn(ctx context.Context, returnID uuid.UUID) (*models.OrderItemReturn, error) {
	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading return")
	}
	return ret, nil
}
