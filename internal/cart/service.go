package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/catalog"
	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/settings"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listingLoader interface {
	GetListingDetail(ctx context.Context, listingID uuid.UUID) (*catalog.StoreVariantDetail, error)
	AlternativeListing(ctx context.Context, sellerID, productVariantID uuid.UUID, minQty int, excludeStoreID uuid.UUID) (*catalog.StoreVariantDetail, error)
}

type settingsProvider interface {
	GetInt(ctx context.Context, key string, fallback int) int
}

type zoneResolver interface {
	Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error)
	CanStoreDeliver(ctx context.Context, store models.Store, lat, lng float64) (bool, error)
}

type promoValidator interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, orderTotal decimal.Decimal) (*models.Promo, error)
}

// Service exposes cart operations.
type Service interface {
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartRecord, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error)
	SaveForLater(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error)
	MoveToCart(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	SetDelivery(ctx context.Context, userID uuid.UUID, input SetDeliveryInput) (*models.CartRecord, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error)
	Convert(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	listings listingLoader
	zones    zoneResolver
	promos   promoValidator
	settings settingsProvider
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, listings listingLoader, zones zoneResolver, promos promoValidator, settingsSvc settingsProvider) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if zones == nil {
		return nil, fmt.Errorf("zone resolver required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo validator required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &service{repo: repo, tx: tx, listings: listings, zones: zones, promos: promos, settings: settingsSvc}, nil
}

// defaultMaxCartItems applies when the settings table has no override.
const defaultMaxCartItems = 50

// AddItemInput adds units of a store listing to the buyer's cart.
type AddItemInput struct {
	StoreProductVariantID uuid.UUID
	Quantity              int
}

// SetDeliveryInput pins the cart to a delivery point and payment intent.
type SetDeliveryInput struct {
	Address       types.Address
	Latitude      float64
	Longitude     float64
	RushRequested bool
	PaymentMethod *enums.PaymentMethod
	PromoCode     *string
}

// ReconcileResult is the refreshed cart plus everything that changed
// underneath the buyer since the last look.
type ReconcileResult struct {
	Cart         *models.CartRecord      `json:"cart"`
	ItemsTotal   decimal.Decimal         `json:"items_total"`
	CartWarnings []types.CartItemWarning `json:"cart_warnings"`
	Clean        bool                    `json:"clean"`
}

// GetActiveCart returns the buyer's active cart, or not-found.
func (s *service) GetActiveCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	record, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return record, nil
}

// AddItem snapshots the listing price onto a cart line, merging
// quantities when the listing is already in the cart.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.StoreProductVariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	detail, err := s.listings.GetListingDetail(ctx, input.StoreProductVariantID)
	if err != nil {
		return nil, err
	}
	if !detail.Listing.IsActive || !detail.Product.IsActive || !detail.Store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item is not available")
	}

	var saved *models.CartRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		record, err := s.activeOrNewCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}

		line := findLine(record, input.StoreProductVariantID)
		if line == nil {
			maxItems := s.settings.GetInt(ctx, settings.KeyMaxCartItems, defaultMaxCartItems)
			if activeLineCount(record) >= maxItems {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart item limit reached").
					WithDetails(map[string]int{"max_items": maxItems})
			}
		}
		quantity := input.Quantity
		if line != nil {
			quantity += line.Quantity
		}
		if detail.Listing.StockQty < quantity {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]int{"available": detail.Listing.StockQty})
		}

		if line == nil {
			line = &models.CartItem{
				CartID:                record.ID,
				StoreProductVariantID: detail.Listing.ID,
				StoreID:               detail.Store.ID,
				ProductID:             detail.Product.ID,
			}
		}
		line.Quantity = quantity
		line.UnitPrice = detail.Listing.Price
		line.LineSubtotal = detail.Listing.Price.Mul(decimal.NewFromInt(int64(quantity)))
		line.Status = enums.CartItemStatusOK
		line.Warnings = nil
		if err := txRepo.UpsertItem(ctx, line); err != nil {
			return err
		}

		saved, err = txRepo.FindByID(ctx, record.ID)
		return err
	})
	if err != nil {
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
	}
	return saved, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartRecord, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	record, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	var line *models.CartItem
	for i := range record.Items {
		if record.Items[i].ID == itemID {
			line = &record.Items[i]
		}
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	detail, err := s.listings.GetListingDetail(ctx, line.StoreProductVariantID)
	if err != nil {
		return nil, err
	}
	if detail.Listing.StockQty < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]int{"available": detail.Listing.StockQty})
	}

	line.Quantity = quantity
	line.UnitPrice = detail.Listing.Price
	line.LineSubtotal = detail.Listing.Price.Mul(decimal.NewFromInt(int64(quantity)))
	if err := s.repo.UpsertItem(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart item")
	}
	return s.repo.FindByID(ctx, record.ID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error) {
	record, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, record.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart item")
	}
	return s.repo.FindByID(ctx, record.ID)
}

// SaveForLater parks a line outside the checkout path. Saved lines are
// skipped by reconcile, pricing and checkout until moved back.
func (s *service) SaveForLater(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error) {
	record, line, err := s.findUserLine(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if line.Status == enums.CartItemStatusSaved {
		return record, nil
	}
	line.Status = enums.CartItemStatusSaved
	line.Warnings = nil
	if err := s.repo.UpsertItem(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart item for later")
	}
	return s.repo.FindByID(ctx, record.ID)
}

// MoveToCart returns a saved line to the active cart, re-checking
// stock and refreshing the price snapshot.
func (s *service) MoveToCart(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error) {
	record, line, err := s.findUserLine(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if line.Status != enums.CartItemStatusSaved {
		return record, nil
	}

	detail, err := s.listings.GetListingDetail(ctx, line.StoreProductVariantID)
	if err != nil {
		return nil, err
	}
	if !detail.Listing.IsActive || !detail.Product.IsActive || !detail.Store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "item is not available")
	}
	if detail.Listing.StockQty < line.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]int{"available": detail.Listing.StockQty})
	}
	maxItems := s.settings.GetInt(ctx, settings.KeyMaxCartItems, defaultMaxCartItems)
	if activeLineCount(record) >= maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item limit reached").
			WithDetails(map[string]int{"max_items": maxItems})
	}

	line.Status = enums.CartItemStatusOK
	line.Warnings = nil
	line.UnitPrice = detail.Listing.Price
	line.LineSubtotal = detail.Listing.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
	if err := s.repo.UpsertItem(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "moving cart item back")
	}
	return s.repo.FindByID(ctx, record.ID)
}

// Clear drops every active line. Saved-for-later lines survive.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	record, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteActiveItems(ctx, record.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return s.repo.FindByID(ctx, record.ID)
}

func (s *service) findUserLine(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, *models.CartItem, error) {
	record, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	for i := range record.Items {
		if record.Items[i].ID == itemID {
			return record, &record.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

// SetDelivery resolves the zone covering the delivery point and stores
// the delivery intent on the cart.
func (s *service) SetDelivery(ctx context.Context, userID uuid.UUID, input SetDeliveryInput) (*models.CartRecord, error) {
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery coordinates")
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	record, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	zone, err := s.zones.Locate(ctx, input.Latitude, input.Longitude)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not available at this location")
	}
	if input.PaymentMethod != nil && *input.PaymentMethod == enums.PaymentMethodCOD && !zone.CODAllowed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery is not available in this zone")
	}

	address := input.Address
	record.ZoneID = &zone.ID
	record.DeliveryAddress = &address
	record.DeliveryLat = &input.Latitude
	record.DeliveryLng = &input.Longitude
	record.RushRequested = input.RushRequested
	record.PaymentMethod = input.PaymentMethod
	record.PromoCode = input.PromoCode
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving delivery details")
	}
	return s.repo.FindByID(ctx, record.ID)
}

// Convert closes a cart after checkout turned it into an order.
func (s *service) Convert(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	txRepo := s.repo.WithTx(tx)
	record, err := txRepo.FindByID(ctx, cartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if record.Status == enums.CartStatusConverted {
		return nil
	}
	record.Status = enums.CartStatusConverted
	if err := txRepo.Update(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "converting cart")
	}
	return nil
}

func (s *service) activeOrNewCart(ctx context.Context, repo Repository, userID uuid.UUID) (*models.CartRecord, error) {
	record, err := repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = &models.CartRecord{UserID: userID, Status: enums.CartStatusActive}
	if err := repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func findLine(record *models.CartRecord, listingID uuid.UUID) *models.CartItem {
	for i := range record.Items {
		if record.Items[i].StoreProductVariantID == listingID &&
			record.Items[i].Status != enums.CartItemStatusSaved {
			return &record.Items[i]
		}
	}
	return nil
}

func activeLineCount(record *models.CartRecord) int {
	count := 0
	for i := range record.Items {
		if record.Items[i].Status != enums.CartItemStatusSaved {
			count++
		}
	}
	return count
}
