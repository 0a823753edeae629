package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/internal/catalog"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// Reconcile re-checks every cart line against the live catalog and the
// delivery zone, attaching warnings for anything that drifted and
// deleting lines that cannot be fixed. Running it twice in a row yields
// the same cart and no new warnings.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	record, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	var dirty []models.CartItem
	lines := make([]models.CartItem, len(record.Items))
	copy(lines, record.Items)
	kept := make([]models.CartItem, 0, len(lines))
	itemsTotal := decimal.Zero

	for i := range lines {
		line := lines[i]
		if line.Status == enums.CartItemStatusSaved {
			kept = append(kept, line)
			continue
		}
		before := line

		line.Warnings = nil
		line.Status = enums.CartItemStatusOK
		s.reconcileLine(ctx, record, &line)

		// An unfixable line leaves the cart for good; keeping it would
		// re-emit the same warning on every run.
		if line.Status == enums.CartItemStatusNotAvailable {
			result.CartWarnings = append(result.CartWarnings, line.Warnings...)
			if err := s.repo.DeleteItem(ctx, record.ID, line.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing dead cart line")
			}
			continue
		}

		itemsTotal = itemsTotal.Add(line.LineSubtotal)
		result.CartWarnings = append(result.CartWarnings, line.Warnings...)

		if lineChanged(before, line) {
			dirty = append(dirty, line)
		}
		kept = append(kept, line)
	}
	record.Items = kept

	if record.PromoCode != nil {
		if _, err := s.promos.Validate(ctx, *record.PromoCode, userID, itemsTotal); err != nil {
			var appErr *pkgerrors.Error
			if !errors.As(err, &appErr) || appErr.Code() == pkgerrors.CodeDependency {
				return nil, err
			}
			result.CartWarnings = append(result.CartWarnings, types.CartItemWarning{
				Type:    enums.CartItemWarningTypeInvalidPromo,
				Message: fmt.Sprintf("promo %s no longer applies", *record.PromoCode),
			})
			record.PromoCode = nil
			if err := s.repo.Update(ctx, record); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing promo code")
			}
		}
	}

	if err := s.repo.SaveItems(ctx, dirty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving reconciled items")
	}

	result.Cart = record
	result.ItemsTotal = itemsTotal
	result.Clean = true
	for _, warning := range result.CartWarnings {
		// A silent store swap keeps the cart checkout-ready.
		if warning.Type != enums.CartItemWarningTypeReassigned {
			result.Clean = false
			break
		}
	}
	return result, nil
}

func (s *service) reconcileLine(ctx context.Context, record *models.CartRecord, line *models.CartItem) {
	detail, err := s.listings.GetListingDetail(ctx, line.StoreProductVariantID)
	if err != nil || !detail.Product.IsActive {
		line.Status = enums.CartItemStatusNotAvailable
		line.Warnings = append(line.Warnings, types.CartItemWarning{
			Type:    enums.CartItemWarningTypeRemoved,
			Message: "item is no longer sold",
		})
		return
	}

	if !detail.Listing.IsActive || !detail.Store.IsActive {
		if s.repointLine(ctx, record, line, detail) {
			return
		}
		line.Status = enums.CartItemStatusNotAvailable
		line.Warnings = append(line.Warnings, types.CartItemWarning{
			Type:    enums.CartItemWarningTypeRemoved,
			Message: "item is no longer sold",
		})
		return
	}

	if record.DeliveryLat != nil && record.DeliveryLng != nil {
		ok, err := s.zones.CanStoreDeliver(ctx, detail.Store, *record.DeliveryLat, *record.DeliveryLng)
		if err == nil && !ok {
			if s.repointLine(ctx, record, line, detail) {
				return
			}
			line.Status = enums.CartItemStatusNotAvailable
			line.Warnings = append(line.Warnings, types.CartItemWarning{
				Type:    enums.CartItemWarningTypeStoreUnserviced,
				Message: "store does not deliver to this address",
			})
			return
		}
	}

	if detail.Listing.StockQty <= 0 {
		if s.repointLine(ctx, record, line, detail) {
			return
		}
		line.Status = enums.CartItemStatusNotAvailable
		line.Warnings = append(line.Warnings, types.CartItemWarning{
			Type:    enums.CartItemWarningTypeOutOfStock,
			Message: "item is out of stock",
		})
		return
	}
	if detail.Listing.StockQty < line.Quantity {
		line.Quantity = detail.Listing.StockQty
		line.Warnings = append(line.Warnings, types.CartItemWarning{
			Type:    enums.CartItemWarningTypeClampedToStock,
			Message: fmt.Sprintf("quantity reduced to %d", detail.Listing.StockQty),
		})
	}

	if !line.UnitPrice.Equal(detail.Listing.Price) {
		line.Warnings = append(line.Warnings, types.CartItemWarning{
			Type:    enums.CartItemWarningTypePriceChanged,
			Message: fmt.Sprintf("price changed from %s to %s", line.UnitPrice, detail.Listing.Price),
		})
		line.UnitPrice = detail.Listing.Price
	}
	line.LineSubtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// repointLine searches the seller's other stores for the same variant
// before giving up on a line. A hit silently swaps the line to the
// sibling store and records the swap.
func (s *service) repointLine(ctx context.Context, record *models.CartRecord, line *models.CartItem, detail *catalog.StoreVariantDetail) bool {
	sibling, err := s.listings.AlternativeListing(ctx, detail.Store.SellerID, detail.Listing.ProductVariantID, line.Quantity, detail.Store.ID)
	if err != nil || sibling == nil {
		return false
	}
	if record.DeliveryLat != nil && record.DeliveryLng != nil {
		ok, err := s.zones.CanStoreDeliver(ctx, sibling.Store, *record.DeliveryLat, *record.DeliveryLng)
		if err != nil || !ok {
			return false
		}
	}

	line.StoreProductVariantID = sibling.Listing.ID
	line.StoreID = sibling.Store.ID
	line.UnitPrice = sibling.Listing.Price
	line.LineSubtotal = sibling.Listing.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
	line.Status = enums.CartItemStatusOK
	line.Warnings = append(line.Warnings, types.CartItemWarning{
		Type:    enums.CartItemWarningTypeReassigned,
		Message: fmt.Sprintf("item now fulfilled by %s", sibling.Store.Name),
	})
	return true
}

func lineChanged(before, after models.CartItem) bool {
	return before.StoreProductVariantID != after.StoreProductVariantID ||
		before.Quantity != after.Quantity ||
		!before.UnitPrice.Equal(after.UnitPrice) ||
		!before.LineSubtotal.Equal(after.LineSubtotal) ||
		before.Status != after.Status ||
		len(before.Warnings) != len(after.Warnings)
}
