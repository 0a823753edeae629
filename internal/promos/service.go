package promos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// Service validates promo codes and computes their discounts.
type Service interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, orderTotal decimal.Decimal) (*models.Promo, error)
	Discount(promo *models.Promo, cartTotal, deliveryCharge decimal.Decimal) decimal.Decimal
	BestInstantPromo(ctx context.Context, userID uuid.UUID, cartTotal, deliveryCharge decimal.Decimal) (*models.Promo, decimal.Decimal, error)
	Redeem(ctx context.Context, tx *gorm.DB, promo *models.Promo, userID, orderID uuid.UUID, amount decimal.Decimal) error
	CreatePromo(ctx context.Context, input PromoInput) (*models.Promo, error)
	UpdatePromo(ctx context.Context, id uuid.UUID, input PromoInput) (*models.Promo, error)
	DeletePromo(ctx context.Context, id uuid.UUID) error
	GetPromo(ctx context.Context, id uuid.UUID) (*models.Promo, error)
	ListPromos(ctx context.Context) ([]models.Promo, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promo repository required")
	}
	return &service{repo: repo}, nil
}

// PromoInput carries the fields accepted when creating or updating a promo.
type PromoInput struct {
	Code             string
	Kind             enums.PromoKind
	DiscountType     enums.PromoDiscountType
	Value            decimal.Decimal
	MaxDiscountValue *decimal.Decimal
	MinOrderTotal    decimal.Decimal
	MaxTotalUsage    *int
	PerUserLimit     *int
	StartsAt         time.Time
	EndsAt           time.Time
}

// Validate runs the eligibility chain for a buyer-entered code. Checks
// run in a fixed order so the buyer always sees the most specific
// failure: existence, date window, minimum order, global usage, then
// the per-user limit.
func (s *service) Validate(ctx context.Context, code string, userID uuid.UUID, orderTotal decimal.Decimal) (*models.Promo, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid promo code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading promo")
	}

	if err := s.checkEligibility(ctx, promo, userID, orderTotal); err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *service) checkEligibility(ctx context.Context, promo *models.Promo, userID uuid.UUID, orderTotal decimal.Decimal) error {
	now := time.Now()
	if now.Before(promo.StartsAt) || now.After(promo.EndsAt) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "promo code is not active")
	}
	if orderTotal.LessThan(promo.MinOrderTotal) {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total below promo minimum").
			WithDetails(map[string]string{"min_order_total": promo.MinOrderTotal.String()})
	}
	if promo.MaxTotalUsage != nil && promo.UsageCount >= *promo.MaxTotalUsage {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "promo code usage limit reached")
	}
	if promo.PerUserLimit != nil {
		used, err := s.repo.CountRedemptionsByUser(ctx, promo.ID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting promo redemptions")
		}
		if used >= int64(*promo.PerUserLimit) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "promo code already used")
		}
	}
	return nil
}

// Discount computes the money value of a promo against a cart. The
// result never exceeds the cart total.
func (s *service) Discount(promo *models.Promo, cartTotal, deliveryCharge decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch promo.DiscountType {
	case enums.PromoDiscountTypePercentage:
		discount = cartTotal.Mul(promo.Value).Div(decimal.NewFromInt(100))
		if promo.MaxDiscountValue != nil && discount.GreaterThan(*promo.MaxDiscountValue) {
			discount = *promo.MaxDiscountValue
		}
	case enums.PromoDiscountTypeFixed:
		discount = promo.Value
	case enums.PromoDiscountTypeFreeShipping:
		discount = deliveryCharge
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(cartTotal) {
		discount = cartTotal
	}
	return discount.Round(2)
}

// BestInstantPromo picks the eligible instant promo with the largest
// discount. Returns nil with a zero discount when none applies.
func (s *service) BestInstantPromo(ctx context.Context, userID uuid.UUID, cartTotal, deliveryCharge decimal.Decimal) (*models.Promo, decimal.Decimal, error) {
	promos, err := s.repo.ListActiveInstant(ctx)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing instant promos")
	}

	var best *models.Promo
	bestDiscount := decimal.Zero
	for i := range promos {
		if err := s.checkEligibility(ctx, &promos[i], userID, cartTotal); err != nil {
			var appErr *pkgerrors.Error
			if errors.As(err, &appErr) && appErr.Code() != pkgerrors.CodeDependency {
				continue
			}
			return nil, decimal.Zero, err
		}
		discount := s.Discount(&promos[i], cartTotal, deliveryCharge)
		if discount.GreaterThan(bestDiscount) {
			best = &promos[i]
			bestDiscount = discount
		}
	}
	return best, bestDiscount, nil
}

// Redeem records a successful use on an order and bumps the usage count.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, promo *models.Promo, userID, orderID uuid.UUID, amount decimal.Decimal) error {
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo is required")
	}
	if userID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}

	repo := s.repo.WithTx(tx)
	redemption := &models.PromoRedemption{
		PromoID: promo.ID,
		UserID:  userID,
		OrderID: orderID,
		Amount:  amount,
	}
	if err := repo.CreateRedemption(ctx, redemption); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording promo redemption")
	}
	if err := repo.IncrementUsage(ctx, promo.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incrementing promo usage")
	}
	return nil
}

func (s *service) CreatePromo(ctx context.Context, input PromoInput) (*models.Promo, error) {
	if err := validatePromoInput(input); err != nil {
		return nil, err
	}
	promo := &models.Promo{
		Code:             strings.TrimSpace(input.Code),
		Kind:             input.Kind,
		DiscountType:     input.DiscountType,
		Value:            input.Value,
		MaxDiscountValue: input.MaxDiscountValue,
		MinOrderTotal:    input.MinOrderTotal,
		MaxTotalUsage:    input.MaxTotalUsage,
		PerUserLimit:     input.PerUserLimit,
		StartsAt:         input.StartsAt,
		EndsAt:           input.EndsAt,
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating promo")
	}
	return promo, nil
}

func (s *service) UpdatePromo(ctx context.Context, id uuid.UUID, input PromoInput) (*models.Promo, error) {
	if err := validatePromoInput(input); err != nil {
		return nil, err
	}
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "promo not found")
	}

	promo.Code = strings.TrimSpace(input.Code)
	promo.Kind = input.Kind
	promo.DiscountType = input.DiscountType
	promo.Value = input.Value
	promo.MaxDiscountValue = input.MaxDiscountValue
	promo.MinOrderTotal = input.MinOrderTotal
	promo.MaxTotalUsage = input.MaxTotalUsage
	promo.PerUserLimit = input.PerUserLimit
	promo.StartsAt = input.StartsAt
	promo.EndsAt = input.EndsAt
	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating promo")
	}
	return promo, nil
}

func (s *service) DeletePromo(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting promo")
	}
	return nil
}

func (s *service) GetPromo(ctx context.Context, id uuid.UUID) (*models.Promo, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading promo")
	}
	return promo, nil
}

func (s *service) ListPromos(ctx context.Context) ([]models.Promo, error) {
	promos, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing promos")
	}
	return promos, nil
}

func validatePromoInput(input PromoInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid promo kind")
	}
	if !input.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountType != enums.PromoDiscountTypeFreeShipping && input.Value.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo value must be positive")
	}
	if input.DiscountType == enums.PromoDiscountTypePercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage cannot exceed 100")
	}
	if !input.EndsAt.After(input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo end must be after start")
	}
	return nil
}
