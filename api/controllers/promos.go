package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/api/responses"
	"github.com/nearbasket/nearbasket-backend/api/validators"
	"github.com/nearbasket/nearbasket-backend/internal/promos"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

type validatePromoRequest struct {
	Code       string          `json:"code" validate:"required,min=2,max=32"`
	OrderTotal decimal.Decimal `json:"order_total" validate:"required"`
}

type validatePromoResponse struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
}

// ValidatePromo checks a buyer-entered code against the caller's usage and
// the given order total, and previews the discount on the items subtotal.
func ValidatePromo(svc promos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req validatePromoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.Validate(r.Context(), req.Code, userID, req.OrderTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount := svc.Discount(promo, req.OrderTotal, decimal.Zero)
		responses.WriteSuccess(w, validatePromoResponse{
			Code:     promo.Code,
			Valid:    true,
			Discount: discount,
		})
	}
}
