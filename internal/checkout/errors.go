package checkout

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/coupon"
	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/store"
)

// ErrPointsNotAllowed is returned when the caller requests point redemption
// but their plan's points policy does not permit it.
var ErrPointsNotAllowed = errors.New("points redemption not allowed for plan")

// ErrInvalidAddress is returned when the shipping address does not exist or
// belongs to another user.
var ErrInvalidAddress = errors.New("invalid shipping address")

func mapError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrProductNotFound):
		return common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
	case errors.Is(err, pricing.ErrProductUnavailable):
		return common.NewAppError("PRODUCT_NOT_AVAILABLE", "product is not available", http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrOutOfStock):
		return common.NewAppError("OUT_OF_STOCK", "product is out of stock", http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrInsufficientStock):
		return common.NewAppError("INSUFFICIENT_STOCK", "insufficient stock for requested quantity", http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrPremiumOnly):
		return common.NewAppError("PREMIUM_ONLY", "product requires a premium plan", http.StatusForbidden, err)
	case errors.Is(err, pricing.ErrMixedCurrency):
		return common.NewAppError("MIXED_CURRENCY", "cart mixes multiple currencies", http.StatusBadRequest, err)
	case errors.Is(err, coupon.ErrInvalid):
		return common.NewAppError("INVALID_COUPON", "coupon is not valid", http.StatusBadRequest, err)
	case errors.Is(err, coupon.ErrNotStarted):
		return common.NewAppError("COUPON_NOT_STARTED", "coupon is not active yet", http.StatusBadRequest, err)
	case errors.Is(err, coupon.ErrExpired):
		return common.NewAppError("COUPON_EXPIRED", "coupon has expired", http.StatusBadRequest, err)
	case errors.Is(err, coupon.ErrLimitReached):
		return common.NewAppError("COUPON_LIMIT_REACHED", "coupon usage limit reached", http.StatusBadRequest, err)
	case errors.Is(err, coupon.ErrMinOrder):
		return common.NewAppError("COUPON_MIN_ORDER", "order total below coupon minimum", http.StatusBadRequest, err)
	case errors.Is(err, ErrPointsNotAllowed):
		return common.NewAppError("POINTS_NOT_ALLOWED", "plan does not allow point redemption", http.StatusBadRequest, err)
	case errors.Is(err, ErrInvalidAddress):
		return common.NewAppError("INVALID_ADDRESS", "shipping address is invalid", http.StatusBadRequest, err)
	case store.IsSerializationFailure(err):
		return common.NewAppError("CONFLICT", "settlement conflicted with a concurrent request, retry", http.StatusConflict, err)
	default:
		return err
	}
}
