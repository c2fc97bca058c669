package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/lock"
	"github.com/noah-isme/mall-cart/internal/money"
	"github.com/noah-isme/mall-cart/internal/orderclient"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

// AppError classifies cart, pricing and order service errors for HTTP.
func AppError(err error) *common.AppError {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var statusErr *orderclient.StatusError
	switch {
	case errors.Is(err, pricing.ErrOrderNotFound), errors.Is(err, pricing.ErrItemNotFound), errors.Is(err, orderclient.ErrNotFound):
		return common.NewAppError("NOT_FOUND", "order or item not found", http.StatusNotFound, err)
	case errors.Is(err, pricing.ErrDuplicateItem), errors.Is(err, pricing.ErrDuplicateOrder):
		return common.NewAppError("CONFLICT", err.Error(), http.StatusConflict, err)
	case errors.Is(err, pricing.ErrEmptyOrder), errors.Is(err, pricing.ErrInvalidItem), errors.Is(err, money.ErrInvalidAmount):
		return common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, pricing.ErrEmptyCart):
		return common.NewAppError("CART_EMPTY", "cart has no orders to submit", http.StatusConflict, err)
	case errors.Is(err, lock.ErrNotAcquired), errors.Is(err, lock.ErrLost):
		return common.NewAppError("CART_BUSY", "cart is being updated, retry shortly", http.StatusConflict, err)
	case errors.Is(err, orderclient.ErrUnauthenticated):
		return common.NewAppError("UNAUTHENTICATED", "order service rejected credentials", http.StatusUnauthorized, err)
	case errors.Is(err, orderclient.ErrNetwork):
		return common.NewAppError("ORDER_SERVICE_UNAVAILABLE", "order service unavailable", http.StatusServiceUnavailable, err)
	case errors.As(err, &statusErr):
		return common.NewAppError("ORDER_SERVICE_REJECTED", statusErr.Error(), http.StatusBadGateway, err)
	case errors.Is(err, orderclient.ErrDecode):
		return common.NewAppError("ORDER_SERVICE_REJECTED", "unexpected order service response", http.StatusBadGateway, err)
	}
	return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
}

// WriteError renders err for the request. Nothing is written when the client
// went away.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("request cancelled")
		return
	}
	appErr := AppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", appErr.Code).Msg("cart request failed")
	}
	common.WriteError(w, appErr)
}
