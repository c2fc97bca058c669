package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/cart"
	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

// Handler exposes cart submission over HTTP.
type Handler struct {
	Svc *Service
}

// Submit handles POST /cart/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	sess, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}
	logger := zerolog.Ctx(r.Context())

	out, err := h.Svc.Submit(r.Context(), sess)
	var partial *pricing.PartialSubmitError
	switch {
	case err == nil:
		common.JSON(w, http.StatusOK, map[string]any{"data": out})
	case errors.As(err, &partial):
		details := make(map[string]string, len(partial.Errors))
		for id, cause := range partial.Errors {
			details[id] = cause.Error()
		}
		logger.Warn().Int("failed", partial.Failed).Int("total", partial.Total).Msg("cart submit partially failed")
		common.JSONError(w, http.StatusBadGateway, "PARTIAL_SUBMIT_FAILURE", partial.Error(), map[string]any{
			"failed":    out.Failed,
			"errors":    details,
			"confirmed": out.Confirmed,
			"cart":      out.Cart,
		})
	case errors.Is(err, pricing.ErrCancelled), errors.Is(err, context.Canceled):
		logger.Debug().Err(err).Msg("cart submit cancelled")
	default:
		cart.WriteError(w, r, err)
	}
}
