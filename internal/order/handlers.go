package order

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mall-cart/internal/cart"
	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/orderclient"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

const defaultPerPage = 20

// Reader is the read side of the order service for one shopper.
type Reader interface {
	History(ctx context.Context, f orderclient.Filter) ([]pricing.Order, error)
	GetOrder(ctx context.Context, id string) (pricing.Order, error)
}

// BindFunc opens a read session for a bearer token.
type BindFunc func(token string) (Reader, error)

// BindClient adapts an order service client to BindFunc.
func BindClient(c *orderclient.Client) BindFunc {
	return func(token string) (Reader, error) {
		s, err := c.Bind(token)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Handler proxies order history and order lookups, pricing each order with
// the cart's coupon policy.
type Handler struct {
	Bind   BindFunc
	Render *cart.Service
}

func (h *Handler) reader(w http.ResponseWriter, r *http.Request) (Reader, bool) {
	if h.Bind == nil || h.Render == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return nil, false
	}
	sess, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return nil, false
	}
	rd, err := h.Bind(sess.Token)
	if err != nil {
		cart.WriteError(w, r, err)
		return nil, false
	}
	return rd, true
}

// History lists past orders, newest first, paginated with page and limit.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rd, ok := h.reader(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	orders, err := rd.History(r.Context(), orderclient.Filter{ShopID: q.Get("shopId"), MallID: q.Get("mallId")})
	if err != nil {
		cart.WriteError(w, r, err)
		return
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	page, perPage := common.ParsePagination(r, defaultPerPage)
	window, meta := common.Paginate(orders, page, perPage)

	items := make([]cart.OrderView, 0, len(window))
	for _, o := range window {
		items = append(items, h.Render.RenderOrder(o, o.Totals(h.Render.Policy)))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": meta,
	})
}

// Get returns one order with computed totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rd, ok := h.reader(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "order id is required", nil)
		return
	}
	o, err := rd.GetOrder(r.Context(), id)
	if err != nil {
		cart.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": h.Render.RenderOrder(o, o.Totals(h.Render.Policy)),
	})
}
