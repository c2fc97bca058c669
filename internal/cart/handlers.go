package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/mall-cart/internal/common"
	"github.com/noah-isme/mall-cart/internal/orderclient"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

type itemRequest struct {
	ProductID string `json:"productId" validate:"required,max=128"`
	Name      string `json:"name" validate:"max=256"`
	UnitPrice string `json:"unitPrice" validate:"required,numeric"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=9999"`
}

func (r itemRequest) input() ItemInput {
	return ItemInput{ProductID: r.ProductID, Name: r.Name, UnitPrice: r.UnitPrice, Quantity: r.Quantity}
}

type orderRequest struct {
	ShopID       string        `json:"shopId" validate:"required,max=64"`
	MallID       string        `json:"mallId" validate:"required,max=64"`
	CustomerName string        `json:"customerName" validate:"max=128"`
	Items        []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type patchItemRequest struct {
	Action   string          `json:"action" validate:"omitempty,oneof=set increment decrement"`
	Quantity json.RawMessage `json:"quantity"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (common.Session, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return common.Session{}, false
	}
	sess, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return common.Session{}, false
	}
	return sess, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, view View, err error) {
	if err != nil {
		WriteError(w, r, err)
		return
	}
	common.JSON(w, status, map[string]any{"data": view})
}

// Get returns the priced cart. refresh=true refetches from the order service.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	refresh, _ := strconv.ParseBool(q.Get("refresh"))
	filter := orderclient.Filter{ShopID: q.Get("shopId"), MallID: q.Get("mallId")}
	view, err := h.Svc.Load(r.Context(), sess, filter, refresh)
	h.respond(w, r, http.StatusOK, view, err)
}

// AddOrder creates a local draft order.
func (h *Handler) AddOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in := OrderInput{ShopID: req.ShopID, MallID: req.MallID, CustomerName: req.CustomerName}
	for _, it := range req.Items {
		in.Items = append(in.Items, it.input())
	}
	view, err := h.Svc.AddOrder(r.Context(), sess, in)
	h.respond(w, r, http.StatusCreated, view, err)
}

// AddItem adds a product to an order.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), sess, chi.URLParam(r, "orderId"), req.input())
	h.respond(w, r, http.StatusCreated, view, err)
}

// UpdateItem changes an item quantity. The quantity may be a number or the
// raw text of a quantity field; unusable input counts as 1.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req patchItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	orderID := chi.URLParam(r, "orderId")
	productID := chi.URLParam(r, "productId")

	var (
		view View
		err  error
	)
	switch req.Action {
	case "increment":
		view, err = h.Svc.Increment(r.Context(), sess, orderID, productID)
	case "decrement":
		view, err = h.Svc.Decrement(r.Context(), sess, orderID, productID)
	default:
		if len(req.Quantity) == 0 {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "quantity or action is required", map[string]string{"quantity": "failed required"})
			return
		}
		view, err = h.Svc.ParseAndSetQuantity(r.Context(), sess, orderID, productID, rawQuantity(req.Quantity))
	}
	h.respond(w, r, http.StatusOK, view, err)
}

// RemoveItem deletes an item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), sess, chi.URLParam(r, "orderId"), chi.URLParam(r, "productId"))
	h.respond(w, r, http.StatusOK, view, err)
}

// ApplyCoupon sets the coupon code on an order.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req couponRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.ApplyCoupon(r.Context(), sess, chi.URLParam(r, "orderId"), req.Code)
	h.respond(w, r, http.StatusOK, view, err)
}

// RemoveCoupon clears the coupon code on an order.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.RemoveCoupon(r.Context(), sess, chi.URLParam(r, "orderId"))
	h.respond(w, r, http.StatusOK, view, err)
}

func rawQuantity(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
