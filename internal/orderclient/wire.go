package orderclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/mall-cart/internal/money"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

type wireItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    json.RawMessage `json:"quantity"`
	Price       json.Number     `json:"price"`
	LineTotal   json.Number     `json:"lineTotal,omitempty"`
}

type wireOrder struct {
	MongoID      string      `json:"_id,omitempty"`
	OrderID      string      `json:"orderId"`
	ShopID       string      `json:"shopId"`
	MallID       string      `json:"mallId"`
	CustomerName string      `json:"customerName,omitempty"`
	Date         string      `json:"date,omitempty"`
	Items        []wireItem  `json:"items"`
	TotalPrice   json.Number `json:"totalPrice,omitempty"`
	CouponCode   string      `json:"couponCode,omitempty"`
}

type envelope struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Orders     json.RawMessage `json:"orders"`
	Data       json.RawMessage `json:"data"`
	Order      json.RawMessage `json:"order"`
	OrderID    string          `json:"orderId"`
	InsertedID string          `json:"insertedId"`
	Count      *int            `json:"count"`
}

type createItem struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

type createRequest struct {
	ShopID     string       `json:"shopId"`
	MallID     string       `json:"mallId"`
	Items      []createItem `json:"items"`
	CouponCode string       `json:"couponCode,omitempty"`
}

// decodeEnvelope parses the body into the common envelope. Bare arrays are
// wrapped as {orders:[...]}.
func decodeEnvelope(body []byte) (envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return envelope{}, nil
	}
	if trimmed[0] == '[' {
		return envelope{Orders: json.RawMessage(trimmed)}, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return env, nil
}

func (e envelope) accepted() bool {
	switch strings.ToLower(strings.TrimSpace(e.Status)) {
	case "", "success", "ok":
		return true
	}
	return false
}

// orderList normalizes {orders}, {data} and bare arrays.
func (e envelope) orderList(currency string) ([]pricing.Order, error) {
	raw := e.Orders
	if isEmptyJSON(raw) {
		raw = e.Data
	}
	if isEmptyJSON(raw) {
		return []pricing.Order{}, nil
	}
	var wire []wireOrder
	if err := decodeNumbers(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: orders: %v", ErrDecode, err)
	}
	out := make([]pricing.Order, 0, len(wire))
	for _, w := range wire {
		o, err := w.toOrder(currency)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// singleOrder normalizes {order}, {data} and a bare order object.
func (e envelope) singleOrder(currency string, body []byte) (pricing.Order, error) {
	raw := e.Order
	if isEmptyJSON(raw) {
		raw = e.Data
	}
	if isEmptyJSON(raw) {
		raw = body
	}
	var w wireOrder
	if err := decodeNumbers(raw, &w); err != nil {
		return pricing.Order{}, fmt.Errorf("%w: order: %v", ErrDecode, err)
	}
	if w.OrderID == "" && w.MongoID == "" {
		return pricing.Order{}, fmt.Errorf("%w: order without id", ErrDecode)
	}
	return w.toOrder(currency)
}

func (w wireOrder) toOrder(currency string) (pricing.Order, error) {
	id := strings.TrimSpace(w.OrderID)
	if id == "" {
		id = strings.TrimSpace(w.MongoID)
	}
	o := pricing.Order{
		ID:           id,
		ShopID:       w.ShopID,
		MallID:       w.MallID,
		CustomerName: w.CustomerName,
		CreatedAt:    parseDate(w.Date),
		CouponCode:   strings.ToUpper(strings.TrimSpace(w.CouponCode)),
		Items:        make([]pricing.LineItem, 0, len(w.Items)),
	}
	for _, it := range w.Items {
		price, err := money.ParseMajor(it.Price.String(), currency)
		if err != nil {
			return pricing.Order{}, fmt.Errorf("%w: order %s item %s: %w", ErrDecode, id, it.ProductID, err)
		}
		item, err := pricing.NewLineItem(it.ProductID, it.ProductName, price, parseQuantity(it.Quantity))
		if err != nil {
			return pricing.Order{}, fmt.Errorf("%w: order %s: %w", ErrDecode, id, err)
		}
		if _, dup := o.Item(item.ProductID); dup {
			continue
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func newCreateRequest(o pricing.Order) createRequest {
	req := createRequest{
		ShopID:     o.ShopID,
		MallID:     o.MallID,
		CouponCode: o.CouponCode,
		Items:      make([]createItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, createItem{
			ProductID: it.ProductID,
			Quantity:  pricing.ClampQuantity(it.Quantity),
			Price:     json.Number(it.UnitPrice.Major().String()),
		})
	}
	return req
}

func parseQuantity(raw json.RawMessage) int {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	return pricing.ParseQuantity(s)
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
