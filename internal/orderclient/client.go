package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mall-cart/internal/pricing"
)

const maxBodyBytes = 4 << 20

// Doer executes HTTP requests; resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the remote order service.
type Client struct {
	BaseURL  string
	HTTP     Doer
	Currency string
}

// New constructs a client for the service at baseURL.
func New(baseURL string, doer Doer, currency string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:     doer,
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
	}
}

// Filter narrows order listings.
type Filter struct {
	ShopID string
	MallID string
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if v := strings.TrimSpace(f.ShopID); v != "" {
		q.Set("shopId", v)
	}
	if v := strings.TrimSpace(f.MallID); v != "" {
		q.Set("mallId", v)
	}
	return q
}

// Session is a client bound to one shopper's bearer token.
type Session struct {
	client *Client
	token  string
}

// Bind returns a session that authenticates with token.
func (c *Client) Bind(token string) (*Session, error) {
	if c == nil || c.HTTP == nil {
		return nil, fmt.Errorf("orderclient: client not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	return &Session{client: c, token: token}, nil
}

// ListOrders fetches the shopper's pending orders.
func (s *Session) ListOrders(ctx context.Context, f Filter) ([]pricing.Order, error) {
	env, _, err := s.do(ctx, http.MethodGet, "/orders", f.query(), nil, "")
	if err != nil {
		return nil, err
	}
	return env.orderList(s.client.Currency)
}

// History fetches previously confirmed orders.
func (s *Session) History(ctx context.Context, f Filter) ([]pricing.Order, error) {
	env, _, err := s.do(ctx, http.MethodGet, "/orders/history", f.query(), nil, "")
	if err != nil {
		return nil, err
	}
	return env.orderList(s.client.Currency)
}

// GetOrder fetches one order.
func (s *Session) GetOrder(ctx context.Context, id string) (pricing.Order, error) {
	env, body, err := s.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, "")
	if err != nil {
		return pricing.Order{}, err
	}
	return env.singleOrder(s.client.Currency, body)
}

// CreateOrder posts a new order and returns the id assigned by the service.
// The local draft id is sent as the idempotency key so retries cannot
// create the order twice.
func (s *Session) CreateOrder(ctx context.Context, o pricing.Order) (string, error) {
	key := ""
	if o.IsDraft() {
		key = o.ID
	}
	env, _, err := s.do(ctx, http.MethodPost, "/orders", nil, newCreateRequest(o), key)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(env.OrderID)
	if id == "" {
		id = strings.TrimSpace(env.InsertedID)
	}
	if id == "" {
		return "", fmt.Errorf("%w: create response without order id", ErrDecode)
	}
	return id, nil
}

// UpdateOrder replaces the items of an existing order.
func (s *Session) UpdateOrder(ctx context.Context, o pricing.Order) error {
	_, _, err := s.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(o.ID), nil, newCreateRequest(o), "")
	return err
}

// ConfirmOrder finalizes the order.
func (s *Session) ConfirmOrder(ctx context.Context, id string) (string, error) {
	env, _, err := s.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(id)+"/confirm", nil, nil, "confirm-"+id)
	if err != nil {
		return "", err
	}
	if confirmed := strings.TrimSpace(env.OrderID); confirmed != "" {
		return confirmed, nil
	}
	return id, nil
}

// SubmitOrder creates local drafts, pushes local edits of remote orders and
// then confirms the order.
func (s *Session) SubmitOrder(ctx context.Context, o pricing.Order) (string, error) {
	id := o.ID
	switch {
	case o.IsDraft():
		created, err := s.CreateOrder(ctx, o)
		if err != nil {
			return "", err
		}
		id = created
	case o.Dirty:
		if err := s.UpdateOrder(ctx, o); err != nil {
			return "", err
		}
	}
	confirmed, err := s.ConfirmOrder(ctx, id)
	if err != nil {
		return "", err
	}
	zerolog.Ctx(ctx).Debug().Str("order_id", o.ID).Str("remote_id", confirmed).Msg("order_confirmed")
	return confirmed, nil
}

func (s *Session) do(ctx context.Context, method, path string, query url.Values, payload any, idemKey string) (envelope, []byte, error) {
	endpoint := s.client.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, nil, fmt.Errorf("orderclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return envelope{}, nil, fmt.Errorf("orderclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := s.client.HTTP.Do(ctx, req)
	if err != nil {
		return envelope{}, nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return envelope{}, nil, classifyTransport(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return envelope{}, raw, ErrUnauthenticated
	}
	env, decodeErr := decodeEnvelope(raw)
	if resp.StatusCode >= 500 {
		return envelope{}, raw, fmt.Errorf("%w: %w", ErrNetwork, &StatusError{HTTPStatus: resp.StatusCode, Status: env.Status, Message: env.Message})
	}
	if resp.StatusCode >= 300 {
		return envelope{}, raw, &StatusError{HTTPStatus: resp.StatusCode, Status: env.Status, Message: env.Message}
	}
	if decodeErr != nil {
		return envelope{}, raw, decodeErr
	}
	if !env.accepted() {
		return envelope{}, raw, &StatusError{HTTPStatus: resp.StatusCode, Status: env.Status, Message: env.Message}
	}
	return env, raw, nil
}
