package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultTimeout          = 15 * time.Second
	errorBodyReadLimit int64 = 4096
)

var errBaseURLRequired = errors.New("storefront api url is required")

// Client talks to the storefront HTTP API on behalf of one shopper.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken authenticates requests with a bearer access token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid storefront api url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Authenticated reports whether the client carries an access token.
func (c *Client) Authenticated() bool {
	return c != nil && c.token != ""
}

// PlaceOrder submits an order. The idempotency key makes retries of the same
// attempt safe.
func (c *Client) PlaceOrder(ctx context.Context, req checkout.PlaceOrderRequest, idempotencyKey string) (checkout.PlaceOrderResponse, error) {
	var out checkout.PlaceOrderResponse
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.do(ctx, http.MethodPost, "/api/checkout", req, headers, &out); err != nil {
		return checkout.PlaceOrderResponse{}, err
	}
	if !out.Success || out.OrderNumber == "" {
		return checkout.PlaceOrderResponse{}, pkgerrors.New(pkgerrors.CodeInternal, "order response missing order number")
	}
	return out, nil
}

type favoriteBody struct {
	ProductID string `json:"product_id"`
}

func (c *Client) AddFavorite(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodPost, "/api/favorites", favoriteBody{ProductID: productID}, nil, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites", favoriteBody{ProductID: productID}, nil, nil)
}

// ListFavorites returns the product ids the shopper has favorited.
func (c *Client) ListFavorites(ctx context.Context) ([]string, error) {
	var out struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.ProductIDs, nil
}

// Product is the catalog view the client needs to build cart lines.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	SKU           string          `json:"sku"`
	Image         *string         `json:"image"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func (c *Client) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	var out struct {
		Data Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(slug), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "storefront client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront api unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

// decodeError maps an error response onto the typed taxonomy. The server's code
// wins; otherwise the status decides.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	var envelope struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
		Details any    `json:"details"`
	}
	_ = json.Unmarshal(raw, &envelope)

	code := pkgerrors.Code(envelope.Code)
	if code == "" {
		code = pkgerrors.CodeForStatus(resp.StatusCode)
	}
	msg := envelope.Error
	if msg == "" {
		msg = envelope.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	typed := pkgerrors.New(code, msg)
	if envelope.Details != nil {
		typed = typed.WithDetails(envelope.Details)
	}
	return typed
}
