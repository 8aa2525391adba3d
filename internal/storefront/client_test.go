package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, token string, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://shop.test/", WithToken(token), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := NewClient("not a url"); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestClientPlaceOrderRequest(t *testing.T) {
	var captured *http.Request
	var payload map[string]any

	client := newTestClient(t, "tok", func(req *http.Request) (*http.Response, error) {
		captured = req
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"success":true,"orderNumber":"ORD-1-ABC","checkoutUrl":"https://pay.test/s"}`), nil
	})

	resp, err := client.PlaceOrder(context.Background(), checkout.PlaceOrderRequest{
		Items: []checkout.OrderItem{{ProductID: uuid.New(), ProductName: "Rug", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
		Shipping: checkout.ShippingInfo{
			Email:         "a@b.test",
			PaymentMethod: enums.PaymentMethodCard,
		},
	}, "key-1")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if captured.Method != http.MethodPost || captured.URL.String() != "http://shop.test/api/checkout" {
		t.Fatalf("unexpected request %s %s", captured.Method, captured.URL)
	}
	if captured.Header.Get("Idempotency-Key") != "key-1" {
		t.Fatalf("idempotency key header missing")
	}
	if captured.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("authorization header missing")
	}
	if _, ok := payload["items"]; !ok {
		t.Fatalf("items missing from payload %v", payload)
	}
	if resp.OrderNumber != "ORD-1-ABC" || resp.CheckoutURL != "https://pay.test/s" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientMapsErrorEnvelope(t *testing.T) {
	client := newTestClient(t, "tok", func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"success":false,"code":"DUPLICATE","error":"Already in wishlist"}`), nil
	})

	err := client.AddFavorite(context.Background(), "p1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if typed.Message() != "Already in wishlist" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestClientFallsBackToStatusCode(t *testing.T) {
	client := newTestClient(t, "", func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"message":"Too many requests"}`), nil
	})

	err := client.RemoveFavorite(context.Background(), "p1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestClientTransportFailureIsDependency(t *testing.T) {
	client := newTestClient(t, "", func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.ListFavorites(context.Background())
	if pkgerrors.Classify(err) != pkgerrors.KindTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestClientProductBySlug(t *testing.T) {
	client := newTestClient(t, "", func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/products/linen-shirt" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "" {
			t.Fatalf("anonymous client must not send authorization")
		}
		return jsonResponse(http.StatusOK, `{"success":true,"data":{"id":"p1","name":"Linen Shirt","slug":"linen-shirt","price":"499.90","stock_quantity":3}}`), nil
	})

	product, err := client.ProductBySlug(context.Background(), "linen-shirt")
	if err != nil {
		t.Fatalf("product by slug: %v", err)
	}
	if product.ID != "p1" || product.StockQuantity != 3 || !product.Price.Equal(decimal.RequireFromString("499.90")) {
		t.Fatalf("unexpected product %+v", product)
	}
}
