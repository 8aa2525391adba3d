package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/newsletter"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/questions"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubOrders struct {
	input  orders.PlaceOrderInput
	viewer orders.Viewer
	result *orders.PlaceOrderResult
	err    error
}

func (s *stubOrders) PlaceOrder(_ context.Context, input orders.PlaceOrderInput) (*orders.PlaceOrderResult, error) {
	s.input = input
	return s.result, s.err
}

func (s *stubOrders) GetByNumber(_ context.Context, number string, viewer orders.Viewer) (*orders.OrderView, error) {
	s.viewer = viewer
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderView{OrderNumber: number}, nil
}

type stubReviews struct {
	createErr error
}

func (s *stubReviews) Create(_ context.Context, userID uuid.UUID, input reviews.CreateInput) (*reviews.ReviewDTO, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &reviews.ReviewDTO{ID: uuid.New(), ProductID: input.ProductID, UserID: userID, Rating: input.Rating}, nil
}

func (s *stubReviews) List(context.Context, uuid.UUID) ([]reviews.ReviewDTO, error) {
	return []reviews.ReviewDTO{}, nil
}

func (s *stubReviews) ToggleHelpful(context.Context, uuid.UUID, uuid.UUID) (*reviews.HelpfulResult, error) {
	return &reviews.HelpfulResult{Voted: true, HelpfulCount: 4}, nil
}

type stubQuestions struct {
	asker questions.Asker
}

func (s *stubQuestions) Ask(_ context.Context, asker questions.Asker, input questions.AskInput) (*questions.QuestionDTO, error) {
	s.asker = asker
	return &questions.QuestionDTO{ID: uuid.New(), ProductID: input.ProductID, Question: input.Question}, nil
}

func (s *stubQuestions) List(context.Context, uuid.UUID) ([]questions.QuestionDTO, error) {
	return []questions.QuestionDTO{}, nil
}

func (s *stubQuestions) Answer(_ context.Context, asker questions.Asker, input questions.AnswerInput) (*questions.AnswerDTO, error) {
	s.asker = asker
	return &questions.AnswerDTO{ID: uuid.New(), QuestionID: input.QuestionID, Answer: input.Answer, IsOfficial: asker.Admin}, nil
}

func (s *stubQuestions) ToggleAnswerHelpful(context.Context, uuid.UUID, uuid.UUID) (*questions.HelpfulResult, error) {
	return &questions.HelpfulResult{Marked: true, HelpfulCount: 1}, nil
}

type stubNewsletter struct {
	subscribed []string
	err        error
}

var _ newsletter.Service = (*stubNewsletter)(nil)

func (s *stubNewsletter) Subscribe(_ context.Context, email string) error {
	if s.err != nil {
		return s.err
	}
	s.subscribed = append(s.subscribed, email)
	return nil
}

func (s *stubNewsletter) Unsubscribe(context.Context, string) error {
	return s.err
}

type stubProducts struct {
	input products.ListInput
}

func (s *stubProducts) List(_ context.Context, input products.ListInput) (*pagination.Page[products.ProductDTO], error) {
	s.input = input
	return &pagination.Page[products.ProductDTO]{Items: []products.ProductDTO{}}, nil
}

func (s *stubProducts) BySlug(_ context.Context, slug string) (*products.ProductDTO, error) {
	if slug == "missing" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return &products.ProductDTO{Slug: slug}, nil
}

func (s *stubProducts) Invalidate(context.Context, string) {}

func withUser(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}

func TestPlaceOrderUsesOriginHeader(t *testing.T) {
	svc := &stubOrders{result: &orders.PlaceOrderResult{OrderNumber: "ORD-20261017-AB12CD", CheckoutURL: "https://pay.example/s"}}
	handler := PlaceOrder(svc, "http://fallback.local", []string{"https://shop.example"}, logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Origin", "https://shop.example/")
	req.Header.Set(middleware.IdempotencyHeader, " key-1 ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "https://shop.example", svc.input.Origin)
	assert.Equal(t, "key-1", svc.input.IdempotencyKey)
	assert.Nil(t, svc.input.UserID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ORD-20261017-AB12CD", body["orderNumber"])
	assert.Equal(t, "https://pay.example/s", body["checkoutUrl"])
}

func TestPlaceOrderFallsBackToPublicOrigin(t *testing.T) {
	svc := &stubOrders{result: &orders.PlaceOrderResult{OrderNumber: "ORD-1"}}
	handler := PlaceOrder(svc, "http://fallback.local", []string{"https://shop.example"}, logger.Nop())

	userID := uuid.New()
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{}`)), userID, enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "http://fallback.local", svc.input.Origin)
	require.NotNil(t, svc.input.UserID)
	assert.Equal(t, userID, *svc.input.UserID)
	assert.NotContains(t, resp.Body.String(), "checkoutUrl")
}

func TestPlaceOrderIgnoresUnlistedOrigin(t *testing.T) {
	svc := &stubOrders{result: &orders.PlaceOrderResult{OrderNumber: "ORD-2", CheckoutURL: "https://pay.example/s"}}
	handler := PlaceOrder(svc, "http://fallback.local/", []string{"https://shop.example"}, logger.Nop())

	for _, origin := range []string{"https://evil.example", "https://shop.example.evil.example", "null"} {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{}`))
		req.Header.Set("Origin", origin)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "http://fallback.local", svc.input.Origin, "origin %q must not reach the payment redirect", origin)
	}
}

func TestPlaceOrderRejectsEmptyBody(t *testing.T) {
	handler := PlaceOrder(&stubOrders{}, "", nil, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/checkout", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp).Message; got != "Invalid data" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestGetOrderPassesViewer(t *testing.T) {
	svc := &stubOrders{}
	router := chi.NewRouter()
	router.Get("/api/orders/{orderNumber}", GetOrder(svc, logger.Nop()))

	userID := uuid.New()
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/orders/ORD-9", nil), userID, enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.viewer.Admin)
	assert.Contains(t, resp.Body.String(), `"order_number":"ORD-9"`)
}

func TestReviewsCreateRequiresUser(t *testing.T) {
	handler := ReviewsCreate(&stubReviews{}, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(`{}`)))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if got := decodeError(t, resp).Message; got != "Unauthorized" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestReviewsCreateDuplicateIsBadRequest(t *testing.T) {
	handler := ReviewsCreate(&stubReviews{
		createErr: pkgerrors.New(pkgerrors.CodeDuplicate, "You have already reviewed this product"),
	}, logger.Nop())

	body := `{"product_id":"` + uuid.NewString() + `","rating":5}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp).Message; got != "You have already reviewed this product" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestReviewsCreateReturnsReview(t *testing.T) {
	handler := ReviewsCreate(&stubReviews{}, logger.Nop())

	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `","rating":4,"title":"Great"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var payload struct {
		Review reviews.ReviewDTO `json:"review"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, productID, payload.Review.ProductID)
	assert.Equal(t, 4, payload.Review.Rating)
}

func TestReviewsListRequiresProductID(t *testing.T) {
	handler := ReviewsList(&stubReviews{}, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/reviews", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp).Message; got != "Product ID required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestReviewsHelpfulReportsCount(t *testing.T) {
	handler := ReviewsHelpful(&stubReviews{}, logger.Nop())

	body := `{"review_id":"` + uuid.NewString() + `"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/reviews/helpful", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"voted":true,"helpful_count":4}`, resp.Body.String())
}

func TestQuestionsAskAllowsGuests(t *testing.T) {
	svc := &stubQuestions{}
	handler := QuestionsAsk(svc, logger.Nop())

	body := `{"product_id":"` + uuid.NewString() + `","question":"Does it fit?","guest_name":"Ada","guest_email":"ada@example.com"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/questions", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Nil(t, svc.asker.UserID)
	assert.Contains(t, resp.Body.String(), "Does it fit?")
}

func TestAnswersCreateMarksAdminAsker(t *testing.T) {
	svc := &stubQuestions{}
	handler := AnswersCreate(svc, logger.Nop())

	body := `{"question_id":"` + uuid.NewString() + `","answer":"Yes"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/answers", strings.NewReader(body)), uuid.New(), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.True(t, svc.asker.Admin)
	assert.Contains(t, resp.Body.String(), `"is_official":true`)
}

func TestAnswersCreateRequiresUser(t *testing.T) {
	handler := AnswersCreate(&stubQuestions{}, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/answers", strings.NewReader(`{}`)))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestNewsletterSubscribe(t *testing.T) {
	svc := &stubNewsletter{}
	handler := NewsletterSubscribe(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/newsletter", strings.NewReader(`{"email":"a@b.co"}`)))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"Successfully subscribed!"}`, resp.Body.String())
	assert.Equal(t, []string{"a@b.co"}, svc.subscribed)
}

func TestNewsletterSubscribeDuplicate(t *testing.T) {
	handler := NewsletterSubscribe(&stubNewsletter{
		err: pkgerrors.New(pkgerrors.CodeDuplicate, "You are already subscribed!"),
	}, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/newsletter", strings.NewReader(`{"email":"a@b.co"}`)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp).Message; got != "You are already subscribed!" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNewsletterRejectsMalformedBody(t *testing.T) {
	handler := NewsletterSubscribe(&stubNewsletter{}, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/newsletter", strings.NewReader(`{`)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if got := decodeError(t, resp).Message; got != "Invalid email address" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestProductsListParsesFilters(t *testing.T) {
	svc := &stubProducts{}
	handler := ProductsList(svc, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?limit=5&featured=true&category=Shoes&cursor=abc", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, svc.input.Limit)
	require.NotNil(t, svc.input.Filters.Featured)
	assert.True(t, *svc.input.Filters.Featured)
	assert.Nil(t, svc.input.Filters.New)
	assert.Equal(t, "Shoes", svc.input.Filters.CategorySlug)
	assert.Equal(t, "abc", svc.input.Cursor)
}

func TestProductsListRejectsOversizedLimit(t *testing.T) {
	handler := ProductsList(&stubProducts{}, logger.Nop())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?limit=500", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProductDetailNotFound(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/products/{slug}", ProductDetail(&stubProducts{}, logger.Nop()))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products/missing", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
