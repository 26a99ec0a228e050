package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"drivelous-store/internal/domain"
	accountsvc "drivelous-store/internal/service/account"
	addresssvc "drivelous-store/internal/service/address"
	cartsvc "drivelous-store/internal/service/cart"
	paymentsvc "drivelous-store/internal/service/payment"
)

type stubAccounts struct {
	identities map[string]*accountsvc.Identity
	loginErr   error
}

func (s *stubAccounts) Signup(_ context.Context, in accountsvc.SignupInput) (*domain.Profile, string, error) {
	return &domain.Profile{ID: "prof-1", Email: in.Email}, "prof-token", nil
}

func (s *stubAccounts) Login(_ context.Context, email, _ string) (*domain.Profile, string, error) {
	if s.loginErr != nil {
		return nil, "", s.loginErr
	}
	return &domain.Profile{ID: "prof-1", Email: email}, "prof-token", nil
}

func (s *stubAccounts) BeginAnonymous(_ context.Context) (string, string, error) {
	return "anon-1", "anon-token", nil
}

func (s *stubAccounts) Authenticate(_ context.Context, token string) (*accountsvc.Identity, error) {
	id, ok := s.identities[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return id, nil
}

func (s *stubAccounts) Logout(_ context.Context, _ string) error { return nil }

type stubCarts struct {
	cart       *domain.Cart
	adjustment *cartsvc.Adjustment
	addErr     error
	resolved   []cartsvc.Owner
}

func (s *stubCarts) Resolve(_ context.Context, owner cartsvc.Owner) (*domain.Cart, error) {
	s.resolved = append(s.resolved, owner)
	return s.cart, nil
}

func (s *stubCarts) AddItem(_ context.Context, cart *domain.Cart, _, _ string, _ int) (*domain.Cart, *cartsvc.Adjustment, error) {
	if s.addErr != nil {
		return nil, nil, s.addErr
	}
	return cart, s.adjustment, nil
}

func (s *stubCarts) UpdateItemQuantity(_ context.Context, cart *domain.Cart, _ string, _ int) (*domain.Cart, *cartsvc.Adjustment, error) {
	return cart, s.adjustment, nil
}

func (s *stubCarts) RemoveItem(_ context.Context, cart *domain.Cart, _ string) (*domain.Cart, error) {
	return cart, nil
}

type stubCatalog struct {
	products []domain.Product
}

func (s *stubCatalog) ListActive(_ context.Context) ([]domain.Product, error) {
	return s.products, nil
}

func (s *stubCatalog) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].SKU == sku {
			return &s.products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubAddresses struct {
	addresses []domain.ShippingAddress
}

func (s *stubAddresses) Create(_ context.Context, profileID string, in addresssvc.CreateInput) (*domain.ShippingAddress, error) {
	addr := domain.ShippingAddress{ID: "addr-new", ProfileID: profileID, Address1: in.Address1}
	s.addresses = append(s.addresses, addr)
	return &addr, nil
}

func (s *stubAddresses) Get(_ context.Context, profileID, addressID string) (*domain.ShippingAddress, error) {
	for i := range s.addresses {
		if s.addresses[i].ID == addressID && s.addresses[i].ProfileID == profileID {
			return &s.addresses[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubAddresses) List(_ context.Context, _ string) ([]domain.ShippingAddress, error) {
	return s.addresses, nil
}

func (s *stubAddresses) MakeDefault(_ context.Context, _, _ string) error { return nil }
func (s *stubAddresses) Delete(_ context.Context, _, _ string) error      { return nil }

type stubPayments struct {
	methods  []paymentsvc.Method
	snapshot domain.BillingSnapshot
	addedDup bool
	addErr   error
}

func (s *stubPayments) ListMethods(_ context.Context, _ *domain.Profile) ([]paymentsvc.Method, error) {
	return s.methods, nil
}

func (s *stubPayments) AddCard(_ context.Context, _ *domain.Profile, in paymentsvc.AddCardInput) (*paymentsvc.Method, bool, error) {
	if s.addErr != nil {
		return nil, false, s.addErr
	}
	return &paymentsvc.Method{ID: "card-1", Default: in.MakeDefault}, s.addedDup, nil
}

func (s *stubPayments) MakeDefault(_ context.Context, _ *domain.Profile, _ string) error { return nil }
func (s *stubPayments) DeleteCard(_ context.Context, _ *domain.Profile, _ string) error  { return nil }

func (s *stubPayments) BillingSnapshot(_ context.Context, _ *domain.Profile, _ string) (domain.BillingSnapshot, error) {
	return s.snapshot, nil
}

type stubOrders struct {
	order       *domain.Order
	finalizeErr error
}

func (s *stubOrders) CreateOrGet(_ context.Context, _ *domain.Profile, _ *domain.Cart) (*domain.Order, error) {
	return s.order, nil
}

func (s *stubOrders) UseShippingAddress(_ context.Context, _ string, _ *domain.Order, _ string) error {
	return nil
}

func (s *stubOrders) UseBilling(_ context.Context, _ *domain.Order, _ domain.BillingSnapshot) error {
	return nil
}

func (s *stubOrders) Finalize(_ context.Context, _ *domain.Profile, ord *domain.Order, _ string) (*domain.Order, error) {
	if s.finalizeErr != nil {
		return nil, s.finalizeErr
	}
	return ord, nil
}

func (s *stubOrders) History(_ context.Context, _ string) ([]domain.Order, error) {
	if s.order == nil {
		return nil, nil
	}
	return []domain.Order{*s.order}, nil
}

func (s *stubOrders) Lookup(_ context.Context, _, orderID string) (*domain.Order, error) {
	if s.order == nil || s.order.OrderID != orderID {
		return nil, domain.ErrNotFound
	}
	return s.order, nil
}

type testEnv struct {
	router   *gin.Engine
	accounts *stubAccounts
	carts    *stubCarts
	orders   *stubOrders
	payments *stubPayments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accounts := &stubAccounts{identities: map[string]*accountsvc.Identity{
		"anon-token": {AnonymousID: "anon-1"},
		"prof-token": {Profile: &domain.Profile{ID: "prof-1", Email: "amy@example.com"}},
	}}
	carts := &stubCarts{cart: &domain.Cart{ID: "cart-1", State: domain.CartStateActive}}
	orders := &stubOrders{order: &domain.Order{ID: "ord-uuid", OrderID: "AB12CD34", CartID: "cart-1", Status: domain.OrderStatusOpen}}
	payments := &stubPayments{}

	router, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{
		Accounts:  accounts,
		Carts:     carts,
		Catalog:   &stubCatalog{products: []domain.Product{{SKU: "ALBUM", Name: "Debut Album", Active: true}}},
		Addresses: &stubAddresses{addresses: []domain.ShippingAddress{{ID: "addr-1", ProfileID: "prof-1", Address1: "12 Main St"}}},
		Payments:  payments,
		Orders:    orders,
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	return &testEnv{router: router, accounts: accounts, carts: carts, orders: orders, payments: payments}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestBuildRouterRequiresAllServices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if _, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{}); err == nil {
		t.Fatal("expected error for empty deps")
	}
}

func TestCartRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/cart", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCartRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/cart", "bogus", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAnonymousSessionIssued(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/auth/anonymous", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["token"] != "anon-token" {
		t.Fatalf("expected anon-token, got %v", body["token"])
	}
}

func TestLoginCarriesOverAnonymousCart(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/auth/login", "anon-token", map[string]string{
		"email":    "amy@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(env.carts.resolved) != 1 {
		t.Fatalf("expected one cart resolution, got %d", len(env.carts.resolved))
	}
	owner := env.carts.resolved[0]
	if !owner.CarryOver || owner.ProfileID != "prof-1" || owner.AnonymousID != "anon-1" {
		t.Fatalf("unexpected carry-over owner: %+v", owner)
	}
}

func TestLoginWithoutSessionSkipsCarryOver(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "amy@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(env.carts.resolved) != 0 {
		t.Fatalf("expected no cart resolution, got %d", len(env.carts.resolved))
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.loginErr = domain.ErrInvalidCredentials
	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "amy@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAddCartItemReportsAdjustment(t *testing.T) {
	env := newTestEnv(t)
	env.carts.adjustment = &cartsvc.Adjustment{
		Reason:   "OUT_OF_STOCK",
		Accepted: 2,
		Message:  "only 2 left in stock",
	}
	rec := env.do(t, http.MethodPost, "/cart/items", "anon-token", map[string]any{
		"sku": "ALBUM", "size": "one size", "quantity": 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	adj, ok := body["adjustment"].(map[string]any)
	if !ok {
		t.Fatalf("expected adjustment in response, got %v", body)
	}
	if adj["reason"] != "OUT_OF_STOCK" || adj["accepted"] != float64(2) {
		t.Fatalf("unexpected adjustment: %v", adj)
	}
}

func TestAddCartItemExhaustedStock(t *testing.T) {
	env := newTestEnv(t)
	env.carts.addErr = domain.ErrInsufficientStock
	rec := env.do(t, http.MethodPost, "/cart/items", "anon-token", map[string]any{
		"sku": "ALBUM", "size": "one size", "quantity": 1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCheckoutRequiresProfile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/checkout", "anon-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestFinalizeErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"missing shipping", domain.ErrMissingShippingAddress, http.StatusBadRequest},
		{"missing payment", domain.ErrMissingPaymentMethod, http.StatusBadRequest},
		{"charge declined", domain.ErrChargeDeclined, http.StatusPaymentRequired},
		{"stock changed", domain.ErrStockChanged, http.StatusConflict},
		{"empty cart", domain.ErrEmptyCart, http.StatusBadRequest},
		{"already completed", domain.ErrOrderCompleted, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.orders.finalizeErr = tc.err
			rec := env.do(t, http.MethodPost, "/checkout/finalize", "prof-token", map[string]string{})
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestFinalizeReturnsOrder(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/checkout/finalize", "prof-token", map[string]string{"email": "gift@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	ord, ok := body["order"].(map[string]any)
	if !ok {
		t.Fatalf("expected order in response, got %v", body)
	}
	if ord["orderId"] != "AB12CD34" {
		t.Fatalf("unexpected order id: %v", ord["orderId"])
	}
}

func TestProductListPublic(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProductDetailNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/products/NOPE", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOrderLookupScoped(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/orders/AB12CD34", "prof-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/orders/ZZ99ZZ99", "prof-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAddCardDuplicateReturnsOK(t *testing.T) {
	env := newTestEnv(t)
	env.payments.addedDup = true
	rec := env.do(t, http.MethodPost, "/cards", "prof-token", map[string]any{"token": "tok_visa"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/cards", "prof-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAddCardDeclined(t *testing.T) {
	env := newTestEnv(t)
	env.payments.addErr = domain.ErrCardDeclined
	rec := env.do(t, http.MethodPost, "/cards", "prof-token", map[string]any{"token": "tok_bad"})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
}
