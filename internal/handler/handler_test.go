package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sneha1789/timeless-tribe-checkout/internal/auth"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/address"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/cart"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/catalog"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/coupon"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/pricing"
	"github.com/sneha1789/timeless-tribe-checkout/internal/gateway/esewa"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// --- Mock implementations ---

type mockCartRepo struct {
	items map[string]cart.Item
}

func (m *mockCartRepo) GetItems(_ context.Context, userID string, itemIDs []string) ([]cart.Item, error) {
	out := make([]cart.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		it, ok := m.items[id]
		if !ok || it.UserID != userID {
			return nil, cart.ErrItemNotFound
		}
		out = append(out, it)
	}
	return out, nil
}

type mockCatalogRepo struct {
	mu    sync.Mutex
	stock map[catalog.SKU]int
}

func (m *mockCatalogRepo) GetByID(_ context.Context, _ string) (*catalog.Product, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockCatalogRepo) GetByIDs(_ context.Context, _ []string) ([]catalog.Product, error) {
	return nil, nil
}

func (m *mockCatalogRepo) ReserveStock(_ context.Context, changes []catalog.StockChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		if m.stock[c.SKU] < c.Quantity {
			return catalog.ErrInsufficientStock
		}
	}
	for _, c := range changes {
		m.stock[c.SKU] -= c.Quantity
	}
	return nil
}

func (m *mockCatalogRepo) ReleaseStock(_ context.Context, changes []catalog.StockChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		m.stock[c.SKU] += c.Quantity
	}
	return nil
}

type mockAddressRepo struct {
	byID map[string]*address.Address
}

func (m *mockAddressRepo) GetByID(_ context.Context, userID, id string) (*address.Address, error) {
	a, ok := m.byID[id]
	if !ok || a.UserID != userID {
		return nil, address.ErrNotFound
	}
	return a, nil
}

type mockCouponValidator struct {
	rules map[string]*coupon.Rule
}

func (m *mockCouponValidator) Validate(_ context.Context, code string, subtotal decimal.Decimal) (*coupon.Rule, error) {
	r, ok := m.rules[code]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	if subtotal.LessThan(r.MinPurchase) {
		return nil, coupon.ErrMinPurchaseNotMet
	}
	return r, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemOrderRepo(orders ...*order.Order) *memOrderRepo {
	m := &memOrderRepo{orders: make(map[string]*order.Order)}
	for _, o := range orders {
		cp := *o
		m.orders[o.ID] = &cp
	}
	return m
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrderRepo) UpdateDraft(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) TransitionStatus(_ context.Context, id string, from []order.Status, to order.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = to
			if to == order.StatusPendingPayment {
				o.PaymentStatus = order.PaymentUnpaid
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrderRepo) ConfirmCOD(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusPendingPayment {
		return false, nil
	}
	o.Status = order.StatusProcessing
	o.PaymentMethod = order.MethodCOD
	return true, nil
}

func (m *memOrderRepo) MarkPaid(_ context.Context, id string, method order.PaymentMethod, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusPendingPayment {
		return false, nil
	}
	o.Status = order.StatusProcessing
	o.PaymentStatus = order.PaymentPaid
	o.PaymentMethod = method
	o.PaidAt = &paidAt
	return true, nil
}

func (m *memOrderRepo) MarkPaymentFailed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusPendingPayment {
		return false, nil
	}
	o.Status = order.StatusPaymentFailed
	o.PaymentStatus = order.PaymentFailed
	return true, nil
}

func (m *memOrderRepo) MarkDelivered(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusShipped {
		return false, nil
	}
	o.Status = order.StatusDelivered
	o.DeliveredAt = &at
	return true, nil
}

func (m *memOrderRepo) ListStaleDrafts(_ context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	return nil, nil
}

// --- Fixtures ---

const testSecret = "handler-test-secret"

type fixture struct {
	handler *Handler
	tokens  *auth.Service
	orders  *memOrderRepo
	coupons *mockCouponValidator
	gateway *esewa.Client
}

func newFixture(t *testing.T, existing ...*order.Order) *fixture {
	t.Helper()

	p := &catalog.Product{
		ID:    "hoodie-heritage",
		Name:  "Heritage Fleece Hoodie",
		Image: "hoodie.jpg",
		Variants: []catalog.Variant{{
			Name: "Forest",
			Sizes: []catalog.Size{
				{Name: "M", Price: d("3000"), OriginalPrice: d("3600"), Stock: 5},
			},
		}},
	}
	sku := catalog.SKU{ProductID: p.ID, VariantName: "Forest", Size: "M"}

	carts := &mockCartRepo{items: map[string]cart.Item{
		"ci-1": {
			ID: "ci-1", UserID: "user-1",
			ProductID: p.ID, VariantName: "Forest", Size: "M",
			Quantity: 2, Product: p,
		},
	}}
	cat := &mockCatalogRepo{stock: map[catalog.SKU]int{sku: 5}}
	addrs := &mockAddressRepo{byID: map[string]*address.Address{
		"addr-1": {ID: "addr-1", UserID: "user-1", FullName: "Sita Sharma", Phone: "9800000000", Street: "Baluwatar Marg", City: "Kathmandu"},
	}}
	coupons := &mockCouponValidator{rules: map[string]*coupon.Rule{
		"SAVE500": {Code: "SAVE500", DiscountType: coupon.DiscountFixed, Value: d("500"), MinPurchase: d("3000"), Active: true},
	}}
	orders := newMemOrderRepo(existing...)
	gateway := esewa.New(esewa.Config{
		FormURL:     "https://gateway.test/form",
		ProductCode: "EPAYTEST",
		SecretKey:   testSecret,
	})

	svc := order.NewService(carts, cat, addrs, coupons, orders, gateway,
		pricing.Options{FreeShippingThreshold: d("2000"), ShippingFee: d("150")})
	tokens := auth.NewService(testSecret, time.Hour)

	return &fixture{
		handler: NewHandler(svc, tokens),
		tokens:  tokens,
		orders:  orders,
		coupons: coupons,
		gateway: gateway,
	}
}

func pendingOrder(id, userID string) *order.Order {
	return &order.Order{
		ID:     id,
		UserID: userID,
		Items: []order.Item{{
			ProductID: "hoodie-heritage", Name: "Heritage Fleece Hoodie",
			VariantName: "Forest", Size: "M",
			Price: d("3000"), OriginalPrice: d("3600"), Quantity: 2,
		}},
		ShippingAddress: address.Address{ID: "addr-1", UserID: userID, FullName: "Sita Sharma", City: "Kathmandu"},
		ItemsPrice:      d("6000"),
		DiscountOnMRP:   d("1200"),
		TotalPrice:      d("6000"),
		PaymentStatus:   order.PaymentUnpaid,
		Status:          order.StatusPendingPayment,
		CreatedAt:       time.Now().Add(-5 * time.Minute),
	}
}

func (f *fixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) userToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.tokens.Issue(userID, "customer")
	require.NoError(t, err)
	return token
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.Issue("admin-1", auth.RoleAdmin)
	require.NoError(t, err)
	return token
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// --- Auth tests ---

func TestRoutes_MissingToken(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_InvalidToken(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/orders", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_AdminRouteRejectsCustomer(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/status", f.userToken(t, "user-1"),
		map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// --- Checkout tests ---

func TestPreview(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/checkout/preview", f.userToken(t, "user-1"),
		map[string]any{"itemIds": []string{"ci-1"}, "couponCode": "SAVE500"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[breakdownView](t, rec)
	assert.Equal(t, 6000.0, got.ItemsPrice)
	assert.Equal(t, 500.0, got.CouponDiscount)
	assert.Equal(t, 0.0, got.ShippingPrice)
	assert.Equal(t, 5500.0, got.TotalPrice)
}

func TestPreview_EmptyItems(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/checkout/preview", f.userToken(t, "user-1"),
		map[string]any{"itemIds": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/orders", f.userToken(t, "user-1"), map[string]any{
		"itemIds":           []string{"ci-1"},
		"shippingAddressId": "addr-1",
		"couponCode":        "SAVE500",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeResponse[createDraftResponse](t, rec)
	assert.NotEmpty(t, got.OrderID)
	assert.Equal(t, 5500.0, got.TotalPrice)
}

func TestCreateDraft_UnknownBodyField(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/orders", f.userToken(t, "user-1"), map[string]any{
		"itemIds": []string{"ci-1"},
		"bogus":   true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDraft_InvalidCoupon(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/orders", f.userToken(t, "user-1"), map[string]any{
		"itemIds":           []string{"ci-1"},
		"shippingAddressId": "addr-1",
		"couponCode":        "NOPE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateDraft_AppliesCoupon(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPatch, "/orders/ord-1", f.userToken(t, "user-1"),
		map[string]string{"couponCode": "SAVE500"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[orderView](t, rec)
	assert.Equal(t, "SAVE500", got.CouponCode)
	assert.Equal(t, 5500.0, got.TotalPrice)
}

// --- Order tests ---

func TestGetOrder(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodGet, "/orders/ord-1", f.userToken(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[orderView](t, rec)
	assert.Equal(t, "ord-1", got.ID)
	assert.Equal(t, "pending_payment", got.OrderStatus)
	assert.Equal(t, "Sita Sharma", got.ShippingAddress.FullName)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestGetOrder_ForeignOrderIsNotFound(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodGet, "/orders/ord-1", f.userToken(t, "user-2"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"), pendingOrder("ord-2", "user-2"))

	rec := f.request(t, http.MethodGet, "/orders", f.userToken(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[[]orderView](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "ord-1", got[0].ID)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/cancel", f.userToken(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[orderView](t, rec)
	assert.Equal(t, "cancelled", got.OrderStatus)
}

func TestCancelOrder_ShippedIsConflict(t *testing.T) {
	o := pendingOrder("ord-1", "user-1")
	o.Status = order.StatusShipped
	f := newFixture(t, o)

	rec := f.request(t, http.MethodPost, "/orders/ord-1/cancel", f.userToken(t, "user-1"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// --- Payment tests ---

func TestInitiatePayment_COD(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/payment", f.userToken(t, "user-1"),
		map[string]string{"paymentMethod": "COD"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[codResponse](t, rec)
	assert.True(t, got.COD)
	assert.Equal(t, "ord-1", got.OrderID)
}

func TestInitiatePayment_ESewa(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/payment", f.userToken(t, "user-1"),
		map[string]string{"paymentMethod": "eSewa"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[redirectResponse](t, rec)
	assert.Equal(t, "eSewa", got.PaymentGateway)
	assert.Equal(t, "https://gateway.test/form", got.PaymentURL)
	assert.Equal(t, "ord-1", got.FormData["transaction_uuid"])
	assert.Equal(t, "6000.00", got.FormData["total_amount"])
	assert.NotEmpty(t, got.FormData["signature"])
}

func TestInitiatePayment_UnknownMethod(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/payment", f.userToken(t, "user-1"),
		map[string]string{"paymentMethod": "barter"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiatePayment_AlreadyPaid(t *testing.T) {
	o := pendingOrder("ord-1", "user-1")
	o.Status = order.StatusProcessing
	o.PaymentStatus = order.PaymentPaid
	f := newFixture(t, o)

	rec := f.request(t, http.MethodPost, "/orders/ord-1/payment", f.userToken(t, "user-1"),
		map[string]string{"paymentMethod": "eSewa"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func hmacBase64(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// callbackData signs and encodes a gateway callback the way eSewa delivers it.
func callbackData(t *testing.T, orderID, amount, status string) string {
	t.Helper()

	p := map[string]string{
		"transaction_code":   "000TEST",
		"status":             status,
		"total_amount":       amount,
		"transaction_uuid":   orderID,
		"product_code":       "EPAYTEST",
		"signed_field_names": "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
	}
	msg := "transaction_code=" + p["transaction_code"] +
		",status=" + p["status"] +
		",total_amount=" + p["total_amount"] +
		",transaction_uuid=" + p["transaction_uuid"] +
		",product_code=" + p["product_code"] +
		",signed_field_names=" + p["signed_field_names"]
	p["signature"] = hmacBase64(testSecret, msg)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestPaymentCallback_Success(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	data := callbackData(t, "ord-1", "6000.0", "COMPLETE")
	rec := f.request(t, http.MethodGet, "/payment/callback?data="+url.QueryEscape(data), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[orderView](t, rec)
	assert.Equal(t, "processing", got.OrderStatus)
	assert.Equal(t, "paid", got.PaymentStatus)
	assert.Equal(t, "eSewa", got.PaymentMethod)
	require.NotNil(t, got.PaidAt)
}

func TestPaymentCallback_MissingData(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/payment/callback", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentCallback_TamperedPayload(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	data := callbackData(t, "ord-1", "6000.0", "COMPLETE")
	// Flip a character inside the encoded payload.
	tampered := []byte(data)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}

	rec := f.request(t, http.MethodGet, "/payment/callback?data="+url.QueryEscape(string(tampered)), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentCallback_AmountMismatch(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	data := callbackData(t, "ord-1", "1.0", "COMPLETE")
	rec := f.request(t, http.MethodGet, "/payment/callback?data="+url.QueryEscape(data), "", nil)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	stored, err := f.orders.GetByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaymentFailed, stored.Status)
}

func TestPaymentCallback_UnknownTransaction(t *testing.T) {
	f := newFixture(t)

	data := callbackData(t, "ghost", "6000.0", "COMPLETE")
	rec := f.request(t, http.MethodGet, "/payment/callback?data="+url.QueryEscape(data), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetryPayment(t *testing.T) {
	o := pendingOrder("ord-1", "user-1")
	o.Status = order.StatusPaymentFailed
	o.PaymentStatus = order.PaymentFailed
	f := newFixture(t, o)

	rec := f.request(t, http.MethodPost, "/orders/ord-1/retry-payment", f.userToken(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[orderView](t, rec)
	assert.Equal(t, "pending_payment", got.OrderStatus)
}

// --- Admin tests ---

func TestTransitionOrder(t *testing.T) {
	o := pendingOrder("ord-1", "user-1")
	o.Status = order.StatusProcessing
	f := newFixture(t, o)

	rec := f.request(t, http.MethodPost, "/orders/ord-1/status", f.adminToken(t),
		map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeResponse[orderView](t, rec)
	assert.Equal(t, "shipped", got.OrderStatus)
}

func TestTransitionOrder_UnknownStatus(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/status", f.adminToken(t),
		map[string]string{"status": "refunded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionOrder_OutsideTableIsConflict(t *testing.T) {
	f := newFixture(t, pendingOrder("ord-1", "user-1"))

	rec := f.request(t, http.MethodPost, "/orders/ord-1/status", f.adminToken(t),
		map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
