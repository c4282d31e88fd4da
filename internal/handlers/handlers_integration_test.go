package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/server"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher keeps every published event so tests can read OTP codes.
type capturePublisher struct {
	mu     sync.Mutex
	events map[string][][]byte
}

func (p *capturePublisher) Publish(_, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][][]byte)
	}
	p.events[routingKey] = append(p.events[routingKey], body)
	return nil
}

func (p *capturePublisher) lastCode(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.events[services.RoutingOTPIssued]
	require.NotEmpty(t, events)
	var ev services.OTPEvent
	require.NoError(t, json.Unmarshal(events[len(events)-1], &ev))
	return ev.Code
}

func testConfig() *config.Config {
	return &config.Config{
		RabbitMQExchange:   "storefront",
		JWTSecret:          "test_jwt_secret",
		JWTAccessTTL:       time.Hour,
		JWTRefreshTTL:      24 * time.Hour,
		LinkTokenTTL:       time.Hour,
		SessionCookie:      "storefront_sid",
		RegistrationOTPTTL: 600 * time.Second,
		LoginOTPTTL:        300 * time.Second,
		OTPResendInterval:  60 * time.Second,
		ChallengeRetention: time.Hour,
		AdminPageSize:      25,
		CatalogPageSize:    4,
	}
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) (*server.Server, *capturePublisher) {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	pub := &capturePublisher{}
	srv := server.New(server.Options{Config: testConfig(), DB: db, Publisher: pub})
	return srv, pub
}

// client carries the session cookie and bearer token between requests.
type client struct {
	t     *testing.T
	app   *fiber.App
	sid   string
	token string
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: "storefront_sid", Value: c.sid})
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == "storefront_sid" {
			c.sid = ck.Value
		}
	}

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

// signUp registers, verifies and logs a customer in through the OTP flow.
func signUp(t *testing.T, srv *server.Server, pub *capturePublisher, email string) *client {
	t.Helper()
	c := &client{t: t, app: srv.App}

	status, body := c.do(http.MethodPost, "/api/v1/auth/register", fiber.Map{
		"email": email, "name": "Test Customer", "password": "password123", "password2": "password123", "tc": true,
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	require.NotEmpty(t, c.sid)

	status, body = c.do(http.MethodPost, "/api/v1/auth/otp/registration/verify", fiber.Map{"otp": pub.lastCode(t)})
	require.Equal(t, fiber.StatusOK, status, body)

	status, body = c.do(http.MethodPost, "/api/v1/auth/login", fiber.Map{
		"email": email, "password": "password123", "next": "/checkout",
	})
	require.Equal(t, fiber.StatusAccepted, status, body)
	assert.Equal(t, true, body["verified"])

	status, body = c.do(http.MethodPost, "/api/v1/auth/otp/login/verify", fiber.Map{"otp": pub.lastCode(t)})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "/checkout", body["next"])
	c.token = body["access"].(string)
	return c
}

func adminClient(t *testing.T, srv *server.Server) *client {
	t.Helper()
	_, err := srv.Users.CreateSuperuser("admin@example.com", "Admin", "admin-password")
	require.NoError(t, err)

	c := &client{t: t, app: srv.App}
	status, body := c.do(http.MethodPost, "/api/v1/auth/token", fiber.Map{
		"email": "admin@example.com", "password": "admin-password",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	c.token = body["access"].(string)
	return c
}

func checkoutBody(method string) fiber.Map {
	return fiber.Map{
		"itemsJson":      `{"pr1":[2,"Linen Shirt",450],"pr2":[1,"Tote",300]}`,
		"name":           "Test Customer",
		"email":          "customer@example.com",
		"phone":          "9876543210",
		"address1":       "12 Hill Road",
		"city":           "Pune",
		"zip_code":       "411001",
		"payment_method": method,
		"orderTotal":     "1200",
	}
}

func orderID(t *testing.T, body map[string]interface{}) uint {
	t.Helper()
	order, ok := body["order"].(map[string]interface{})
	require.True(t, ok, body)
	return uint(order["order_id"].(float64))
}

func TestAuthFlow(t *testing.T) {
	srv, pub := setupApp(t)
	c := signUp(t, srv, pub, "customer@example.com")

	status, body := c.do(http.MethodGet, "/api/v1/account/profile", nil)
	assert.Equal(t, fiber.StatusOK, status)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, true, user["is_email_verified"])

	// Registering the same verified email again conflicts.
	other := &client{t: t, app: srv.App}
	status, _ = other.do(http.MethodPost, "/api/v1/auth/register", fiber.Map{
		"email": "customer@example.com", "name": "X", "password": "password123", "password2": "password123",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = other.do(http.MethodPost, "/api/v1/auth/login", fiber.Map{"email": "customer@example.com", "password": "nope-nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = other.do(http.MethodPost, "/api/v1/auth/register", fiber.Map{"email": "bad"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "errors")
}

func TestOTPEndpoints(t *testing.T) {
	srv, pub := setupApp(t)
	c := &client{t: t, app: srv.App}

	status, _ := c.do(http.MethodPost, "/api/v1/auth/otp/login/resend", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/register", fiber.Map{
		"email": "otp@example.com", "name": "Otp", "password": "password123", "password2": "password123",
	})
	require.Equal(t, fiber.StatusCreated, status)
	first := pub.lastCode(t)

	status, body := c.do(http.MethodGet, "/api/v1/auth/otp/registration", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "otp@example.com", body["email"])
	assert.NotContains(t, body, "otp_hint")

	status, _ = c.do(http.MethodPost, "/api/v1/auth/otp/registration/resend", nil)
	assert.Equal(t, fiber.StatusOK, status)
	second := pub.lastCode(t)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/otp/registration/resend", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, second, pub.lastCode(t))

	if first != second {
		status, _ = c.do(http.MethodPost, "/api/v1/auth/otp/registration/verify", fiber.Map{"otp": first})
		assert.Equal(t, fiber.StatusBadRequest, status)
	}

	status, _ = c.do(http.MethodPost, "/api/v1/auth/otp/registration/verify", fiber.Map{"otp": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/otp/registration/verify", fiber.Map{"otp": second})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTokenEndpoints(t *testing.T) {
	srv, pub := setupApp(t)
	signUp(t, srv, pub, "tok@example.com")
	c := &client{t: t, app: srv.App}

	status, _ := c.do(http.MethodPost, "/api/v1/auth/token", fiber.Map{"email": "tok@example.com"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/token", fiber.Map{"email": "tok@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := c.do(http.MethodPost, "/api/v1/auth/token", fiber.Map{"email": "tok@example.com", "password": "password123"})
	require.Equal(t, fiber.StatusOK, status)
	refresh := body["refresh"].(string)

	status, body = c.do(http.MethodPost, "/api/v1/auth/token/refresh", fiber.Map{"refresh": refresh})
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, body["access"])

	status, _ = c.do(http.MethodPost, "/api/v1/auth/token/verify", fiber.Map{"token": refresh})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/token/verify", fiber.Map{"token": "garbage"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCheckoutAndTracker(t *testing.T) {
	srv, pub := setupApp(t)
	c := signUp(t, srv, pub, "customer@example.com")

	status, body := c.do(http.MethodPost, "/api/v1/checkout", checkoutBody("cod"))
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, services.StepCODConfirmation, body["next_step"])
	codOrder := body["order"].(map[string]interface{})
	assert.Equal(t, "cod_pending", codOrder["payment_status"])

	status, body = c.do(http.MethodPost, "/api/v1/checkout", checkoutBody("upi"))
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, services.StepUPIPayment, body["next_step"])
	upiID := orderID(t, body)

	status, body = c.do(http.MethodPost, "/api/v1/payments/upi/success", fiber.Map{"order_id": upiID})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "paid", body["order"].(map[string]interface{})["payment_status"])

	status, _ = c.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d/success", upiID), nil)
	assert.Equal(t, fiber.StatusOK, status)

	anon := &client{t: t, app: srv.App}
	status, body = anon.do(http.MethodPost, "/api/v1/tracker", fiber.Map{
		"orderId": fmt.Sprint(upiID), "email": "CUSTOMER@example.com",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body["status"])
	updates := body["updates"].([]interface{})
	require.Len(t, updates, 2)
	assert.Equal(t, "The order has been placed", updates[0].(map[string]interface{})["text"])
	assert.Equal(t, "Payment received via UPI. Order confirmed.", updates[1].(map[string]interface{})["text"])

	status, body = anon.do(http.MethodPost, "/api/v1/tracker", fiber.Map{"orderId": fmt.Sprint(upiID), "email": "x@example.com"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "noitem", body["status"])

	status, body = anon.do(http.MethodPost, "/api/v1/tracker", fiber.Map{"orderId": "abc", "email": "x@example.com"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])

	status, _ = anon.do(http.MethodPost, "/api/v1/checkout", checkoutBody("cod"))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = c.do(http.MethodGet, "/api/v1/account/orders", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["orders"], 2)

	// A different email in the form still files the order under the signed-in account.
	other := checkoutBody("cod")
	other["email"] = "someone-else@example.com"
	status, body = c.do(http.MethodPost, "/api/v1/checkout", other)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "customer@example.com", body["order"].(map[string]interface{})["email"])
	otherID := orderID(t, body)

	status, body = c.do(http.MethodGet, "/api/v1/account/orders", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["orders"], 3)

	status, _ = c.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d/success", otherID), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = anon.do(http.MethodPost, "/api/v1/cart", checkoutBody(""))
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["thank"])
}

func TestAdminOrderManagement(t *testing.T) {
	srv, pub := setupApp(t)
	customer := signUp(t, srv, pub, "customer@example.com")
	admin := adminClient(t, srv)

	status, body := customer.do(http.MethodPost, "/api/v1/checkout", checkoutBody("cc"))
	require.Equal(t, fiber.StatusCreated, status, body)
	id := orderID(t, body)

	status, _ = customer.do(http.MethodGet, "/api/v1/admin/orders", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = admin.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/orders/%d", id), fiber.Map{
		"order_status": "shipped", "tracking_number": "AWB-1",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Len(t, body["updates"], 2)
	assert.NotNil(t, body["order"].(map[string]interface{})["shipping_date"])

	status, _ = admin.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/orders/%d", id), fiber.Map{"order_status": "lost"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = admin.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/updates", id), fiber.Map{
		"update_desc": "Reached sorting hub", "status_type": "in_transit", "location": "Mumbai",
	})
	assert.Equal(t, fiber.StatusCreated, status)

	status, body = admin.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", id), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1200), body["items_total"])
	timeline := body["timeline"].([]interface{})
	require.Len(t, timeline, 4)
	assert.Equal(t, "Reached sorting hub", timeline[0].(map[string]interface{})["text"])

	status, body = admin.do(http.MethodPost, "/api/v1/admin/orders/actions", fiber.Map{
		"action": "mark_as_delivered", "ids": []uint{id, 999},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["updated"])
	assert.Len(t, body["failed"], 1)

	status, body = admin.do(http.MethodGet, "/api/v1/admin/orders?order_status=delivered", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, _ = admin.do(http.MethodGet, "/api/v1/admin/orders/424242", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = admin.do(http.MethodPost, "/api/v1/admin/users/actions", fiber.Map{
		"action": "deactivate_users", "ids": []uint{1},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["updated"])
}

func TestCatalogAndContent(t *testing.T) {
	srv, _ := setupApp(t)
	admin := adminClient(t, srv)
	anon := &client{t: t, app: srv.App}

	for i := 1; i <= 5; i++ {
		status, body := admin.do(http.MethodPost, "/api/v1/admin/products/", fiber.Map{
			"product_name": fmt.Sprintf("Shirt %d", i), "category": "Shirts", "price": 400 + i,
		})
		require.Equal(t, fiber.StatusCreated, status, body)
	}
	status, _ := admin.do(http.MethodPost, "/api/v1/admin/products/", fiber.Map{"product_name": "Ba", "category": "Bags"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := anon.do(http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, fiber.StatusOK, status)
	categories := body["categories"].([]interface{})
	require.Len(t, categories, 1)
	assert.Equal(t, float64(2), categories[0].(map[string]interface{})["slide_count"])

	status, body = anon.do(http.MethodGet, "/api/v1/categories/Shirts", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["slides"], 2)

	status, _ = anon.do(http.MethodGet, "/api/v1/products/999", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = anon.do(http.MethodGet, "/api/v1/search?search=s", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = anon.do(http.MethodGet, "/api/v1/search?search=shirt", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(6), body["total"])

	status, _ = anon.do(http.MethodPost, "/api/v1/contact", fiber.Map{
		"name": "A", "email": "a@example.com", "phone": "12", "desc": "hello",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = anon.do(http.MethodPost, "/api/v1/contact", fiber.Map{
		"name": "A", "email": "a@example.com", "phone": "9876543210", "desc": "hello",
	})
	assert.Equal(t, fiber.StatusCreated, status)

	status, body = anon.do(http.MethodGet, "/api/v1/blog", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(0), body["post_count"])

	status, _ = admin.do(http.MethodDelete, "/api/v1/admin/products/1", nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := setupApp(t)
	c := &client{t: t, app: srv.App}

	status, body := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "connected", body["rabbitmq"])

	resp, err := srv.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "storefront_http_requests_total")
}
