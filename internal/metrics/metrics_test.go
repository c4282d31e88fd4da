package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/orders/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "no") })

	okBefore := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/orders/:id", "204"))
	errBefore := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/boom", "418"))

	for _, path := range []string{"/orders/1", "/orders/2", "/boom"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/orders/:id", "204")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/boom", "418")))
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(amountMismatches)
	RecordAmountMismatch()
	assert.Equal(t, before+1, testutil.ToFloat64(amountMismatches))

	before = testutil.ToFloat64(otpVerifications.WithLabelValues("login", "expired"))
	RecordOTPVerification("login", "expired")
	assert.Equal(t, before+1, testutil.ToFloat64(otpVerifications.WithLabelValues("login", "expired")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordOrderCreated("cod")

	app := fiber.New()
	app.Get("/metrics", adaptor.HTTPHandler(Handler()))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storefront_orders_created_total{payment_method="cod"}`)
	assert.NotContains(t, string(body), "go_goroutines")
}
