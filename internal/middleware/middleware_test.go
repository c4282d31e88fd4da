package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware_secret"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newApp() *fiber.App {
	otp := services.NewOTPService(repositories.NewMockChallengeRepository(), services.DefaultOTPConfig)
	auth := services.NewAuthService(nil, otp, nil, services.AuthConfig{JWTSecret: secret})

	app := fiber.New()
	app.Use(middleware.Session(middleware.SessionConfig{CookieName: "sid"}))
	app.Get("/session", func(c *fiber.Ctx) error {
		return c.SendString(middleware.SessionID(c))
	})
	authed := app.Group("/me", middleware.AuthRequired(auth))
	authed.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": middleware.UserID(c), "email": middleware.Email(c)})
	})
	admin := app.Group("/admin", middleware.AuthRequired(auth), middleware.AdminRequired())
	admin.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	return app
}

func TestSession_IssuesAndReusesCookie(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/session", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: cookies[0].Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, cookies[0].Value, string(body))
	assert.Empty(t, resp.Cookies())

	// Tampered ids are replaced.
	req = httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Len(t, resp.Cookies(), 1)
}

func TestAuthRequired(t *testing.T) {
	app := newApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/me/", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	access := signed(t, jwt.MapClaims{
		"user_id": 3, "email": "a@b.co", "token_type": "access", "exp": time.Now().Add(time.Hour).Unix(),
	})
	req = httptest.NewRequest(http.MethodGet, "/me/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"id":3,"email":"a@b.co"}`, string(body))

	refresh := signed(t, jwt.MapClaims{"user_id": 3, "token_type": "refresh", "exp": time.Now().Add(time.Hour).Unix()})
	req = httptest.NewRequest(http.MethodGet, "/me/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRequired(t *testing.T) {
	app := newApp()
	user := &models.User{ID: 1}

	for _, tc := range []struct {
		admin bool
		want  int
	}{
		{false, fiber.StatusForbidden},
		{true, fiber.StatusNoContent},
	} {
		token := signed(t, jwt.MapClaims{
			"user_id": user.ID, "is_admin": tc.admin, "token_type": "access", "exp": time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode)
	}
}
