package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(cfg SenderAuthConfig) *fiber.App {
	app := fiber.New()
	app.Post("/orders/accepted", SenderAuthMiddleware(cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestSenderAuthDisabledByDefault(t *testing.T) {
	app := newAuthApp(SenderAuthConfig{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/orders/accepted", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestSenderAuthSecret(t *testing.T) {
	app := newAuthApp(SenderAuthConfig{Secret: "s3cret"})

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer", "Authorization", "Bearer s3cret", fiber.StatusNoContent},
		{"bearer lowercase scheme", "Authorization", "bearer s3cret", fiber.StatusNoContent},
		{"raw authorization", "Authorization", "s3cret", fiber.StatusNoContent},
		{"dedicated header", "X-Webhook-Secret", "s3cret", fiber.StatusNoContent},
		{"wrong secret", "Authorization", "Bearer nope", fiber.StatusUnauthorized},
		{"prefix of secret", "Authorization", "Bearer s3cre", fiber.StatusUnauthorized},
		{"missing", "", "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders/accepted", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSenderAuthUserAgent(t *testing.T) {
	app := newAuthApp(SenderAuthConfig{UserAgent: "GloriaFood"})

	req := httptest.NewRequest(http.MethodPost, "/orders/accepted", nil)
	req.Header.Set("User-Agent", "GloriaFood-Webhook/2.0")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/orders/accepted", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
