package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warbler/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Get("/ctx", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		rid, _ := ctx.Value(observability.RequestIDKey).(string)
		return c.JSON(fiber.Map{
			"request_id":     rid,
			"correlation_id": observability.ExtractCorrelationID(ctx),
		})
	})

	t.Run("propagates supplied correlation id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
		req.Header.Set(CorrelationHeader, "corr-123")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, "corr-123", resp.Header.Get(CorrelationHeader))
	})

	t.Run("generates a correlation id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ctx", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.NotEmpty(t, resp.Header.Get(CorrelationHeader))
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	})
}

func TestStorageTimeout(t *testing.T) {
	app := fiber.New()
	app.Use(StorageTimeout(20 * time.Millisecond))
	app.Get("/slow", func(c *fiber.Ctx) error {
		select {
		case <-c.UserContext().Done():
			if errors.Is(c.UserContext().Err(), context.DeadlineExceeded) {
				return c.SendStatus(fiber.StatusServiceUnavailable)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		case <-time.After(time.Second):
			return c.SendStatus(fiber.StatusOK)
		}
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil), 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
