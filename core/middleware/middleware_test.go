package middleware_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"storesync/core/middleware/auth"
	"storesync/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(key string) *fiber.App {
	app := fiber.New()
	app.Use(rayid.New())
	app.Use(auth.New(auth.Config{
		ApiKey: key,
		Next:   func(c *fiber.Ctx) bool { return c.Path() == "/public" },
	}))
	app.Get("/ray", func(c *fiber.Ctx) error { return c.SendString(rayid.Get(c)) })
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		path   string
		want   int
	}{
		{"Disabled", "", "", "/ray", 200},
		{"Valid", "secret", "secret", "/ray", 200},
		{"Missing", "secret", "", "/ray", 401},
		{"Wrong", "secret", "nope", "/ray", 401},
		{"Skipped", "secret", "", "/public", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(auth.Header, tt.header)
			}
			resp, err := newApp(tt.key).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(rayid.Header))
		})
	}
}

func TestRayID(t *testing.T) {
	app := newApp("")

	t.Run("Generated", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/ray", nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)

		id := resp.Header.Get(rayid.Header)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, string(body))
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ray", nil)
		req.Header.Set(rayid.Header, "trace-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)

		assert.Equal(t, "trace-1", resp.Header.Get(rayid.Header))
		assert.Equal(t, "trace-1", string(body))
	})
}
