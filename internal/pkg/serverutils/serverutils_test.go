package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"coverage-compare-be/pkg/resolution/session"
	"coverage-compare-be/pkg/resolution/viewstate"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{&ValidationError{Fields: map[string]string{"Query": "required"}}, fiber.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", session.ErrSessionNotFound), fiber.StatusNotFound},
		{session.ErrAccessDenied, fiber.StatusForbidden},
		{session.ErrTurnInProgress, fiber.StatusConflict},
		{fmt.Errorf("%w: tab_change", viewstate.ErrBlockedStateChange), fiber.StatusUnprocessableEntity},
		{io.ErrUnexpectedEOF, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Query string `validate:"required"`
	}
	assert.NoError(t, ValidateRequest(req{Query: "x"}))

	err := ValidateRequest(req{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["Query"])
}

func newJwtApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(nil))
	app.Get("/me", JwtMiddleware(secret), func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("ok", UserID(c)))
	})
	return app
}

func decode(t *testing.T, body io.Reader) Response[string] {
	t.Helper()
	var out Response[string]
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestJwtMiddleware(t *testing.T) {
	secret := "test-secret"
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u-42"}).SignedString([]byte(secret))
	require.NoError(t, err)

	t.Run("anonymous when no secret", func(t *testing.T) {
		resp, err := newJwtApp("").Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, AnonymousUserID, decode(t, resp.Body).Data)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := newJwtApp(secret).Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		resp, err := newJwtApp(secret).Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "u-42", decode(t, resp.Body).Data)
	})

	t.Run("query token", func(t *testing.T) {
		resp, err := newJwtApp(secret).Test(httptest.NewRequest("GET", "/me?token="+signed, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		resp, err := newJwtApp("other").Test(req)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})
}
