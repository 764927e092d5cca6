package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	apperrors "momopay/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, h fiber.Handler) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestFromError(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return FromError(c, fmt.Errorf("debit: %w", apperrors.ErrInsufficientFunds))
	})
	assert.Equal(t, apperrors.ErrInsufficientFunds.Status, status)
	assert.Equal(t, apperrors.ErrInsufficientFunds.Code, body["code"])

	status, body = call(t, func(c *fiber.Ctx) error {
		return FromError(c, errors.New("pq: connection refused"))
	})
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
}

func TestValidationError(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return ValidationError(c, []string{"phone is required"})
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, []interface{}{"phone is required"}, body["details"])
}
