package http

import (
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/civicgov/grievance-service/pkg/errorutil"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *stdhttp.Response) errorEnvelope {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func TestErrorMiddlewareMapsDomainErrors(t *testing.T) {
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), nil))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("grievance", map[string]any{"tracking_token": "MH-G-DEADBEEF"})
	})

	resp, err := app.Test(httptest.NewRequest(stdhttp.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)

	envelope := decodeError(t, resp)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
	assert.Equal(t, "MH-G-DEADBEEF", envelope.Error.Details["tracking_token"])
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), nil))
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	resp, err := app.Test(httptest.NewRequest(stdhttp.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp).Error.Code)
}

func TestErrorMiddlewareWrapsUnknownErrors(t *testing.T) {
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), nil))
	app.Get("/oops", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := app.Test(httptest.NewRequest(stdhttp.MethodGet, "/oops", nil))
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusInternalServerError, resp.StatusCode)

	envelope := decodeError(t, resp)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
	assert.NotContains(t, envelope.Error.Message, assert.AnError.Error())
}

func TestRequestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(requestTimeoutMiddleware(5 * time.Second))
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		assert.True(t, ok)
		return c.SendStatus(stdhttp.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(stdhttp.MethodGet, "/deadline", nil))
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusNoContent, resp.StatusCode)
}
