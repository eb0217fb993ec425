package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"dimos-fixit/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, err error) (int, Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return FromError(c, err) })

	resp, e := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, e)
	body, e := io.ReadAll(resp.Body)
	require.NoError(t, e)

	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestFromError_Kinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.NotFound("issue not found"), 404},
		{domain.Forbidden("nope"), 403},
		{domain.Unauthenticated("login"), 401},
		{domain.Conflict("email already registered"), 400},
		{domain.Internal(errors.New("db down")), 500},
		{errors.New("foreign"), 500},
	}
	for _, tc := range cases {
		code, body := call(t, tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.False(t, body.Success)
	}
}

func TestFromError_InternalHidesCause(t *testing.T) {
	_, body := call(t, domain.Internal(errors.New("dsn password=hunter2")))
	assert.Equal(t, "Internal server error", body.Error)
}

func TestFromError_ValidationFields(t *testing.T) {
	code, body := call(t, domain.FieldError("title", "title is required"))
	assert.Equal(t, 400, code)
	assert.Equal(t, "title is required", body.Errors["title"])
}
