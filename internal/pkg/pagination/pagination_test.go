package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Normalizes(t *testing.T) {
	p := New(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = New(3, 500)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 200, p.Offset)
}

func TestGetMeta(t *testing.T) {
	cases := []struct {
		page, limit int
		total       int64
		pages       int
		next, prev  bool
	}{
		{1, 20, 0, 0, false, false},
		{1, 20, 20, 1, false, false},
		{1, 20, 21, 2, true, false},
		{2, 10, 25, 3, true, true},
		{3, 10, 25, 3, false, true},
	}
	for _, tc := range cases {
		m := GetMeta(New(tc.page, tc.limit), tc.total)
		assert.Equal(t, tc.pages, m.TotalPages, "total=%d limit=%d", tc.total, tc.limit)
		assert.Equal(t, tc.next, m.HasNext)
		assert.Equal(t, tc.prev, m.HasPrev)
	}
}

func TestGetParams_FromQuery(t *testing.T) {
	app := fiber.New()
	var got *Params
	app.Get("/", func(c *fiber.Ctx) error {
		got = GetParams(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?page=2&limit=5", nil))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, 5, got.Offset)
}
