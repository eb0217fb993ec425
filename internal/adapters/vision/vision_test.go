package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAnalyzer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "pothole.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggestedCategory":"Roads","suggestedPriority":"HIGH","confidence":0.82}`))
	}))
	defer srv.Close()

	got, err := NewHTTPAnalyzer(srv.URL, time.Second).Analyze(context.Background(), []byte("img"), "pothole.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Equal(t, "Roads", got.SuggestedCategory)
	assert.Equal(t, "HIGH", got.SuggestedPriority)
	assert.NotNil(t, got.Tags)
}

func TestHTTPAnalyzer_Errors(t *testing.T) {
	_, err := NewHTTPAnalyzer("", 0).Analyze(context.Background(), nil, "a.jpg", "image/jpeg")
	assert.ErrorIs(t, err, ErrDisabled)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err = NewHTTPAnalyzer(srv.URL, time.Second).Analyze(context.Background(), []byte("x"), "a.jpg", "image/jpeg")
	assert.Error(t, err)
}
