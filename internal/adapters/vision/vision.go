// Package vision calls the external image analysis service that suggests
// a category and priority for a photographed problem.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrDisabled is returned when no service URL is configured
var ErrDisabled = errors.New("vision service not configured")

// Analysis is the service's suggestion for an image
type Analysis struct {
	SuggestedCategory string   `json:"suggestedCategory"`
	SuggestedPriority string   `json:"suggestedPriority"`
	Description       string   `json:"description"`
	Confidence        float64  `json:"confidence"`
	Tags              []string `json:"tags"`
	Available         bool     `json:"available"`
}

// Empty is the fallback returned when the service is unavailable
func Empty() *Analysis {
	return &Analysis{Tags: []string{}}
}

// Analyzer suggests issue metadata for an image
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, fileName, contentType string) (*Analysis, error)
}

// HTTPAnalyzer posts the image as multipart form data to url
type HTTPAnalyzer struct {
	url    string
	client *http.Client
}

// NewHTTPAnalyzer creates an analyzer with the given request timeout
func NewHTTPAnalyzer(url string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAnalyzer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Analyze sends the image and decodes the suggestion
func (a *HTTPAnalyzer) Analyze(ctx context.Context, image []byte, fileName, contentType string) (*Analysis, error) {
	if a.url == "" {
		return nil, ErrDisabled
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := w.WriteField("contentType", contentType); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vision service returned %d: %s", resp.StatusCode, snippet)
	}

	out := Empty()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	out.Available = true
	return out, nil
}
