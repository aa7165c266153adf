package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// Embedder turns query text into a vector for the semantic branch.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPEmbedder calls the embedding sidecar.
type HTTPEmbedder struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPEmbedder(baseURL string, hc *httpclient.Client) *HTTPEmbedder {
	if hc == nil {
		hc = httpclient.New(httpclient.WithTimeout(5 * time.Second))
	}
	return &HTTPEmbedder{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ Embedder = (*HTTPEmbedder)(nil)

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding decode: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}
	return out.Embedding, nil
}
