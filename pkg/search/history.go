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

// HistoryTracker records what users searched for. Calls are
// fire-and-forget from the executor; failures are logged and swallowed.
type HistoryTracker interface {
	Record(ctx context.Context, userID int64, query, module string) error
}

// HTTPHistoryTracker writes search history to the profile service.
type HTTPHistoryTracker struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPHistoryTracker(baseURL string, hc *httpclient.Client) *HTTPHistoryTracker {
	if hc == nil {
		hc = httpclient.New(
			httpclient.WithTimeout(3*time.Second),
			httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.NoRetry }),
		)
	}
	return &HTTPHistoryTracker{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ HistoryTracker = (*HTTPHistoryTracker)(nil)

func (t *HTTPHistoryTracker) Record(ctx context.Context, userID int64, query, module string) error {
	raw, err := json.Marshal(map[string]any{
		"user_id": userID,
		"query":   query,
		"module":  module,
		"ts":      time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/profile/search-history", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("search history: %w", err)
	}
	resp.Body.Close()
	return nil
}
