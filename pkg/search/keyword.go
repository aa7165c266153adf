package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// KeywordSearcher is the fallback branch when semantic search is
// unavailable.
type KeywordSearcher interface {
	Search(ctx context.Context, module, query string, filter ItemFilter, limit int) ([]Item, error)
}

// HTTPKeywordSearcher queries the legacy search service.
type HTTPKeywordSearcher struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPKeywordSearcher(baseURL string, hc *httpclient.Client) *HTTPKeywordSearcher {
	if hc == nil {
		hc = httpclient.New(httpclient.WithTimeout(5 * time.Second))
	}
	return &HTTPKeywordSearcher{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ KeywordSearcher = (*HTTPKeywordSearcher)(nil)

func (s *HTTPKeywordSearcher) Search(ctx context.Context, module, query string, filter ItemFilter, limit int) ([]Item, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("module", module)
	q.Set("limit", strconv.Itoa(limit))
	if filter.Veg != nil {
		q.Set("veg", strconv.FormatBool(*filter.Veg))
	}
	if filter.PriceMin != nil {
		q.Set("price_min", strconv.FormatFloat(*filter.PriceMin, 'f', -1, 64))
	}
	if filter.PriceMax != nil {
		q.Set("price_max", strconv.FormatFloat(*filter.PriceMax, 'f', -1, 64))
	}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.ZoneID != nil {
		q.Set("zone_id", strconv.Itoa(*filter.ZoneID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Items []Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("keyword search decode: %w", err)
	}
	return out.Items, nil
}
