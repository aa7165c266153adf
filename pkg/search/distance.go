package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// Point is a coordinate pair for distance lookups.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// DistanceRouter resolves road distances from an origin to a set of
// destinations, in kilometers, in destination order.
type DistanceRouter interface {
	Distances(ctx context.Context, origin Point, dests []Point) ([]float64, error)
}

// HTTPDistanceRouter calls the routing service's table endpoint.
type HTTPDistanceRouter struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPDistanceRouter(baseURL string, hc *httpclient.Client) *HTTPDistanceRouter {
	if hc == nil {
		hc = httpclient.New(httpclient.WithTimeout(3 * time.Second))
	}
	return &HTTPDistanceRouter{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ DistanceRouter = (*HTTPDistanceRouter)(nil)

func (r *HTTPDistanceRouter) Distances(ctx context.Context, origin Point, dests []Point) ([]float64, error) {
	pairs := make([]string, 0, len(dests))
	for _, d := range dests {
		pairs = append(pairs, fmt.Sprintf("%f,%f", d.Latitude, d.Longitude))
	}
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude))
	q.Set("destinations", strings.Join(pairs, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+"/table?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("distance table: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		DistancesKm []float64 `json:"distances_km"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("distance table decode: %w", err)
	}
	if len(out.DistancesKm) != len(dests) {
		return nil, fmt.Errorf("distance table returned %d entries for %d destinations",
			len(out.DistancesKm), len(dests))
	}
	return out.DistancesKm, nil
}

// enrichDistances annotates items with distance_km from the user's
// location and sorts ascending. Items without coordinates sort last.
// Any router failure leaves the list untouched.
func enrichDistances(ctx context.Context, router DistanceRouter, origin Point, items []Item) bool {
	if router == nil || len(items) == 0 {
		return false
	}

	var idx []int
	var dests []Point
	for i, item := range items {
		if item.Latitude != 0 || item.Longitude != 0 {
			idx = append(idx, i)
			dests = append(dests, Point{Latitude: item.Latitude, Longitude: item.Longitude})
		}
	}
	if len(dests) == 0 {
		return false
	}

	dists, err := router.Distances(ctx, origin, dests)
	if err != nil {
		return false
	}
	for j, i := range idx {
		d := dists[j]
		items[i].DistanceKm = &d
	}

	sort.SliceStable(items, func(a, b int) bool {
		da, db := items[a].DistanceKm, items[b].DistanceKm
		switch {
		case da == nil:
			return false
		case db == nil:
			return true
		default:
			return *da < *db
		}
	})
	return true
}

func formatKm(d float64) string {
	return strconv.FormatFloat(d, 'f', 1, 64) + " km"
}
