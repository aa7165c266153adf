package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/queryparser"
)

// historyTimeout bounds the fire-and-forget history write.
const historyTimeout = 3 * time.Second

// ZoneResolver maps coordinates to a serviceable zone.
type ZoneResolver interface {
	GetZone(ctx context.Context, lat, lng float64) (*backend.Zone, error)
}

// Executor runs the search_products composition.
type Executor struct {
	zones    ZoneResolver
	embedder Embedder
	index    VectorIndex
	keyword  KeywordSearcher
	router   DistanceRouter
	history  HistoryTracker
	log      *slog.Logger

	// background schedules fire-and-forget work. The orchestrator
	// injects its bounded queue; the default spawns a goroutine.
	background func(func())
}

type ExecutorOption func(*Executor)

func WithDistanceRouter(r DistanceRouter) ExecutorOption {
	return func(e *Executor) { e.router = r }
}

func WithHistoryTracker(t HistoryTracker) ExecutorOption {
	return func(e *Executor) { e.history = t }
}

func WithBackground(bg func(func())) ExecutorOption {
	return func(e *Executor) { e.background = bg }
}

func NewExecutor(zones ZoneResolver, embedder Embedder, index VectorIndex, keyword KeywordSearcher, opts ...ExecutorOption) *Executor {
	e := &Executor{
		zones:      zones,
		embedder:   embedder,
		index:      index,
		keyword:    keyword,
		log:        slog.Default().With("component", "search"),
		background: func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is the per-call context around the function arguments.
type Input struct {
	Args Args

	// Module is the session's active module, lowest precedence.
	Module string

	ZoneID    *int
	Latitude  float64
	Longitude float64
	HasLoc    bool

	UserID *int64

	// Preferences is the user-preference context; a vegetarian signal in
	// it applies only when neither caller nor parser set veg.
	Preferences map[string]any
}

var moduleAliases = map[string]string{
	"dukan":   "ecom",
	"shop":    "ecom",
	"grocery": "ecom",
	"kirana":  "ecom",
	"store":   "ecom",
	"medical": "pharmacy",
	"chemist": "pharmacy",
}

var (
	foodSniffRe = regexp.MustCompile(`(?i)\b(restaurant|cafe|khana|food)\b`)
	ecomSniffRe = regexp.MustCompile(`(?i)\b(dukan|shop|store)\b`)
)

// NormalizeModule collapses vernacular module aliases.
func NormalizeModule(module string) string {
	m := strings.ToLower(strings.TrimSpace(module))
	if canonical, ok := moduleAliases[m]; ok {
		return canonical
	}
	return m
}

// Execute runs the full pipeline and always returns a well-formed
// response; degradations surface as Warning or the keyword search mode.
func (e *Executor) Execute(ctx context.Context, in Input) *Response {
	resp := &Response{}

	// 1. Zone resolution. Failure is carried as a warning, not an error.
	zoneID := in.ZoneID
	if zoneID == nil && in.HasLoc && e.zones != nil {
		zone, err := e.zones.GetZone(ctx, in.Latitude, in.Longitude)
		if err != nil {
			e.log.Warn("zone resolution failed", "error", err)
			resp.Warning = "Couldn't confirm your delivery zone; some items may be unavailable."
		} else {
			zoneID = &zone.ID
		}
	}
	resp.Zone = zoneID

	// 2. Query parse and filter merge.
	parsed := queryparser.Parse(in.Args.Query)
	caller := queryparser.Filters{
		Veg:          in.Args.Veg,
		PriceMin:     in.Args.PriceMin,
		PriceMax:     in.Args.PriceMax,
		Category:     in.Args.Category,
		TargetModule: NormalizeModule(in.Args.Module),
	}
	filters := queryparser.Merge(caller, parsed, queryparser.Filters{})

	if filters.Veg == nil && vegPreference(in.Preferences) {
		t := true
		filters.Veg = &t
	}

	// 3. Module resolution.
	module := filters.TargetModule
	if module == "" {
		module = NormalizeModule(in.Module)
	}
	if module == "" {
		switch {
		case ecomSniffRe.MatchString(in.Args.Query):
			module = "ecom"
		case foodSniffRe.MatchString(in.Args.Query):
			module = "food"
		default:
			module = "food"
		}
	}

	limit := in.Args.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	filter := ItemFilter{
		Veg:      filters.Veg,
		PriceMin: filters.PriceMin,
		PriceMax: filters.PriceMax,
		Category: filters.Category,
		ZoneID:   zoneID,
	}
	query := filters.CleanQuery
	if query == "" {
		query = in.Args.Query
	}

	// 4. Semantic branch with keyword fallback.
	items, mode := e.fetch(ctx, module, query, filter, limit)

	// 6. Distance enrichment, skipped gracefully.
	if in.HasLoc {
		enrichDistances(ctx, e.router, Point{Latitude: in.Latitude, Longitude: in.Longitude}, items)
	}

	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}

	// 7. Search-history tracking, never on the response path.
	if e.history != nil && in.UserID != nil {
		userID := *in.UserID
		e.background(func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), historyTimeout)
			defer cancel()
			if err := e.history.Record(bgCtx, userID, in.Args.Query, module); err != nil {
				e.log.Warn("search history write failed", "error", err)
			}
		})
	}

	resp.Total = total
	resp.Showing = len(items)
	resp.Items = items
	resp.SearchMode = mode
	resp.Message = buildMessage(query, items, total)
	return resp
}

// fetch tries the semantic branch and falls back to keyword search on
// any failure along the way.
func (e *Executor) fetch(ctx context.Context, module, query string, filter ItemFilter, limit int) ([]Item, string) {
	if e.embedder != nil && e.index != nil {
		vector, err := e.embedder.Embed(ctx, query)
		if err == nil {
			collection := module + "_items_v2"
			items, qerr := e.index.Query(ctx, collection, vector, filter, knnK)
			if qerr == nil {
				return items, ModeSemantic
			}
			e.log.Warn("semantic search failed, falling back to keyword", "collection", collection, "error", qerr)
		} else {
			e.log.Warn("embedding failed, falling back to keyword", "error", err)
		}
	}

	if e.keyword == nil {
		return nil, ModeKeyword
	}
	items, err := e.keyword.Search(ctx, module, query, filter, limit)
	if err != nil {
		e.log.Error("keyword search failed", "error", err)
		return nil, ModeKeyword
	}
	return items, ModeKeyword
}

func buildMessage(query string, items []Item, total int) string {
	if len(items) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find anything for %q. Try a different search?", query)
	}
	msg := fmt.Sprintf("Found %d results for %q.", total, query)
	if top := items[0]; top.DistanceKm != nil {
		msg += fmt.Sprintf(" Nearest: %s (%s away).", top.Name, formatKm(*top.DistanceKm))
	}
	return msg
}

func vegPreference(prefs map[string]any) bool {
	if prefs == nil {
		return false
	}
	switch v := prefs["vegetarian"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return false
}
