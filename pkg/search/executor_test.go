package search

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
)

type fakeZones struct {
	zone *backend.Zone
	err  error
}

func (f *fakeZones) GetZone(ctx context.Context, lat, lng float64) (*backend.Zone, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.zone, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	items      []Item
	err        error
	collection string
	filter     ItemFilter
	k          int
}

func (f *fakeIndex) Query(ctx context.Context, collection string, vector []float32, filter ItemFilter, k int) ([]Item, error) {
	f.collection = collection
	f.filter = filter
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeKeyword struct {
	items []Item
	err   error
	calls int
}

func (f *fakeKeyword) Search(ctx context.Context, module, query string, filter ItemFilter, limit int) ([]Item, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeRouter struct {
	dists []float64
	err   error
}

func (f *fakeRouter) Distances(ctx context.Context, origin Point, dests []Point) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dists[:len(dests)], nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []string
}

func (f *fakeHistory) Record(ctx context.Context, userID int64, query, module string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, fmt.Sprintf("%d:%s:%s", userID, query, module))
	return nil
}

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("i%d", i), Name: fmt.Sprintf("Item %d", i), Price: float64(100 + i)}
	}
	return items
}

func TestExecute_SemanticBranch(t *testing.T) {
	index := &fakeIndex{items: makeItems(50)}
	keyword := &fakeKeyword{}
	zone := 4
	e := NewExecutor(nil, &fakeEmbedder{}, index, keyword)

	resp := e.Execute(context.Background(), Input{
		Args:   Args{Query: "veg pizza under 300", Module: "food"},
		ZoneID: &zone,
	})

	assert.Equal(t, ModeSemantic, resp.SearchMode)
	assert.Equal(t, "food_items_v2", index.collection)
	assert.Equal(t, knnK, index.k)
	assert.Equal(t, 50, resp.Total)
	assert.Equal(t, DefaultLimit, resp.Showing)
	assert.Zero(t, keyword.calls)

	require.NotNil(t, index.filter.Veg)
	assert.True(t, *index.filter.Veg)
	require.NotNil(t, index.filter.PriceMax)
	assert.Equal(t, 300.0, *index.filter.PriceMax)
	require.NotNil(t, index.filter.ZoneID)
	assert.Equal(t, 4, *index.filter.ZoneID)
}

func TestExecute_EmbeddingFailureFallsBackToKeyword(t *testing.T) {
	keyword := &fakeKeyword{items: makeItems(3)}
	e := NewExecutor(nil, &fakeEmbedder{err: fmt.Errorf("503 service unavailable")}, &fakeIndex{}, keyword)

	resp := e.Execute(context.Background(), Input{Args: Args{Query: "pizza"}})
	assert.Equal(t, ModeKeyword, resp.SearchMode)
	assert.Equal(t, 1, keyword.calls)
	assert.Equal(t, 3, resp.Showing)
}

func TestExecute_IndexFailureFallsBackToKeyword(t *testing.T) {
	keyword := &fakeKeyword{items: makeItems(2)}
	e := NewExecutor(nil, &fakeEmbedder{}, &fakeIndex{err: fmt.Errorf("connection refused")}, keyword)

	resp := e.Execute(context.Background(), Input{Args: Args{Query: "pizza"}})
	assert.Equal(t, ModeKeyword, resp.SearchMode)
	assert.Equal(t, 2, resp.Total)
}

func TestExecute_ZoneWarningDoesNotBlock(t *testing.T) {
	e := NewExecutor(&fakeZones{err: fmt.Errorf("out of area")}, &fakeEmbedder{}, &fakeIndex{items: makeItems(1)}, nil)

	resp := e.Execute(context.Background(), Input{
		Args:     Args{Query: "pizza"},
		HasLoc:   true,
		Latitude: 19.99, Longitude: 73.78,
	})
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, 1, resp.Showing)
	assert.Nil(t, resp.Zone)
}

func TestExecute_ZoneResolvedFromLocation(t *testing.T) {
	index := &fakeIndex{items: makeItems(1)}
	e := NewExecutor(&fakeZones{zone: &backend.Zone{ID: 7, Name: "Nashik"}}, &fakeEmbedder{}, index, nil)

	resp := e.Execute(context.Background(), Input{
		Args:     Args{Query: "pizza"},
		HasLoc:   true,
		Latitude: 19.99, Longitude: 73.78,
	})
	require.NotNil(t, resp.Zone)
	assert.Equal(t, 7, *resp.Zone)
	require.NotNil(t, index.filter.ZoneID)
	assert.Equal(t, 7, *index.filter.ZoneID)
}

func TestExecute_ModulePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		args   Args
		module string
		want   string
	}{
		{"caller wins", Args{Query: "rice", Module: "ecom"}, "food", "ecom"},
		{"caller alias normalized", Args{Query: "rice", Module: "kirana"}, "food", "ecom"},
		{"parser beats context", Args{Query: "medicine from chemist"}, "food", "pharmacy"},
		{"context module", Args{Query: "rice"}, "ecom", "ecom"},
		{"default food", Args{Query: "rice"}, "", "food"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndex{items: makeItems(1)}
			e := NewExecutor(nil, &fakeEmbedder{}, index, nil)
			e.Execute(context.Background(), Input{Args: tt.args, Module: tt.module})
			assert.Equal(t, tt.want+"_items_v2", index.collection)
		})
	}
}

func TestExecute_VegPreferenceOnlyWhenUnset(t *testing.T) {
	index := &fakeIndex{items: makeItems(1)}
	e := NewExecutor(nil, &fakeEmbedder{}, index, nil)

	e.Execute(context.Background(), Input{
		Args:        Args{Query: "pizza"},
		Preferences: map[string]any{"vegetarian": true},
	})
	require.NotNil(t, index.filter.Veg)
	assert.True(t, *index.filter.Veg)

	// Caller veg=false beats the preference signal.
	f := false
	e.Execute(context.Background(), Input{
		Args:        Args{Query: "pizza", Veg: &f},
		Preferences: map[string]any{"vegetarian": true},
	})
	require.NotNil(t, index.filter.Veg)
	assert.False(t, *index.filter.Veg)
}

func TestExecute_DistanceEnrichmentSorts(t *testing.T) {
	items := []Item{
		{ID: "far", Name: "Far", Latitude: 20.1, Longitude: 73.9},
		{ID: "near", Name: "Near", Latitude: 20.0, Longitude: 73.8},
	}
	e := NewExecutor(nil, &fakeEmbedder{}, &fakeIndex{items: items},
		nil, WithDistanceRouter(&fakeRouter{dists: []float64{5.2, 1.1}}))

	resp := e.Execute(context.Background(), Input{
		Args:   Args{Query: "pizza"},
		HasLoc: true, Latitude: 19.99, Longitude: 73.78,
	})
	require.Equal(t, 2, resp.Showing)
	assert.Equal(t, "near", resp.Items[0].ID)
	assert.Contains(t, resp.Message, "Near")
}

func TestExecute_DistanceFailureSkipsEnrichment(t *testing.T) {
	items := []Item{{ID: "a", Name: "A", Latitude: 20.1, Longitude: 73.9}}
	e := NewExecutor(nil, &fakeEmbedder{}, &fakeIndex{items: items},
		nil, WithDistanceRouter(&fakeRouter{err: fmt.Errorf("osrm down")}))

	resp := e.Execute(context.Background(), Input{
		Args:   Args{Query: "pizza"},
		HasLoc: true, Latitude: 19.99, Longitude: 73.78,
	})
	assert.Nil(t, resp.Items[0].DistanceKm)
}

func TestExecute_HistoryRecordedInBackground(t *testing.T) {
	history := &fakeHistory{}
	var ran []func()
	e := NewExecutor(nil, &fakeEmbedder{}, &fakeIndex{items: makeItems(1)}, nil,
		WithHistoryTracker(history),
		WithBackground(func(f func()) { ran = append(ran, f) }),
	)

	userID := int64(42)
	e.Execute(context.Background(), Input{
		Args:   Args{Query: "pizza", Module: "food"},
		UserID: &userID,
	})
	require.Len(t, ran, 1)
	ran[0]()
	assert.Equal(t, []string{"42:pizza:food"}, history.records)
}

func TestExecute_EmptyResultsMessage(t *testing.T) {
	e := NewExecutor(nil, &fakeEmbedder{}, &fakeIndex{}, nil)
	resp := e.Execute(context.Background(), Input{Args: Args{Query: "unobtainium"}})
	assert.Zero(t, resp.Total)
	assert.Contains(t, resp.Message, "couldn't find")
}

func TestNormalizeModule(t *testing.T) {
	assert.Equal(t, "ecom", NormalizeModule("Dukan"))
	assert.Equal(t, "ecom", NormalizeModule("grocery"))
	assert.Equal(t, "pharmacy", NormalizeModule("chemist"))
	assert.Equal(t, "food", NormalizeModule("food"))
}

func TestFunctionSchema(t *testing.T) {
	schema := FunctionSchema()
	require.NotNil(t, schema)
	assert.Contains(t, schema.Required, "query")
	_, ok := schema.Properties.Get("module")
	assert.True(t, ok)
}
