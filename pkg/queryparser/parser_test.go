package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Golden(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, f Filters)
	}{
		{
			name:  "veg with price cap",
			query: "show me veg pizza under 300",
			check: func(t *testing.T, f Filters) {
				require.NotNil(t, f.Veg)
				assert.True(t, *f.Veg)
				require.NotNil(t, f.PriceMax)
				assert.Equal(t, 300.0, *f.PriceMax)
				assert.Equal(t, "italian", f.Category)
				assert.Equal(t, "food", f.TargetModule)
				assert.Equal(t, "pizza", f.CleanQuery)
			},
		},
		{
			name:  "non-veg detected but not stripped",
			query: "chicken biryani",
			check: func(t *testing.T, f Filters) {
				require.NotNil(t, f.Veg)
				assert.False(t, *f.Veg)
				assert.Equal(t, "chicken biryani", f.CleanQuery)
			},
		},
		{
			name:  "between range",
			query: "pasta between 200 and 500",
			check: func(t *testing.T, f Filters) {
				require.NotNil(t, f.PriceMin)
				require.NotNil(t, f.PriceMax)
				assert.Equal(t, 200.0, *f.PriceMin)
				assert.Equal(t, 500.0, *f.PriceMax)
			},
		},
		{
			name:  "price min",
			query: "gifts above 1000",
			check: func(t *testing.T, f Filters) {
				require.NotNil(t, f.PriceMin)
				assert.Equal(t, 1000.0, *f.PriceMin)
				assert.Nil(t, f.PriceMax)
			},
		},
		{
			name:  "rating",
			query: "restaurants rated above 4 stars",
			check: func(t *testing.T, f Filters) {
				require.NotNil(t, f.Rating)
				assert.Equal(t, 4.0, *f.Rating)
				assert.Equal(t, "food", f.TargetModule)
			},
		},
		{
			name:  "module hint kirana",
			query: "find atta in kirana",
			check: func(t *testing.T, f Filters) {
				assert.Equal(t, "ecom", f.TargetModule)
				assert.Equal(t, "atta in", f.CleanQuery)
			},
		},
		{
			name:  "pharmacy hint",
			query: "paracetamol from pharmacy",
			check: func(t *testing.T, f Filters) {
				assert.Equal(t, "pharmacy", f.TargetModule)
			},
		},
		{
			name:  "filler stripped",
			query: "i want momos",
			check: func(t *testing.T, f Filters) {
				assert.Equal(t, "momos", f.CleanQuery)
				assert.Equal(t, "chinese", f.Category)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Parse(tt.query))
		})
	}
}

func TestMerge_Precedence(t *testing.T) {
	vTrue, vFalse := true, false
	p100, p200, p300 := 100.0, 200.0, 300.0

	caller := Filters{Veg: &vTrue, PriceMax: &p100}
	parsed := Filters{Veg: &vFalse, PriceMax: &p200, Category: "indian", CleanQuery: "thali"}
	defaults := Filters{PriceMax: &p300, TargetModule: "food", Category: "dessert"}

	out := Merge(caller, parsed, defaults)

	assert.True(t, *out.Veg, "caller wins over parsed")
	assert.Equal(t, 100.0, *out.PriceMax, "caller wins over parsed and defaults")
	assert.Equal(t, "indian", out.Category, "parsed wins over defaults")
	assert.Equal(t, "food", out.TargetModule, "defaults fill gaps")
	assert.Equal(t, "thali", out.CleanQuery)
}
