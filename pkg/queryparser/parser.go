// Package queryparser extracts structured search filters (veg, price
// range, category, rating, target module) and a cleaned query string from
// natural text such as "show me veg pizza under 300".
package queryparser

import (
	"regexp"
	"strconv"
	"strings"
)

// Filters is the parse result. Pointer fields are nil when the text gave
// no signal, so callers can distinguish "not specified" from zero values.
type Filters struct {
	CleanQuery   string
	Veg          *bool
	PriceMin     *float64
	PriceMax     *float64
	Category     string
	Rating       *float64
	TargetModule string
}

// Module hints, stripped from the clean query. Order matters: more
// specific words are checked first.
var moduleHints = []struct {
	re     *regexp.Regexp
	module string
}{
	{regexp.MustCompile(`(?i)\b(pharmacy|medical\s?store|chemist)\b`), "pharmacy"},
	{regexp.MustCompile(`(?i)\b(grocery|groceries|kirana)\b`), "ecom"},
	{regexp.MustCompile(`(?i)\b(store|dukan|shop)\b`), "ecom"},
	{regexp.MustCompile(`(?i)\b(restaurant|restaurants|cafe)\b`), "food"},
}

var vegRe = regexp.MustCompile(`(?i)\b(pure\s?veg|vegetarian|veg)\b`)
var nonVegRe = regexp.MustCompile(`(?i)\b(chicken|mutton|fish|prawns?|egg|keema|non[\s-]?veg)\b`)

var (
	betweenRe  = regexp.MustCompile(`(?i)\bbetween\s+(?:rs\.?\s*|₹\s*)?(\d+)\s+and\s+(?:rs\.?\s*|₹\s*)?(\d+)\b`)
	priceMaxRe = regexp.MustCompile(`(?i)\b(?:under|below|max|upto|up\s+to|within)\s+(?:rs\.?\s*|₹\s*)?(\d+)\b`)
	priceMinRe = regexp.MustCompile(`(?i)\b(?:above|over|min|from|at\s+least)\s+(?:rs\.?\s*|₹\s*)?(\d+)\b`)
	ratingRe   = regexp.MustCompile(`(?i)\b(?:rated|rating)\s+(?:above|over|at\s+least|>=?)?\s*(\d(?:\.\d)?)\s*(?:stars?|\+)?`)
)

// Cuisine words mapped to the closed category tag set.
var cuisineCategories = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)\b(chinese|noodles|momos?|manchurian)\b`), "chinese"},
	{regexp.MustCompile(`(?i)\b(italian|pizza|pasta)\b`), "italian"},
	{regexp.MustCompile(`(?i)\b(indian|biryani|thali|dal|paneer|curry)\b`), "indian"},
	{regexp.MustCompile(`(?i)\b(mexican|tacos?|burrito)\b`), "mexican"},
	{regexp.MustCompile(`(?i)\b(burger|fries|fast\s?food|sandwich)\b`), "fast-food"},
	{regexp.MustCompile(`(?i)\b(dessert|cake|ice\s?cream|sweets?|pastry)\b`), "dessert"},
}

var fillerRe = regexp.MustCompile(`(?i)\b(show\s+me|find\s+me|find|search\s+for|search|i\s+want\s+to\s+order|i\s+want|i\s+need|looking\s+for|get\s+me|order\s+me)\b`)

// Parse extracts filters from natural text and returns the remaining
// cleaned query.
func Parse(query string) Filters {
	var f Filters
	clean := query

	// Module hint precedence: explicit store/restaurant keywords set the
	// target module and are stripped.
	for _, hint := range moduleHints {
		if hint.re.MatchString(clean) {
			if f.TargetModule == "" {
				f.TargetModule = hint.module
			}
			clean = hint.re.ReplaceAllString(clean, " ")
		}
	}

	// Veg wins over non-veg when both appear ("veg and chicken" is rare
	// and the safer read is vegetarian). Non-veg names are detected
	// anywhere and intentionally not stripped: they are part of the query.
	if vegRe.MatchString(clean) {
		f.Veg = boolPtr(true)
		clean = vegRe.ReplaceAllString(clean, " ")
	} else if nonVegRe.MatchString(clean) {
		f.Veg = boolPtr(false)
	}

	// Price: "between N and M" first, then max, then min. First match wins.
	if m := betweenRe.FindStringSubmatch(clean); m != nil {
		f.PriceMin = parsePrice(m[1])
		f.PriceMax = parsePrice(m[2])
		clean = betweenRe.ReplaceAllString(clean, " ")
	} else {
		if m := priceMaxRe.FindStringSubmatch(clean); m != nil {
			f.PriceMax = parsePrice(m[1])
			clean = priceMaxRe.ReplaceAllString(clean, " ")
		}
		if f.PriceMax == nil {
			if m := priceMinRe.FindStringSubmatch(clean); m != nil {
				f.PriceMin = parsePrice(m[1])
				clean = priceMinRe.ReplaceAllString(clean, " ")
			}
		}
	}

	if m := ratingRe.FindStringSubmatch(clean); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.Rating = &v
			clean = ratingRe.ReplaceAllString(clean, " ")
		}
	}

	for _, c := range cuisineCategories {
		if c.re.MatchString(clean) {
			f.Category = c.category
			// Cuisine presence without an explicit module hint means food.
			if f.TargetModule == "" {
				f.TargetModule = "food"
			}
			break
		}
	}

	clean = fillerRe.ReplaceAllString(clean, " ")
	f.CleanQuery = strings.Join(strings.Fields(clean), " ")

	return f
}

// Merge applies precedence caller > parsed > defaults and returns the
// effective filters. The CleanQuery always comes from parsed.
func Merge(caller, parsed, defaults Filters) Filters {
	out := parsed

	if caller.Veg != nil {
		out.Veg = caller.Veg
	} else if out.Veg == nil {
		out.Veg = defaults.Veg
	}
	if caller.PriceMin != nil {
		out.PriceMin = caller.PriceMin
	} else if out.PriceMin == nil {
		out.PriceMin = defaults.PriceMin
	}
	if caller.PriceMax != nil {
		out.PriceMax = caller.PriceMax
	} else if out.PriceMax == nil {
		out.PriceMax = defaults.PriceMax
	}
	if caller.Category != "" {
		out.Category = caller.Category
	} else if out.Category == "" {
		out.Category = defaults.Category
	}
	if caller.Rating != nil {
		out.Rating = caller.Rating
	} else if out.Rating == nil {
		out.Rating = defaults.Rating
	}
	if caller.TargetModule != "" {
		out.TargetModule = caller.TargetModule
	} else if out.TargetModule == "" {
		out.TargetModule = defaults.TargetModule
	}

	return out
}

func parsePrice(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func boolPtr(b bool) *bool { return &b }
