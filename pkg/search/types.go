// Package search composes the product search pipeline: zone resolution,
// query parsing, semantic k-NN with keyword fallback, distance
// enrichment, and fire-and-forget history tracking.
package search

import (
	"github.com/invopop/jsonschema"
)

// Args are the caller-supplied function arguments for search_products.
// Pointer fields distinguish "unset" from zero values so the merge with
// parsed filters keeps caller precedence.
type Args struct {
	Query    string   `json:"query" jsonschema:"required,description=What the user is looking for"`
	Module   string   `json:"module,omitempty" jsonschema:"description=Commerce vertical: food ecom pharmacy or parcel,enum=food,enum=ecom,enum=pharmacy"`
	Veg      *bool    `json:"veg,omitempty" jsonschema:"description=Restrict to vegetarian items"`
	PriceMin *float64 `json:"price_min,omitempty" jsonschema:"description=Minimum price in rupees"`
	PriceMax *float64 `json:"price_max,omitempty" jsonschema:"description=Maximum price in rupees"`
	Category string   `json:"category,omitempty" jsonschema:"description=Category tag such as chinese or dessert"`
	Limit    int      `json:"limit,omitempty" jsonschema:"description=Maximum items to return"`
}

// FunctionSchema is the JSON schema for the search_products function,
// handed to the LLM for function calling.
func FunctionSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	return r.Reflect(&Args{})
}

// Item is one search hit in the uniform response shape.
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	StoreName  string   `json:"store_name,omitempty"`
	Category   string   `json:"category,omitempty"`
	Veg        *bool    `json:"veg,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	ImageURL   string   `json:"image,omitempty"`
	Latitude   float64  `json:"lat,omitempty"`
	Longitude  float64  `json:"lng,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Score      float64  `json:"score,omitempty"`
}

// Response is the uniform result shape across the semantic and keyword
// branches.
type Response struct {
	Total      int    `json:"total"`
	Showing    int    `json:"showing"`
	Items      []Item `json:"items"`
	Message    string `json:"message"`
	SearchMode string `json:"search_mode"`
	Zone       *int   `json:"zone,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
)

// DefaultLimit is the page size when the caller gave none.
const DefaultLimit = 20

// knnK is the candidate pool fetched from the vector index before the
// page cut.
const knnK = 100
