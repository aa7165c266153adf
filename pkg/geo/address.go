// Package geo implements the address extraction pipeline: an ordered set
// of strategies over a raw string producing a typed ExtractedAddress or a
// clarification need, plus reverse geocoding and service-area validation.
//
// Strategy order is fixed and first success wins:
//
//	0. saved address match (when the caller supplies saved addresses)
//	1. Google Maps URL (short links resolved, then re-extracted)
//	2. raw coordinates
//	3. text geocoding (gated on address keywords / known localities)
//	4. LLM extraction with re-geocoding
//	5. clarification prompt
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/llms"
)

// Source identifies which strategy produced an address.
type Source string

const (
	SourceSavedAddress  Source = "saved_address"
	SourceGoogleMaps    Source = "google_maps_link"
	SourceCoordinates   Source = "coordinates"
	SourceTextGeocoded  Source = "text_geocoded"
	SourceLLMExtracted  Source = "llm_extracted"
	SourceLocationShare Source = "location_share"
	SourceSmartDefault  Source = "smart_default"
)

// Metadata carries strategy-specific detail alongside an address.
type Metadata struct {
	URL          string `json:"url,omitempty"`
	AddressID    int64  `json:"addressId,omitempty"`
	AddressType  string `json:"addressType,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	Landmark     string `json:"landmark,omitempty"`
	Road         string `json:"road,omitempty"`
	House        string `json:"house,omitempty"`
	Floor        string `json:"floor,omitempty"`
	RawInput     string `json:"rawInput"`
	City         string `json:"city,omitempty"`
}

// ExtractedAddress is the typed pipeline output. When Latitude/Longitude
// are set they are guaranteed to be within valid ranges.
type ExtractedAddress struct {
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Source     Source   `json:"source"`
	Confidence float64  `json:"confidence"`
	Metadata   Metadata `json:"metadata"`
}

// Result is the outcome of one strategy or of the whole pipeline.
type Result struct {
	Success             bool
	Address             *ExtractedAddress
	NeedsMoreInfo       bool
	ClarificationPrompt string
	Err                 error
}

// ValidateCoordinates enforces -90 <= lat <= 90 and -180 <= lng <= 180.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range", lng)
	}
	return nil
}

// Geocoder resolves text to coordinates and back. backend.Client
// implements it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*backend.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*backend.GeocodeResult, error)
}

// Extractor runs the pipeline. All fields except Geocoder are optional;
// missing collaborators simply skip their strategy.
type Extractor struct {
	geocoder Geocoder
	llm      llms.Provider
	resolver URLResolver
	log      *slog.Logger
}

// ExtractOptions supplies per-call context.
type ExtractOptions struct {
	// SavedAddresses enables the saved-address strategy.
	SavedAddresses []backend.SavedAddress
}

func NewExtractor(geocoder Geocoder, llm llms.Provider, resolver URLResolver) *Extractor {
	if resolver == nil {
		resolver = NewRedirectResolver()
	}
	return &Extractor{
		geocoder: geocoder,
		llm:      llm,
		resolver: resolver,
		log:      slog.Default().With("component", "geo"),
	}
}

// Extract runs the strategies in fixed order; the first success wins.
func (e *Extractor) Extract(ctx context.Context, input string, opts ExtractOptions) Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return clarification()
	}

	if len(opts.SavedAddresses) > 0 {
		if res := e.fromSavedAddresses(input, opts.SavedAddresses); res.Success {
			return res
		}
	}

	if res := e.fromMapsURL(ctx, input, 0); res.Success || res.NeedsMoreInfo {
		return res
	}

	if res := e.fromCoordinates(ctx, input); res.Success || res.NeedsMoreInfo {
		return res
	}

	if res := e.fromText(ctx, input); res.Success {
		return res
	}

	if e.llm != nil {
		if res := e.fromLLM(ctx, input); res.Success || res.NeedsMoreInfo {
			return res
		}
	}

	return clarification()
}

// fromSavedAddresses matches the input against the user's address book
// by type label ("home", "office") or by substring of the stored text.
func (e *Extractor) fromSavedAddresses(input string, saved []backend.SavedAddress) Result {
	needle := strings.ToLower(input)

	for _, addr := range saved {
		label := strings.ToLower(addr.AddressType)
		if label != "" && (needle == label || strings.Contains(needle, "my "+label) || strings.Contains(needle, label+" address")) {
			return e.savedHit(addr, input)
		}
	}
	for _, addr := range saved {
		stored := strings.ToLower(addr.Address)
		if len(needle) >= 8 && stored != "" && strings.Contains(stored, needle) {
			return e.savedHit(addr, input)
		}
	}
	return Result{}
}

func (e *Extractor) savedHit(addr backend.SavedAddress, input string) Result {
	if err := ValidateCoordinates(addr.Latitude, addr.Longitude); err != nil {
		return Result{Err: err}
	}
	lat, lng := addr.Latitude, addr.Longitude
	return Result{
		Success: true,
		Address: &ExtractedAddress{
			Address:    addr.Address,
			Latitude:   &lat,
			Longitude:  &lng,
			Source:     SourceSavedAddress,
			Confidence: 1.0,
			Metadata: Metadata{
				AddressID:    addr.ID,
				AddressType:  addr.AddressType,
				ContactName:  addr.ContactName,
				ContactPhone: addr.ContactPhone,
				Road:         addr.Road,
				House:        addr.House,
				Floor:        addr.Floor,
				RawInput:     input,
			},
		},
	}
}

// resolveAddressText fills in a formatted address for coordinates via
// reverse geocoding, degrading to "Location at lat, lng".
func (e *Extractor) resolveAddressText(ctx context.Context, lat, lng float64) string {
	if e.geocoder != nil {
		if res, err := e.geocoder.ReverseGeocode(ctx, lat, lng); err == nil && res.FormattedAddress != "" {
			return res.FormattedAddress
		} else if err != nil {
			e.log.Warn("reverse geocode failed", "error", err)
		}
	}
	return fmt.Sprintf("Location at %.6f, %.6f", lat, lng)
}

func clarification() Result {
	prompt := "I couldn't figure out that address. You can:\n" +
		"[BUTTON:📍 Share Location:__LOCATION__]\n" +
		"- Type your full address with area and landmark\n" +
		"- Paste a Google Maps link\n" +
		"- Send coordinates like 19.9975, 73.7898"
	return Result{NeedsMoreInfo: true, ClarificationPrompt: prompt}
}
