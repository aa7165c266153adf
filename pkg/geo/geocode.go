package geo

import (
	"context"
	"regexp"
	"strings"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
)

// Address keywords that justify a geocoding call for free text. Without
// one of these (or a known locality) the text strategy fails immediately
// rather than burning a geocoder call on "hello".
var addressKeywordRe = regexp.MustCompile(`(?i)\b(road|rd|street|st|nagar|colony|society|chowk|lane|galli|area|sector|flat|house|building|apartment|floor|plot|near|opposite|opp|behind|beside|pin\s?code|pincode)\b`)

// Known localities resolve to canned fixtures without a network call.
var localityFixtures = map[string]backend.GeocodeResult{
	"nashik":         {Latitude: 19.9975, Longitude: 73.7898, FormattedAddress: "Nashik, Maharashtra"},
	"nashik road":    {Latitude: 19.9550, Longitude: 73.8360, FormattedAddress: "Nashik Road, Nashik, Maharashtra"},
	"college road":   {Latitude: 20.0059, Longitude: 73.7629, FormattedAddress: "College Road, Nashik, Maharashtra"},
	"gangapur road":  {Latitude: 20.0118, Longitude: 73.7480, FormattedAddress: "Gangapur Road, Nashik, Maharashtra"},
	"panchavati":     {Latitude: 20.0142, Longitude: 73.7918, FormattedAddress: "Panchavati, Nashik, Maharashtra"},
	"cidco":          {Latitude: 19.9615, Longitude: 73.7338, FormattedAddress: "CIDCO, Nashik, Maharashtra"},
	"pune":           {Latitude: 18.5204, Longitude: 73.8567, FormattedAddress: "Pune, Maharashtra"},
	"koregaon park":  {Latitude: 18.5362, Longitude: 73.8939, FormattedAddress: "Koregaon Park, Pune, Maharashtra"},
	"mumbai":         {Latitude: 19.0760, Longitude: 72.8777, FormattedAddress: "Mumbai, Maharashtra"},
}

func knownLocality(input string) (backend.GeocodeResult, bool) {
	lower := strings.ToLower(input)
	var best backend.GeocodeResult
	bestLen := 0
	// Longest locality match wins so "college road" beats "nashik" in
	// "college road nashik".
	for name, fix := range localityFixtures {
		if strings.Contains(lower, name) && len(name) > bestLen {
			best, bestLen = fix, len(name)
		}
	}
	return best, bestLen > 0
}

// fromText geocodes free text. It only runs when the input contains an
// address keyword or a known locality token.
func (e *Extractor) fromText(ctx context.Context, input string) Result {
	fixture, hasLocality := knownLocality(input)
	if !hasLocality && !addressKeywordRe.MatchString(input) {
		return Result{}
	}

	var geo *backend.GeocodeResult
	if hasLocality && !addressKeywordRe.MatchString(input) {
		// Pure locality mention: the fixture is authoritative.
		geo = &fixture
	} else if e.geocoder != nil {
		res, err := e.geocoder.Geocode(ctx, input)
		if err != nil {
			e.log.Warn("text geocode failed", "error", err)
			if hasLocality {
				geo = &fixture
			} else {
				return Result{Err: err}
			}
		} else {
			geo = res
		}
	} else if hasLocality {
		geo = &fixture
	} else {
		return Result{}
	}

	if err := ValidateCoordinates(geo.Latitude, geo.Longitude); err != nil {
		return Result{Err: err}
	}

	lat, lng := geo.Latitude, geo.Longitude
	address := geo.FormattedAddress
	if address == "" {
		address = input
	}
	return Result{
		Success: true,
		Address: &ExtractedAddress{
			Address:    address,
			Latitude:   &lat,
			Longitude:  &lng,
			Source:     SourceTextGeocoded,
			Confidence: 0.8,
			Metadata:   Metadata{RawInput: input},
		},
	}
}
