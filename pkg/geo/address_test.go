package geo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/llms"
)

type fakeGeocoder struct {
	forward map[string]backend.GeocodeResult
	reverse string
	fail    bool
	calls   int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*backend.GeocodeResult, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("geocoder down")
	}
	if res, ok := f.forward[address]; ok {
		return &res, nil
	}
	return &backend.GeocodeResult{Latitude: 19.9, Longitude: 73.7, FormattedAddress: "Resolved: " + address}, nil
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*backend.GeocodeResult, error) {
	if f.fail || f.reverse == "" {
		return nil, fmt.Errorf("reverse geocoder down")
	}
	return &backend.GeocodeResult{Latitude: lat, Longitude: lng, FormattedAddress: f.reverse}, nil
}

type fakeResolver struct {
	finalURL string
	err      error
}

func (f *fakeResolver) Resolve(ctx context.Context, shortURL string) (string, error) {
	return f.finalURL, f.err
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Generate(ctx context.Context, req *llms.Request) (*llms.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.Response{Text: f.reply}, nil
}

func (f *fakeLLM) Model() string { return "fake" }

func TestExtract_ShortLinkResolvedToCoordinates(t *testing.T) {
	// S1: short link resolves to a final URL carrying @lat,lng.
	resolver := &fakeResolver{finalURL: "https://www.google.com/maps/place/Spot/@19.9975,73.7898,17z"}
	e := NewExtractor(&fakeGeocoder{reverse: "College Road, Nashik"}, nil, resolver)

	res := e.Extract(context.Background(), "https://maps.app.goo.gl/abc123", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceGoogleMaps, res.Address.Source)
	assert.Equal(t, 1.0, res.Address.Confidence)
	assert.Equal(t, 19.9975, *res.Address.Latitude)
	assert.Equal(t, 73.7898, *res.Address.Longitude)
	assert.Equal(t, "https://maps.app.goo.gl/abc123", res.Address.Metadata.URL)
	assert.Equal(t, "College Road, Nashik", res.Address.Address)
}

func TestExtract_QueryCoordinateURL(t *testing.T) {
	e := NewExtractor(&fakeGeocoder{}, nil, &fakeResolver{})
	res := e.Extract(context.Background(), "https://maps.google.com/maps?q=18.5204,73.8567", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceGoogleMaps, res.Address.Source)
	assert.Equal(t, 18.5204, *res.Address.Latitude)
}

func TestExtract_PlaceNameFallbackGeocodes(t *testing.T) {
	gc := &fakeGeocoder{forward: map[string]backend.GeocodeResult{
		"Phoenix Mall Pune": {Latitude: 18.56, Longitude: 73.91, FormattedAddress: "Phoenix Mall, Pune"},
	}}
	e := NewExtractor(gc, nil, &fakeResolver{})

	res := e.Extract(context.Background(), "https://www.google.com/maps/place/Phoenix+Mall+Pune", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceGoogleMaps, res.Address.Source)
	assert.Equal(t, "Phoenix Mall, Pune", res.Address.Address)
}

func TestExtract_RawCoordinates(t *testing.T) {
	e := NewExtractor(&fakeGeocoder{reverse: "Somewhere"}, nil, &fakeResolver{})

	for _, input := range []string{"19.9975, 73.7898", "19.9975 73.7898", "lat: 19.9975, lng: 73.7898"} {
		res := e.Extract(context.Background(), input, ExtractOptions{})
		require.True(t, res.Success, "input %q", input)
		assert.Equal(t, SourceCoordinates, res.Address.Source)
		assert.Equal(t, 1.0, res.Address.Confidence)
	}
}

func TestExtract_OutOfRangeCoordinatesRejected(t *testing.T) {
	e := NewExtractor(&fakeGeocoder{}, nil, &fakeResolver{})
	res := e.Extract(context.Background(), "95.0, 73.78", ExtractOptions{})
	assert.False(t, res.Success)
	assert.True(t, res.NeedsMoreInfo)
}

func TestExtract_ReverseGeocodeFallbackString(t *testing.T) {
	e := NewExtractor(&fakeGeocoder{fail: true}, nil, &fakeResolver{})
	res := e.Extract(context.Background(), "19.5, 73.5", ExtractOptions{})
	require.True(t, res.Success)
	assert.Contains(t, res.Address.Address, "Location at 19.5")
}

func TestExtract_OrderLaw_URLBeatsText(t *testing.T) {
	// A message containing both a Maps URL and geocodable free text must
	// resolve via the URL strategy.
	e := NewExtractor(&fakeGeocoder{reverse: "Panchavati"}, nil, &fakeResolver{})
	input := "deliver near college road https://maps.google.com/maps?q=20.0142,73.7918"
	res := e.Extract(context.Background(), input, ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceGoogleMaps, res.Address.Source)
}

func TestExtract_OrderLaw_CoordinatesBeatText(t *testing.T) {
	e := NewExtractor(&fakeGeocoder{reverse: "X"}, nil, &fakeResolver{})
	res := e.Extract(context.Background(), "19.9975, 73.7898", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceCoordinates, res.Address.Source)
}

func TestExtract_TextRequiresKeywordOrLocality(t *testing.T) {
	gc := &fakeGeocoder{}
	e := NewExtractor(gc, nil, &fakeResolver{})

	res := e.Extract(context.Background(), "hello how are you", ExtractOptions{})
	assert.False(t, res.Success)
	assert.True(t, res.NeedsMoreInfo, "should end at clarification")
	assert.Zero(t, gc.calls, "geocoder must not be called without address signal")
}

func TestExtract_KnownLocalityFixture(t *testing.T) {
	gc := &fakeGeocoder{}
	e := NewExtractor(gc, nil, &fakeResolver{})

	res := e.Extract(context.Background(), "koregaon park", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceTextGeocoded, res.Address.Source)
	assert.Equal(t, 18.5362, *res.Address.Latitude)
	assert.Zero(t, gc.calls, "fixture must not hit the geocoder")
}

func TestExtract_TextWithKeywordGeocodes(t *testing.T) {
	gc := &fakeGeocoder{forward: map[string]backend.GeocodeResult{}}
	e := NewExtractor(gc, nil, &fakeResolver{})

	res := e.Extract(context.Background(), "flat 12, sunshine society, near big bazaar", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceTextGeocoded, res.Address.Source)
	assert.Equal(t, 1, gc.calls)
}

func TestExtract_LLMExtraction(t *testing.T) {
	llmReply := `{"address": "Sharanpur Road Nashik", "landmark": "near ABB circle", "confidence": 0.8, "needs_clarification": false, "clarification_question": ""}`
	gc := &fakeGeocoder{forward: map[string]backend.GeocodeResult{
		"Sharanpur Road Nashik": {Latitude: 19.99, Longitude: 73.77, FormattedAddress: "Sharanpur Road, Nashik"},
	}}
	e := NewExtractor(gc, &fakeLLM{reply: llmReply}, &fakeResolver{})

	// No URL, no coordinates, no address keyword, no known locality: falls
	// through to the LLM.
	res := e.Extract(context.Background(), "bhej do wahi jagah jahan kal bheja tha Sharanpur", ExtractOptions{})
	require.True(t, res.Success)
	assert.Equal(t, SourceLLMExtracted, res.Address.Source)
	assert.Equal(t, 0.8, res.Address.Confidence)
	assert.Equal(t, "near ABB circle", res.Address.Metadata.Landmark)
}

func TestExtract_LLMLowConfidenceFallsToClarification(t *testing.T) {
	llmReply := `{"address": "", "landmark": "", "confidence": 0.1, "needs_clarification": true, "clarification_question": "Which area should I deliver to?"}`
	e := NewExtractor(&fakeGeocoder{}, &fakeLLM{reply: llmReply}, &fakeResolver{})

	res := e.Extract(context.Background(), "okay fine whatever", ExtractOptions{})
	assert.False(t, res.Success)
	assert.True(t, res.NeedsMoreInfo)
	assert.Equal(t, "Which area should I deliver to?", res.ClarificationPrompt)
}

func TestExtract_SavedAddressWins(t *testing.T) {
	saved := []backend.SavedAddress{{
		ID: 7, AddressType: "office", Address: "WTC Tower, Bajaj Nagar", Latitude: 19.96, Longitude: 73.75,
	}}
	e := NewExtractor(&fakeGeocoder{}, nil, &fakeResolver{})

	res := e.Extract(context.Background(), "send it to my office", ExtractOptions{SavedAddresses: saved})
	require.True(t, res.Success)
	assert.Equal(t, SourceSavedAddress, res.Address.Source)
	assert.Equal(t, int64(7), res.Address.Metadata.AddressID)
	assert.Equal(t, 1.0, res.Address.Confidence)
}

func TestExtract_AllFailedClarification(t *testing.T) {
	e := NewExtractor(&fakeGeocoder{}, nil, &fakeResolver{})
	res := e.Extract(context.Background(), "xyz", ExtractOptions{})
	assert.True(t, res.NeedsMoreInfo)
	assert.Contains(t, res.ClarificationPrompt, "__LOCATION__")
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(0, 0))
	assert.NoError(t, ValidateCoordinates(-90, 180))
	assert.Error(t, ValidateCoordinates(90.1, 0))
	assert.Error(t, ValidateCoordinates(0, -180.5))
}

func TestValidateServiceableArea(t *testing.T) {
	svc := &fakeZones{zone: &backend.Zone{ID: 4, Name: "Nashik West"}}
	v := ValidateServiceableArea(context.Background(), svc, 19.99, 73.78)
	assert.True(t, v.Valid)
	assert.Equal(t, 4, v.ZoneID)
	assert.Equal(t, "Nashik West", v.ZoneName)

	v = ValidateServiceableArea(context.Background(), svc, 95, 73.78)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Err)

	v = ValidateServiceableArea(context.Background(), &fakeZones{err: fmt.Errorf("no zone")}, 19.99, 73.78)
	assert.False(t, v.Valid)
	assert.Equal(t, "no zone", v.Err)
}

type fakeZones struct {
	zone *backend.Zone
	err  error
}

func (f *fakeZones) GetZone(ctx context.Context, lat, lng float64) (*backend.Zone, error) {
	return f.zone, f.err
}
