package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxRedirects = 5

// URLResolver follows short-link redirects and returns the final URL.
type URLResolver interface {
	Resolve(ctx context.Context, shortURL string) (string, error)
}

// redirectResolver resolves via plain HTTP, following at most
// maxRedirects hops without fetching bodies.
type redirectResolver struct {
	client *http.Client
}

func NewRedirectResolver() URLResolver {
	return &redirectResolver{
		client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

func (r *redirectResolver) Resolve(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return resp.Request.URL.String(), nil
}

var (
	shortLinkRe = regexp.MustCompile(`https?://(?:maps\.app\.goo\.gl|goo\.gl/maps)/\S+`)
	atCoordsRe  = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	queryRe     = regexp.MustCompile(`[?&]q=(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)`)
	searchRe    = regexp.MustCompile(`/search/(-?\d+\.\d+),\s*\+?(-?\d+\.\d+)`)
	placeRe     = regexp.MustCompile(`/place/([^/@?#]+)`)
	anyMapsRe   = regexp.MustCompile(`https?://(?:www\.)?(?:google\.[a-z.]+/maps|maps\.google\.[a-z.]+|maps\.app\.goo\.gl|goo\.gl/maps)\S*`)
)

// fromMapsURL extracts coordinates or a place name from a Google Maps
// URL. Short links are resolved and the final URL re-extracted; depth
// bounds the recursion.
func (e *Extractor) fromMapsURL(ctx context.Context, input string, depth int) Result {
	match := anyMapsRe.FindString(input)
	if match == "" {
		return Result{}
	}

	if shortLinkRe.MatchString(match) && depth < 2 {
		if e.resolver == nil {
			return Result{Err: fmt.Errorf("no URL resolver configured")}
		}
		final, err := e.resolver.Resolve(ctx, match)
		if err != nil {
			e.log.Warn("short link resolution failed", "url", match, "error", err)
			return Result{Err: err}
		}
		if final == match {
			return Result{Err: fmt.Errorf("short link did not redirect")}
		}
		res := e.fromMapsURL(ctx, final, depth+1)
		if res.Success {
			res.Address.Metadata.URL = match
		}
		return res
	}

	if lat, lng, ok := coordsFromURL(match); ok {
		if err := ValidateCoordinates(lat, lng); err != nil {
			return Result{Err: err}
		}
		text := e.resolveAddressText(ctx, lat, lng)
		return Result{
			Success: true,
			Address: &ExtractedAddress{
				Address:    text,
				Latitude:   &lat,
				Longitude:  &lng,
				Source:     SourceGoogleMaps,
				Confidence: 1.0,
				Metadata:   Metadata{URL: match, RawInput: input},
			},
		}
	}

	// /place/<name> fallback: geocode the decoded place name.
	if m := placeRe.FindStringSubmatch(match); m != nil && e.geocoder != nil {
		name := decodePlaceName(m[1])
		geo, err := e.geocoder.Geocode(ctx, name)
		if err != nil {
			e.log.Warn("place geocode failed", "place", name, "error", err)
			return Result{Err: err}
		}
		if err := ValidateCoordinates(geo.Latitude, geo.Longitude); err != nil {
			return Result{Err: err}
		}
		lat, lng := geo.Latitude, geo.Longitude
		address := geo.FormattedAddress
		if address == "" {
			address = name
		}
		return Result{
			Success: true,
			Address: &ExtractedAddress{
				Address:    address,
				Latitude:   &lat,
				Longitude:  &lng,
				Source:     SourceGoogleMaps,
				Confidence: 0.9,
				Metadata:   Metadata{URL: match, RawInput: input},
			},
		}
	}

	return Result{Err: fmt.Errorf("maps URL carried no usable location")}
}

func coordsFromURL(u string) (lat, lng float64, ok bool) {
	for _, re := range []*regexp.Regexp{atCoordsRe, queryRe, searchRe} {
		if m := re.FindStringSubmatch(u); m != nil {
			la, err1 := strconv.ParseFloat(m[1], 64)
			ln, err2 := strconv.ParseFloat(m[2], 64)
			if err1 == nil && err2 == nil {
				return la, ln, true
			}
		}
	}
	return 0, 0, false
}

func decodePlaceName(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return strings.ReplaceAll(decoded, "+", " ")
}
