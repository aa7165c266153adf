package geo

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	coordPrefixRe = regexp.MustCompile(`(?i)\b(?:lat(?:itude)?|lng|long(?:itude)?|location|coords?|coordinates)\s*[:=]?\s*`)
	coordPairRe   = regexp.MustCompile(`^(-?\d{1,3}(?:\.\d+)?)[\s,]+(-?\d{1,3}(?:\.\d+)?)$`)
)

// fromCoordinates accepts comma- or whitespace-separated "lat, lng"
// pairs, with optional lat/lng prefixes stripped first. Out-of-range
// values produce a validation clarification, not a silent failure.
func (e *Extractor) fromCoordinates(ctx context.Context, input string) Result {
	stripped := coordPrefixRe.ReplaceAllString(input, "")
	stripped = strings.TrimSpace(stripped)

	m := coordPairRe.FindStringSubmatch(stripped)
	if m == nil {
		return Result{}
	}

	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return Result{}
	}

	if err := ValidateCoordinates(lat, lng); err != nil {
		return Result{
			NeedsMoreInfo:       true,
			ClarificationPrompt: "Those coordinates look out of range. Latitude must be between -90 and 90, longitude between -180 and 180.",
			Err:                 err,
		}
	}

	text := e.resolveAddressText(ctx, lat, lng)
	return Result{
		Success: true,
		Address: &ExtractedAddress{
			Address:    text,
			Latitude:   &lat,
			Longitude:  &lng,
			Source:     SourceCoordinates,
			Confidence: 1.0,
			Metadata:   Metadata{RawInput: input},
		},
	}
}
