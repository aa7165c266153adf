// Package moderation implements the inbound content filter.
//
// The filter runs before any session I/O. It is a pure function over the
// message text: no network, no store access.
package moderation

import (
	"log/slog"
	"regexp"
	"strings"
)

// Reason is the closed set of block reasons.
type Reason string

const (
	ReasonProfanity Reason = "profanity"
	ReasonAdult     Reason = "adult_content"
	ReasonHarmful   Reason = "harmful_content"
	ReasonOffTopic  Reason = "off_topic"
	ReasonSpam      Reason = "spam"
)

// Verdict is the filter outcome. When Blocked is true, Response holds the
// canned bilingual refusal to return verbatim.
type Verdict struct {
	Blocked  bool
	Reason   Reason
	Response string
}

var cannedReplies = map[Reason]string{
	ReasonProfanity: "Please keep the conversation respectful. / कृपया बातचीत सम्मानजनक रखें।",
	ReasonAdult:     "I can't help with that. Let's keep things family-friendly. / मैं इसमें मदद नहीं कर सकता।",
	ReasonHarmful:   "I can't assist with anything harmful or illegal. / मैं किसी हानिकारक काम में मदद नहीं कर सकता।",
	ReasonOffTopic:  "I'm your local shopping and delivery assistant - I can help with orders, parcels and nearby stores. / मैं आपकी लोकल शॉपिंग और डिलीवरी में मदद कर सकता हूँ।",
	ReasonSpam:      "That message looks like spam. How can I actually help you today? / यह संदेश स्पैम जैसा लगता है।",
}

type lexiconRule struct {
	reason Reason
	re     *regexp.Regexp
}

// Word-boundary lexicon rules, checked in order. Hindi romanizations are
// included alongside English terms.
var lexicon = []lexiconRule{
	{ReasonProfanity, regexp.MustCompile(`(?i)\b(fuck\w*|bitch|bastard|asshole|chutiya|bhosdi\w*|madarchod|behenchod|bc|mc)\b`)},
	{ReasonAdult, regexp.MustCompile(`(?i)\b(porn\w*|nude\w*|naked|xxx|sex\s?chat|escort\s?service)\b`)},
	{ReasonHarmful, regexp.MustCompile(`(?i)\b(how\s+to\s+(make|build)\s+(a\s+)?(bomb|gun|weapon)|kill\s+(someone|myself)|suicide\s+method|buy\s+drugs|sell\s+drugs)\b`)},
	{ReasonOffTopic, regexp.MustCompile(`(?i)\b(write\s+(me\s+)?(an?\s+)?(essay|poem|code|program)|solve\s+(my|this)\s+(homework|assignment)|stock\s+tips?|crypto\s+invest\w*)\b`)},
}

// Competitor mentions are logged for analytics but never blocked.
var competitorRe = regexp.MustCompile(`(?i)\b(zomato|swiggy|blinkit|zepto|dunzo|instamart)\b`)

const (
	minFilterLen   = 2
	spamLen        = 200
	maxRepeatRunes = 12
)

// Filter classifies a message. Messages shorter than two characters pass
// unconditionally.
func Filter(message string) Verdict {
	trimmed := strings.TrimSpace(message)
	if len(trimmed) < minFilterLen {
		return Verdict{Blocked: false}
	}

	if competitorRe.MatchString(trimmed) {
		slog.Info("competitor mention", "match", competitorRe.FindString(trimmed))
	}

	for _, rule := range lexicon {
		if rule.re.MatchString(trimmed) {
			return Verdict{Blocked: true, Reason: rule.reason, Response: cannedReplies[rule.reason]}
		}
	}

	if isSpam(trimmed) {
		return Verdict{Blocked: true, Reason: ReasonSpam, Response: cannedReplies[ReasonSpam]}
	}

	return Verdict{Blocked: false}
}

func isSpam(s string) bool {
	// A very long message with no whitespace at all is not something a
	// human typed into a chat box.
	if len(s) > spamLen && !strings.ContainsAny(s, " \t\n") {
		return true
	}

	// Runs of the same rune (e.g. "aaaaaaaaaaaa") beyond a sane length.
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= maxRepeatRunes {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
