package intent

import (
	"regexp"
	"strings"
)

// Gamification shortcuts: exact or substring matches that always mean the
// game surface, at confidence 1.0.
var gameLexicon = []string{
	"play game", "play a game", "game khelo", "spin the wheel", "spin wheel",
	"rewards", "my rewards", "my points", "check points", "leaderboard",
}

func matchGamification(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, phrase := range gameLexicon {
		if lower == phrase || strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Direct-action payloads come from tapped buttons, not typed text.
var directActionRe = regexp.MustCompile(`^(order_item|add_to_cart):(\S+)$`)

func matchDirectAction(message string) (itemID string, ok bool) {
	m := directActionRe.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return "", false
	}
	return m[2], true
}

// Cart regex families, confidence 0.95.
type cartPattern struct {
	intent string
	re     *regexp.Regexp
}

var cartPatterns = []cartPattern{
	{"remove_from_cart", regexp.MustCompile(`(?i)\b(remove|delete|hata\s?do|nikal\s?do)\b.*\b(cart|basket|item)\b`)},
	{"remove_from_cart", regexp.MustCompile(`(?i)\b(clear|empty|khali)\b.*\bcart\b`)},
	{"view_cart", regexp.MustCompile(`(?i)\b(view|show|see|open|dikhao?)\b.*\bcart\b`)},
	{"view_cart", regexp.MustCompile(`(?i)^\s*(my\s+)?cart\s*$`)},
	{"update_quantity", regexp.MustCompile(`(?i)\b(make\s+it|change\s+(qty|quantity)\s+to|update\s+(qty|quantity))\b.*\d+`)},
	{"update_quantity", regexp.MustCompile(`(?i)\b\d+\s+(kar\s?do|chahiye)\b.*\b(cart|order|item)?\b.*$`)},
}

func matchCartPattern(message string) (intent string, ok bool) {
	for _, p := range cartPatterns {
		if p.re.MatchString(message) {
			return p.intent, true
		}
	}
	return "", false
}

// Multi-intent separators trigger the compound fallback even when the
// NLU was confident about one half.
var compoundSeparatorRe = regexp.MustCompile(`(?i)\s(and\s+also|and\s+then|then|aur|phir)\s|;`)

// compoundRule describes one action intent in the fixed fallback order.
// A message matches when at least minHits keyword families hit.
type compoundRule struct {
	intent   string
	minHits  int
	families []*regexp.Regexp
}

var compoundRules = []compoundRule{
	{"order_food", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(order|mangwa|get|want|chahiye|bhook|hungry)\b`),
		regexp.MustCompile(`(?i)\b(food|khana|pizza|burger|biryani|thali|momos?|lunch|dinner|breakfast|meal)\b`),
	}},
	{"search_product", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(search|find|show|browse|dhundo|dikhao?)\b`),
		regexp.MustCompile(`(?i)\b(product|item|grocery|groceries|store|dukan|shop|medicine|things?)\b`),
	}},
	{"parcel_booking", 1, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(parcel|courier|send\s+(a\s+)?package|pick\s?up\s+and\s+drop|bhej(na|o)?\s+(hai|do)?.*\b(parcel|package|saman))\b`),
	}},
	{"track_order", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(track|status|where\s+is|kahan\s+hai|kab\s+aayega)\b`),
		regexp.MustCompile(`(?i)\b(order|delivery|parcel|food)\b`),
	}},
	{"cancel_order", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(cancel|cancle|radd)\b`),
		regexp.MustCompile(`(?i)\b(order|booking|delivery)\b`),
	}},
	{"reorder", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(again|repeat|same\s+as\s+last|wahi|dobara|fir\s+se)\b`),
		regexp.MustCompile(`(?i)\b(order|wala|mangwa)\b`),
	}},
	{"refund_request", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(refund|money\s+back|paise\s+wapas)\b`),
		regexp.MustCompile(`(?i)\b(order|payment|paid|amount|paise)\b`),
	}},
	{"schedule_delivery", 1, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(schedule\s+(a\s+)?delivery|deliver\s+(it\s+)?(tomorrow|later|at\s+\d))\b`),
	}},
	{"login", 2, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(login|log\s?in|sign\s?in)\b`),
		regexp.MustCompile(`(?i)\b(account|number|phone|otp|karna|karo|chahta)\b`),
	}},
}

// matchCompound tries the fixed ordered rule list. Parcel and delivery
// vocabulary is explicit enough that a single family hit suffices.
func matchCompound(message string) (intent string, ok bool) {
	for _, rule := range compoundRules {
		hits := 0
		for _, family := range rule.families {
			if family.MatchString(message) {
				hits++
			}
		}
		if hits >= rule.minHits {
			return rule.intent, true
		}
	}
	return "", false
}
