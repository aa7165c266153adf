package orchestrator

import (
	"regexp"
	"strings"
)

var restartRe = regexp.MustCompile(`(?i)^\s*(restart|start\s+again|start\s+over|reset|naya\s+shuru)\s*[.!]*\s*$`)

var greetingRe = regexp.MustCompile(`(?i)^\s*(hi+|hello+|hey+|namaste|namaskar|hii+)\s*[.!👋]*\s*$`)

var cancelRe = regexp.MustCompile(`(?i)\b(cancel|stop|quit|exit|band\s+karo|rehne\s+do)\b`)

// yesLexicon accepts resume confirmations in English and romanized Hindi
// and Marathi.
var yesLexicon = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "sure": true,
	"ok": true, "okay": true, "resume": true, "continue": true,
	"ha": true, "haan": true, "ho": true, "hoy": true,
}

var noLexicon = map[string]bool{
	"no": true, "n": true, "nope": true, "nah": true, "cancel": true,
	"nahi": true, "nako": true,
}

// strongIntents may interrupt an active flow.
var strongIntents = map[string]bool{
	"order_food":     true,
	"search_product": true,
	"parcel_booking": true,
	"track_order":    true,
	"cancel_order":   true,
	"refund_request": true,
	"login":          true,
}

// shortAllowedIntents may interrupt even from a short message.
var shortAllowedIntents = map[string]bool{
	"help": true, "cancel": true, "stop": true, "menu": true, "login": true,
}

// escapeIntents cancel the active flow unconditionally.
var escapeIntents = map[string]bool{
	"login": true, "cancel": true, "reset": true, "help": true,
	"start_over": true, "main_menu": true,
}

// protectedIntents never fall into the gibberish or low-confidence
// clarification gates.
var protectedIntents = map[string]bool{
	"greeting": true, "chitchat": true, "order_food": true,
	"search_product": true, "parcel_booking": true, "track_order": true,
	"farewell": true, "feedback": true,
}

var gameIntents = map[string]bool{
	"play_game": true, "claim_reward": true, "view_rewards": true,
	"check_points": true, "leaderboard": true, "game_intro": true,
}

// gibberishVocabRe marks messages that carry at least one recognizable
// token; short messages without any hit are treated as gibberish.
var gibberishVocabRe = regexp.MustCompile(`(?i)\b(hi|hello|hey|yes|no|ok|order|food|track|help|cancel|login|parcel|cart|menu|search|ha|nahi|khana|bhej|status|refund|game)\b`)

func isGibberish(message string) bool {
	trimmed := strings.TrimSpace(message)
	return len(trimmed) < 10 && !gibberishVocabRe.MatchString(trimmed)
}

func isYes(message string) bool {
	return yesLexicon[normalizeWord(message)]
}

func isNo(message string) bool {
	return noLexicon[normalizeWord(message)]
}

func normalizeWord(message string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(message)), ".!?")
}

// locationShareRe matches transport-level location payloads:
// "location:19.99,73.78" or the reserved "__LOCATION__:lat,lng" form.
var locationShareRe = regexp.MustCompile(`^(?:__LOCATION__|location)\s*[:=]\s*(-?\d{1,3}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)\s*$`)

func isLocationShare(message string) bool {
	return locationShareRe.MatchString(strings.TrimSpace(message))
}

var phoneLikeRe = regexp.MustCompile(`^(?:whatsapp-)?\+?\d{10,14}$`)

// looksLikePhone reports whether a participant id is a real phone
// number, which lets unauthenticated users get preference context.
func looksLikePhone(participantID string) bool {
	return phoneLikeRe.MatchString(participantID)
}
