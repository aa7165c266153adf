// Package intent produces a RoutingResult for each inbound message by
// fusing deterministic pattern matches with a remote NLU classifier.
//
// Precedence, first match wins: gamification shortcuts, direct-action
// payloads, cart patterns, remote NLU, compound-intent keyword fallback.
package intent

import "fmt"

// RoutingResult is the router output consumed by the orchestrator.
// Confidence is 1.0 for deterministic shortcuts.
type RoutingResult struct {
	AgentID    string
	AgentType  string
	Intent     string
	Entities   map[string]any
	Confidence float64
	ModuleID   string
	ZoneID     *int
	Raw        map[string]any
}

// The closed intent vocabulary. The router never emits an intent outside
// this set; NLU results are normalized through it.
var knownIntents = map[string]bool{
	"greeting": true, "chitchat": true, "farewell": true, "feedback": true,
	"help": true, "cancel": true, "reset": true, "start_over": true,
	"main_menu": true, "login": true,
	"play_game": true, "claim_reward": true, "view_rewards": true,
	"check_points": true, "leaderboard": true, "game_intro": true,
	"order_food": true, "browse_menu": true, "search_product": true,
	"add_to_cart": true, "remove_from_cart": true, "view_cart": true,
	"update_quantity": true, "checkout": true,
	"track_order": true, "cancel_order": true, "reorder": true,
	"repeat_order": true,
	"book_parcel": true, "parcel_booking": true, "create_parcel_order": true,
	"schedule_delivery": true, "refund_request": true, "submit_complaint": true,
	"manage_address": true, "view_profile": true, "view_orders": true,
	"needs_clarification": true, "unknown": true,
}

// KnownIntent reports membership in the closed vocabulary.
func KnownIntent(intent string) bool {
	return knownIntents[intent]
}

// NormalizeIntent collapses aliases and maps anything outside the
// vocabulary to unknown.
func NormalizeIntent(intent string) string {
	switch intent {
	case "book_parcel":
		return "parcel_booking"
	case "repeat_order":
		return "reorder"
	}
	if knownIntents[intent] {
		return intent
	}
	return "unknown"
}

// EntityString extracts a string entity value, tolerating the string,
// []string and []any shapes NLU services emit.
func EntityString(entities map[string]any, key string) string {
	v, ok := entities[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	case []any:
		if len(t) > 0 {
			return fmt.Sprintf("%v", t[0])
		}
	default:
		return fmt.Sprintf("%v", t)
	}
	return ""
}
