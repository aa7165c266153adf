package intent

// AgentRoute binds an intent to the agent that handles it.
type AgentRoute struct {
	AgentID   string
	AgentType string
}

// Closed intent-to-agent configuration; anything unlisted falls back to
// the FAQ agent.
var agentRoutes = map[string]AgentRoute{
	"greeting": {"smalltalk", "conversational"},
	"chitchat": {"smalltalk", "conversational"},
	"farewell": {"smalltalk", "conversational"},
	"feedback": {"feedback", "support"},

	"help":      {"faq", "knowledge"},
	"main_menu": {"faq", "knowledge"},

	"order_food":       {"order", "commerce"},
	"browse_menu":      {"order", "commerce"},
	"search_product":   {"search", "commerce"},
	"add_to_cart":      {"order", "commerce"},
	"remove_from_cart": {"order", "commerce"},
	"view_cart":        {"order", "commerce"},
	"update_quantity":  {"order", "commerce"},
	"checkout":         {"order", "commerce"},
	"reorder":          {"order", "commerce"},

	"track_order":  {"tracking", "tracking"},
	"cancel_order": {"tracking", "tracking"},
	"view_orders":  {"tracking", "tracking"},

	"parcel_booking":      {"parcel", "logistics"},
	"create_parcel_order": {"parcel", "logistics"},
	"schedule_delivery":   {"parcel", "logistics"},

	"refund_request":   {"support", "support"},
	"submit_complaint": {"support", "support"},

	"manage_address": {"address", "profile"},
	"view_profile":   {"profile", "profile"},
	"login":          {"profile", "profile"},

	"play_game":    {"game", "engagement"},
	"claim_reward": {"game", "engagement"},
	"view_rewards": {"game", "engagement"},
	"check_points": {"game", "engagement"},
	"leaderboard":  {"game", "engagement"},
	"game_intro":   {"game", "engagement"},
}

// RouteForIntent resolves the agent for an intent, with the FAQ fallback.
func RouteForIntent(intent string) AgentRoute {
	if route, ok := agentRoutes[intent]; ok {
		return route
	}
	return AgentRoute{AgentID: "faq", AgentType: "knowledge"}
}
