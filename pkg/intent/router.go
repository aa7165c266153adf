package intent

import (
	"context"
	"log/slog"
)

// RouteInput is the context the router considers besides the message.
type RouteInput struct {
	Message        string
	Module         string
	ActiveFlowID   string
	LastBotMessage string
}

// Router fuses deterministic patterns with the remote NLU.
type Router struct {
	classifier Classifier
	log        *slog.Logger
}

func NewRouter(classifier Classifier) *Router {
	return &Router{
		classifier: classifier,
		log:        slog.Default().With("component", "intent"),
	}
}

const lowConfidence = 0.6

// Route produces a RoutingResult. It never returns an error: NLU
// failures degrade to the compound fallback and then to unknown.
func (r *Router) Route(ctx context.Context, in RouteInput) *RoutingResult {
	// 1. Gamification shortcuts.
	if matchGamification(in.Message) {
		return r.finish("play_game", nil, 1.0, in, nil)
	}

	// 2. Direct-action payloads from tapped buttons.
	if itemID, ok := matchDirectAction(in.Message); ok {
		return r.finish("add_to_cart", map[string]any{"item_id": itemID}, 1.0, in, nil)
	}

	// 3. Cart regex families.
	if cartIntent, ok := matchCartPattern(in.Message); ok {
		return r.finish(cartIntent, nil, 0.95, in, nil)
	}

	// 4. Remote NLU.
	var cls *Classification
	if r.classifier != nil {
		var err error
		cls, err = r.classifier.Classify(ctx, &ClassifyRequest{
			Message:        in.Message,
			Module:         in.Module,
			ActiveFlowID:   in.ActiveFlowID,
			LastBotMessage: in.LastBotMessage,
		})
		if err != nil {
			r.log.Warn("nlu classification failed", "error", err)
			cls = nil
		}
	}
	if cls == nil {
		cls = &Classification{Intent: "unknown", Confidence: 0}
	}
	cls.Intent = NormalizeIntent(cls.Intent)

	// 5. Compound-intent fallback when the NLU punted or the message
	// carries a multi-intent separator.
	if cls.Intent == "unknown" || cls.Confidence < lowConfidence || compoundSeparatorRe.MatchString(in.Message) {
		if fallback, ok := matchCompound(in.Message); ok {
			confidence := 0.7
			if cls.Intent == fallback {
				confidence = cls.Confidence
			}
			return r.finish(fallback, cls.Entities, confidence, in, cls.Raw)
		}
	}

	return r.finish(cls.Intent, cls.Entities, cls.Confidence, in, cls.Raw)
}

func (r *Router) finish(intent string, entities map[string]any, confidence float64, in RouteInput, raw map[string]any) *RoutingResult {
	route := RouteForIntent(intent)
	return &RoutingResult{
		AgentID:    route.AgentID,
		AgentType:  route.AgentType,
		Intent:     intent,
		Entities:   entities,
		Confidence: confidence,
		ModuleID:   in.Module,
		Raw:        raw,
	}
}
