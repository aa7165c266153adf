package intent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	result *Classification
	err    error
	calls  int
}

func (s *stubClassifier) Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestRoute_GamificationShortcut(t *testing.T) {
	stub := &stubClassifier{result: &Classification{Intent: "chitchat", Confidence: 0.9}}
	r := NewRouter(stub)

	res := r.Route(context.Background(), RouteInput{Message: "I want to play game"})
	assert.Equal(t, "play_game", res.Intent)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "game", res.AgentID)
	assert.Zero(t, stub.calls, "shortcut must not call NLU")
}

func TestRoute_DirectActionPayload(t *testing.T) {
	r := NewRouter(&stubClassifier{})

	res := r.Route(context.Background(), RouteInput{Message: "add_to_cart:item-42"})
	assert.Equal(t, "add_to_cart", res.Intent)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "item-42", EntityString(res.Entities, "item_id"))
}

func TestRoute_CartPatterns(t *testing.T) {
	r := NewRouter(&stubClassifier{})

	tests := []struct {
		msg    string
		intent string
	}{
		{"remove the pizza from cart", "remove_from_cart"},
		{"clear my cart", "remove_from_cart"},
		{"show my cart", "view_cart"},
		{"make it 3 please", "update_quantity"},
	}
	for _, tt := range tests {
		res := r.Route(context.Background(), RouteInput{Message: tt.msg})
		assert.Equal(t, tt.intent, res.Intent, "message %q", tt.msg)
		assert.Equal(t, 0.95, res.Confidence)
	}
}

func TestRoute_NLUResultPassesThrough(t *testing.T) {
	stub := &stubClassifier{result: &Classification{
		Intent: "track_order", Confidence: 0.92,
		Entities: map[string]any{"order_id": "123"},
	}}
	r := NewRouter(stub)

	res := r.Route(context.Background(), RouteInput{Message: "where is my order 123", Module: "food"})
	assert.Equal(t, "track_order", res.Intent)
	assert.Equal(t, 0.92, res.Confidence)
	assert.Equal(t, "tracking", res.AgentID)
	assert.Equal(t, "food", res.ModuleID)
}

func TestRoute_CompoundFallbackOnLowConfidence(t *testing.T) {
	stub := &stubClassifier{result: &Classification{Intent: "unknown", Confidence: 0.2}}
	r := NewRouter(stub)

	res := r.Route(context.Background(), RouteInput{Message: "bhai mujhe khana order karna hai"})
	assert.Equal(t, "order_food", res.Intent)
	assert.Equal(t, "order", res.AgentID)
}

func TestRoute_ParcelSingleHitSuffices(t *testing.T) {
	stub := &stubClassifier{result: &Classification{Intent: "unknown", Confidence: 0.1}}
	r := NewRouter(stub)

	res := r.Route(context.Background(), RouteInput{Message: "courier bhejna hai"})
	assert.Equal(t, "parcel_booking", res.Intent)
}

func TestRoute_NLUErrorDegrades(t *testing.T) {
	stub := &stubClassifier{err: fmt.Errorf("nlu down")}
	r := NewRouter(stub)

	res := r.Route(context.Background(), RouteInput{Message: "track my order please"})
	assert.Equal(t, "track_order", res.Intent, "fallback patterns still route")

	res = r.Route(context.Background(), RouteInput{Message: "hmm"})
	assert.Equal(t, "unknown", res.Intent)
	assert.Equal(t, "faq", res.AgentID, "unknown falls back to FAQ agent")
}

func TestRoute_AliasNormalization(t *testing.T) {
	stub := &stubClassifier{result: &Classification{Intent: "book_parcel", Confidence: 0.9}}
	r := NewRouter(stub)

	res := r.Route(context.Background(), RouteInput{Message: "book a parcel pickup"})
	assert.Equal(t, "parcel_booking", res.Intent)
	assert.Equal(t, "parcel", res.AgentID)
}

func TestEntityString_ToleratesShapes(t *testing.T) {
	require.Equal(t, "a", EntityString(map[string]any{"k": "a"}, "k"))
	require.Equal(t, "a", EntityString(map[string]any{"k": []string{"a", "b"}}, "k"))
	require.Equal(t, "a", EntityString(map[string]any{"k": []any{"a"}}, "k"))
	require.Equal(t, "7", EntityString(map[string]any{"k": 7}, "k"))
	require.Equal(t, "", EntityString(map[string]any{"k": []any{}}, "k"))
	require.Equal(t, "", EntityString(nil, "k"))
}

func TestNormalizeIntent(t *testing.T) {
	assert.Equal(t, "parcel_booking", NormalizeIntent("book_parcel"))
	assert.Equal(t, "reorder", NormalizeIntent("repeat_order"))
	assert.Equal(t, "greeting", NormalizeIntent("greeting"))
	assert.Equal(t, "unknown", NormalizeIntent("dance_party"))
}
