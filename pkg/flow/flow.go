// Package flow is a thin facade over the external flow engine. The core
// never interprets flow states; it starts, forwards, suspends, resumes,
// and cancels runs through the Engine contract and matches intents to
// flow definitions through the catalog.
package flow

import (
	"context"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// Definition describes one externally defined flow, loaded from the
// catalog directory.
type Definition struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Module       string   `yaml:"module"`
	Intents      []string `yaml:"intents"`
	Keywords     []string `yaml:"keywords"`
	RequiresAuth bool     `yaml:"requires_auth"`
}

// StepResult is what the engine returns for one processed message or a
// flow start.
type StepResult struct {
	Response  string         `json:"response"`
	Buttons   []agent.Button `json:"buttons,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Completed bool           `json:"completed"`
}

// ProcessInput carries the user turn plus routing hints into the engine.
type ProcessInput struct {
	Message    string  `json:"message"`
	Intent     string  `json:"intent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Engine is the external flow runtime. All methods take the participant
// key; the runtime owns the key-to-run mapping.
type Engine interface {
	ActiveFlow(ctx context.Context, key string) (*session.FlowRef, error)
	InWaitState(ctx context.Context, key string) (bool, error)
	Process(ctx context.Context, key string, in ProcessInput) (*StepResult, error)
	Start(ctx context.Context, key, flowID string, initCtx map[string]any) (*StepResult, error)
	Suspend(ctx context.Context, key string) error
	Cancel(ctx context.Context, key string) error
	Resume(ctx context.Context, key string) (bool, error)
}
