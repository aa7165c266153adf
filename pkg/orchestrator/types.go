// Package orchestrator is the central message loop: it evaluates the
// priority gates over each inbound message and produces exactly one
// reply, coordinating the filter, language detector, intent router, flow
// dispatcher, agents, and handoff service.
package orchestrator

import (
	"context"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/flow"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/handoff"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/intent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// Request is one inbound message.
type Request struct {
	ParticipantID string         `json:"participantId"`
	Message       string         `json:"message"`
	Module        string         `json:"module,omitempty"`
	ImageURL      string         `json:"imageUrl,omitempty"`
	TestSession   map[string]any `json:"testSession,omitempty"`

	// UserPreferenceContext overrides the loader, used by callers that
	// already hold the profile.
	UserPreferenceContext map[string]any `json:"userPreferenceContext,omitempty"`
}

// Reply is the single outbound response.
type Reply struct {
	Response      string         `json:"response"`
	Buttons       []agent.Button `json:"buttons,omitempty"`
	ExecutionTime int64          `json:"executionTime"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (r *Reply) meta(key string, value any) *Reply {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// IntentRouter is the routing capability the loop needs from C5.
type IntentRouter interface {
	Route(ctx context.Context, in intent.RouteInput) *intent.RoutingResult
}

// FlowDispatcher is the subset of the flow facade the loop drives.
type FlowDispatcher interface {
	GetActiveFlow(ctx context.Context, key string) (*session.FlowRef, error)
	IsInWaitState(ctx context.Context, key string) bool
	ProcessActiveFlow(ctx context.Context, key, message, intentName string, confidence float64) (*flow.StepResult, error)
	StartFlow(ctx context.Context, key, flowID string, initCtx map[string]any) (*flow.StepResult, error)
	FindFlowByIntent(intentName, module, message string) (*flow.Definition, error)
	SuspendFlow(ctx context.Context, key string) error
	CancelFlow(ctx context.Context, key string) error
	ResumeSuspendedFlow(ctx context.Context, key string) (bool, error)
}

// AuthBackend is the subset of the PHP backend the auth machine calls.
type AuthBackend interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*backend.VerifyResult, error)
	GetProfile(ctx context.Context, token string) (*backend.Profile, error)
	UpdateUserInfo(ctx context.Context, token, name, email string) error
}

// HandoffExecutor resolves agent handoff requests.
type HandoffExecutor interface {
	Execute(ctx context.Context, sess *session.Session, req *agent.HandoffRequest, ac *agent.Context) (*handoff.Outcome, error)
}

// PreferenceLoader fetches user-preference context for personalization.
type PreferenceLoader interface {
	Load(ctx context.Context, participantID string, userID *int64) map[string]any
}

// TrainingSample is what the post-processing step records.
type TrainingSample struct {
	ParticipantID string  `json:"participant_id"`
	Message       string  `json:"message"`
	Intent        string  `json:"intent"`
	Confidence    float64 `json:"confidence"`
	Language      string  `json:"language"`
	Success       bool    `json:"success"`
}

// TrainingRecorder receives fire-and-forget training and sentiment
// samples.
type TrainingRecorder interface {
	Record(ctx context.Context, sample TrainingSample) error
}
