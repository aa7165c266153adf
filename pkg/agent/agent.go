// Package agent defines the specialized-agent contract: a single-call
// Execute over an assembled context, plus the registry the orchestrator
// resolves agents from.
package agent

import (
	"context"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// Button is a quick-reply rendered by the transport layer. Values
// __LOCATION__ and __LOGIN__ are reserved.
type Button struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Context is everything an agent gets for one invocation.
type Context struct {
	SessionKey string
	Message    string
	Intent     string
	Module     string
	Entities   map[string]any
	Confidence float64

	// Session is a read snapshot; agents mutate through SessionPatch.
	Session *session.Session

	// Preferences is the user-preference context injected for
	// authenticated or phone-identified users.
	Preferences map[string]any

	// Language is the detected language code for reply pinning.
	Language string

	// History is the bounded recent conversation.
	History []session.Turn
}

// HandoffPriority orders escalation urgency.
type HandoffPriority string

const (
	PriorityLow      HandoffPriority = "low"
	PriorityMedium   HandoffPriority = "medium"
	PriorityHigh     HandoffPriority = "high"
	PriorityCritical HandoffPriority = "critical"
)

// HandoffTargetHuman requests escalation to a support human instead of
// another agent.
const HandoffTargetHuman = "human"

// HandoffRequest is an agent-initiated delegation to another agent or to
// a human, returned inside Result.
type HandoffRequest struct {
	SourceAgent string
	TargetAgent string
	Reason      string

	UserMessage         string
	ExtractedData       map[string]any
	ConversationSummary string
	Priority            HandoffPriority

	SendTransitionMessage bool
	TransitionMessage     string
	RequireAcknowledgment bool
	AllowBounceback       bool
}

// Result is an agent's reply.
type Result struct {
	Response string
	Buttons  []Button
	Metadata map[string]any

	// SessionPatch, when set, is applied to the session data bag after
	// the agent returns.
	SessionPatch func(*session.Data)

	// Handoff, when set, delegates the turn to another agent or a human.
	Handoff *HandoffRequest
}

// Agent is the single-call contract for specialized agents.
type Agent interface {
	ID() string
	Execute(ctx context.Context, ac *Context) (*Result, error)
}
