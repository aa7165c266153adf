// Package session holds per-participant conversation state and the store
// contract the orchestrator depends on.
//
// Writes are last-writer-wins on the whole session object. The
// orchestrator serializes concurrent messages for the same key with
// KeyLocks and does a fresh Get after any operation that mutates the
// session externally (notably successful authentication).
package session

import (
	"errors"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Step is the auth sub-state stored in CurrentStep.
type Step string

const (
	StepIdle          Step = "idle"
	StepAwaitingPhone Step = "awaiting_phone_number"
	StepAwaitingOTP   Step = "awaiting_otp"
	StepAwaitingName  Step = "awaiting_name"
	StepAwaitingEmail Step = "awaiting_email"
)

// IsAuthStep reports whether the step is one of the awaiting_* auth steps.
func (s Step) IsAuthStep() bool {
	switch s {
	case StepAwaitingPhone, StepAwaitingOTP, StepAwaitingName, StepAwaitingEmail:
		return true
	}
	return false
}

// FlowRef is an opaque handle to a flow run. Only the flow dispatcher
// interprets it; the session just carries it.
type FlowRef struct {
	FlowID    string `json:"flow_id" mapstructure:"flow_id"`
	FlowRunID string `json:"flow_run_id" mapstructure:"flow_run_id"`
	StateID   string `json:"current_state_id" mapstructure:"current_state_id"`
}

// Location is the user's last shared position.
type Location struct {
	Latitude   float64 `json:"lat" mapstructure:"lat"`
	Longitude  float64 `json:"lng" mapstructure:"lng"`
	LastUpdate int64   `json:"lastLocationUpdate" mapstructure:"lastLocationUpdate"`
}

// Turn is one entry of the bounded conversation history.
type Turn struct {
	Role      string `json:"role" mapstructure:"role"`
	Text      string `json:"text" mapstructure:"text"`
	Timestamp int64  `json:"ts" mapstructure:"ts"`
}

// Data is the session data bag. Field names follow the wire format the
// rest of the platform reads, so the bag round-trips through JSON and
// mapstructure unchanged.
type Data struct {
	Authenticated bool      `json:"authenticated" mapstructure:"authenticated"`
	UserID        *int64    `json:"userId" mapstructure:"userId"`
	AuthToken     string    `json:"authToken" mapstructure:"authToken"`
	Language      string    `json:"language" mapstructure:"language"`
	Module        string    `json:"module" mapstructure:"module"`
	Location      *Location `json:"location" mapstructure:"location"`
	ZoneID        *int      `json:"zoneId" mapstructure:"zoneId"`
	ZoneName      string    `json:"zoneName" mapstructure:"zoneName"`

	FlowContext *FlowRef `json:"flowContext" mapstructure:"flowContext"`

	PendingIntent   string         `json:"pendingIntent" mapstructure:"pendingIntent"`
	PendingEntities map[string]any `json:"pendingEntities" mapstructure:"pendingEntities"`
	PendingMessage  string         `json:"pendingMessage" mapstructure:"pendingMessage"`
	PendingAction   string         `json:"pendingAction" mapstructure:"pendingAction"`
	PendingModule   string         `json:"pendingModule" mapstructure:"pendingModule"`

	AwaitingResumeConfirmation bool     `json:"awaitingResumeConfirmation" mapstructure:"awaitingResumeConfirmation"`
	SuspendedFlow              *FlowRef `json:"suspendedFlow" mapstructure:"suspendedFlow"`

	EscalatedToHuman bool   `json:"escalatedToHuman" mapstructure:"escalatedToHuman"`
	FrappeIssueID    string `json:"frappeIssueId" mapstructure:"frappeIssueId"`
	HandoffDepth     int    `json:"handoffDepth" mapstructure:"handoffDepth"`

	DetectedLanguage  string `json:"detectedLanguage" mapstructure:"detectedLanguage"`
	CommunicationTone string `json:"_communicationTone" mapstructure:"_communicationTone"`
	EmojiUsage        string `json:"_emojiUsage" mapstructure:"_emojiUsage"`

	TempPhone string `json:"tempPhone" mapstructure:"tempPhone"`
	TempName  string `json:"tempName" mapstructure:"tempName"`

	UserName   string `json:"userName" mapstructure:"userName"`
	GamePoints int    `json:"gamePoints" mapstructure:"gamePoints"`

	History []Turn `json:"history" mapstructure:"history"`
}

// ClearPending drops all pending-intent fields. Called atomically with
// the resume that consumes them.
func (d *Data) ClearPending() {
	d.PendingIntent = ""
	d.PendingEntities = nil
	d.PendingMessage = ""
	d.PendingAction = ""
	d.PendingModule = ""
}

// Session is the per-participant state, keyed by phone or web-session id.
type Session struct {
	Key         string    `json:"key"`
	CurrentStep Step      `json:"currentStep"`
	Data        Data      `json:"data"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// New creates an empty idle session for a participant.
func New(key string) *Session {
	return &Session{
		Key:         key,
		CurrentStep: StepIdle,
		UpdatedAt:   time.Now(),
	}
}

// FromBag builds a session from a raw data bag, used when a caller
// supplies a test session. Unknown keys are ignored.
func FromBag(key string, bag map[string]any) (*Session, error) {
	sess := New(key)
	if bag == nil {
		return sess, nil
	}
	if step, ok := bag["currentStep"].(string); ok {
		sess.CurrentStep = Step(step)
		delete(bag, "currentStep")
	}
	if err := mapstructure.Decode(bag, &sess.Data); err != nil {
		return nil, err
	}
	return sess, nil
}

var ErrNotFound = errors.New("session not found")
