package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/intent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/language"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/moderation"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/observability"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// Orchestrator evaluates the priority gates over each inbound message.
type Orchestrator struct {
	sessions session.Store
	locks    *session.KeyLocks
	router   IntentRouter
	flows    FlowDispatcher
	agents   *agent.Registry
	handoffs HandoffExecutor
	auth     AuthBackend
	prefs    PreferenceLoader
	training TrainingRecorder
	queue    *BackgroundQueue
	log      *slog.Logger
}

type Option func(*Orchestrator)

func WithPreferenceLoader(p PreferenceLoader) Option {
	return func(o *Orchestrator) { o.prefs = p }
}

func WithTrainingRecorder(t TrainingRecorder) Option {
	return func(o *Orchestrator) { o.training = t }
}

func WithBackgroundQueue(q *BackgroundQueue) Option {
	return func(o *Orchestrator) { o.queue = q }
}

func New(sessions session.Store, router IntentRouter, flows FlowDispatcher, agents *agent.Registry, handoffs HandoffExecutor, auth AuthBackend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions: sessions,
		locks:    session.NewKeyLocks(5 * time.Minute),
		router:   router,
		flows:    flows,
		agents:   agents,
		handoffs: handoffs,
		auth:     auth,
		log:      slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.queue == nil {
		o.queue = NewBackgroundQueue(2, 128)
	}
	return o
}

const apologyResponse = "Sorry, something went wrong on our side. Please try again."

// ProcessMessage handles one inbound message end to end. It never
// panics outward; unexpected failures return an apology.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req *Request) (reply *Reply, err error) {
	ctx, span := observability.Tracer("orchestrator").Start(ctx, "ProcessMessage",
		trace.WithAttributes(attribute.String("participant", req.ParticipantID)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("panic in message loop", "participant", req.ParticipantID, "panic", r)
			reply = &Reply{Response: apologyResponse}
			err = nil
		}
		if reply != nil {
			reply.ExecutionTime = time.Since(start).Milliseconds()
		}
	}()

	// Gate 1: content filter, before any session read.
	if verdict := moderation.Filter(req.Message); verdict.Blocked {
		r := &Reply{Response: verdict.Response}
		r.meta("content_blocked", true)
		r.meta("reason", verdict.Reason)
		return r, nil
	}

	// Messages for the same participant never interleave.
	release := o.locks.Acquire(req.ParticipantID)
	defer release()

	// Gate 2: session load and language annotation.
	sess, err := o.loadSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	analysis := language.Analyze(req.Message)
	sess.Data.DetectedLanguage = analysis.Language

	reply = o.run(ctx, req, sess, analysis)

	// Gate 15: history, persistence, training.
	now := time.Now().Unix()
	sess.Data.AppendTurn("user", req.Message, now)
	sess.Data.AppendTurn("assistant", reply.Response, now)
	sess.Data.History = session.TrimHistory(sess.Data.History, session.DefaultHistoryTokenBudget)
	if err := o.sessions.Save(ctx, sess); err != nil {
		o.log.Error("session save failed", "participant", req.ParticipantID, "error", err)
	}
	o.recordTraining(req, reply, analysis)

	if reply.Metadata == nil || reply.Metadata["intent"] == nil {
		if in, ok := replyIntent(reply); ok {
			reply.meta("intent", in)
		}
	}
	reply.meta("sessionId", sess.Key)
	return reply, nil
}

// run walks gates 3 through 14.
func (o *Orchestrator) run(ctx context.Context, req *Request, sess *session.Session, analysis language.Analysis) *Reply {
	key := sess.Key
	message := req.Message

	// Gate 3: human takeover.
	if sess.Data.EscalatedToHuman {
		response := "You're connected to our support team; a human agent will assist you shortly."
		if sess.Data.FrappeIssueID != "" {
			response += " (Ticket " + sess.Data.FrappeIssueID + ")"
		}
		r := &Reply{Response: response}
		r.meta("ai_paused", true)
		r.meta("issueId", sess.Data.FrappeIssueID)
		return r
	}

	// Gate 4: restart and stuck-auth greeting.
	if restartRe.MatchString(message) {
		o.cancelActiveFlow(ctx, sess)
		sess.CurrentStep = session.StepIdle
		sess.Data.ClearPending()
		sess.Data.AwaitingResumeConfirmation = false
		sess.Data.SuspendedFlow = nil
		return &Reply{Response: "Cancelled. How can I help you?"}
	}
	if greetingRe.MatchString(message) &&
		(sess.CurrentStep == session.StepAwaitingOTP || sess.CurrentStep == session.StepAwaitingPhone) {
		sess.CurrentStep = session.StepIdle
		sess.Data.TempPhone = ""
		// Stuck-auth greeting falls through to normal routing.
	}

	// Gate 5: resume confirmation.
	if sess.Data.AwaitingResumeConfirmation {
		sess.Data.AwaitingResumeConfirmation = false
		if isYes(message) {
			sess.Data.SuspendedFlow = nil
			resumed, err := o.flows.ResumeSuspendedFlow(ctx, key)
			if err != nil {
				o.log.Warn("flow resume failed", "key", key, "error", err)
			}
			if resumed {
				return &Reply{Response: "Great, picking up where we left off. 👍"}
			}
			return &Reply{Response: "Hmm, I couldn't find that task anymore. What would you like to do?"}
		}
		sess.Data.SuspendedFlow = nil
		if isNo(message) {
			return &Reply{Response: "No problem, I've dropped it. What else can I do for you?"}
		}
		// Anything else falls through as a fresh message.
	}

	// Gate 6: auth steps.
	var postAuthPrefix string
	if sess.CurrentStep.IsAuthStep() {
		if isLocationShare(message) &&
			(sess.CurrentStep == session.StepAwaitingName || sess.CurrentStep == session.StepAwaitingEmail) {
			sess.CurrentStep = session.StepIdle
			sess.Data.TempName = ""
		} else {
			outcome, err := o.handleAuthStep(ctx, sess, message)
			if err != nil {
				o.log.Error("auth step failed", "key", key, "error", err)
				return &Reply{Response: apologyResponse}
			}
			if outcome != nil {
				if !outcome.completed || sess.Data.PendingIntent == "" {
					r := &Reply{Response: outcome.response, Buttons: outcome.buttons}
					if outcome.authData != nil {
						r.meta("auth_data", outcome.authData)
					}
					return r
				}
				// Auth finished with a pending intent: resume below with
				// the login confirmation prepended.
				postAuthPrefix = outcome.prefix
			}
		}
	}

	// Shared locations update the session before routing so flows and
	// agents see fresh coordinates.
	if lat, lng, ok := parseLocationShare(message); ok {
		sess.Data.Location = &session.Location{Latitude: lat, Longitude: lng, LastUpdate: time.Now().Unix()}
	}

	// Gate 7: intent routing.
	module := req.Module
	if module == "" {
		module = sess.Data.Module
	}
	activeFlowID := ""
	if sess.Data.FlowContext != nil {
		activeFlowID = sess.Data.FlowContext.FlowID
	}
	res := o.router.Route(ctx, intent.RouteInput{
		Message:        message,
		Module:         module,
		ActiveFlowID:   activeFlowID,
		LastBotMessage: lastBotMessage(sess),
	})
	prefs := o.loadPreferences(ctx, req, sess)

	// Gate 8: pending-intent resume.
	if sess.Data.Authenticated && sess.Data.PendingIntent != "" {
		res = &intent.RoutingResult{
			Intent:     sess.Data.PendingIntent,
			Entities:   sess.Data.PendingEntities,
			Confidence: 1.0,
			ModuleID:   sess.Data.PendingModule,
		}
		route := intent.RouteForIntent(res.Intent)
		res.AgentID = route.AgentID
		res.AgentType = route.AgentType
		if sess.Data.PendingMessage != "" {
			message = sess.Data.PendingMessage
		}
		if res.ModuleID != "" {
			module = res.ModuleID
		}
		sess.Data.ClearPending()
	}

	// Gate 9: active-flow continuation.
	if active, err := o.flows.GetActiveFlow(ctx, key); err != nil {
		o.log.Warn("active flow lookup failed", "key", key, "error", err)
	} else if active != nil {
		sess.Data.FlowContext = active
		if o.shouldInterrupt(ctx, key, sess, res, message) {
			if err := o.flows.SuspendFlow(ctx, key); err != nil {
				o.log.Warn("flow suspend failed", "key", key, "error", err)
			} else {
				sess.Data.SuspendedFlow = active
				sess.Data.FlowContext = nil
			}
			// The new intent continues through the gates below.
		} else if !escapeIntents[res.Intent] {
			return o.continueFlow(ctx, key, sess, res, message)
		}
	}

	// Gate 10: escape intents cancel whatever is active.
	if escapeIntents[res.Intent] || (cancelRe.MatchString(message) && len(message) < 20) {
		o.cancelActiveFlow(ctx, sess)
		if res.Intent == "cancel" || res.Intent == "reset" {
			return &Reply{Response: "Cancelled. How can I help you?"}
		}
	}

	// Gate 11: clarification.
	if r := o.clarify(res, message); r != nil {
		return r
	}

	// Gate 12: flow start.
	if r := o.maybeStartFlow(ctx, sess, res, message, module, prefs, postAuthPrefix); r != nil {
		return r
	}

	// Gate 13: game intents go to the game agent.
	agentID := res.AgentID
	if gameIntents[res.Intent] {
		agentID = "game"
	}

	// Gate 14: agent fallback.
	return o.executeAgent(ctx, sess, res, agentID, message, prefs, postAuthPrefix, analysis)
}

func (o *Orchestrator) loadSession(ctx context.Context, req *Request) (*session.Session, error) {
	sess, err := o.sessions.Get(ctx, req.ParticipantID)
	if err == nil {
		return sess, nil
	}
	if err != session.ErrNotFound {
		return nil, err
	}
	if req.TestSession != nil {
		return session.FromBag(req.ParticipantID, req.TestSession)
	}
	return session.New(req.ParticipantID), nil
}

func (o *Orchestrator) loadPreferences(ctx context.Context, req *Request, sess *session.Session) map[string]any {
	if req.UserPreferenceContext != nil {
		return req.UserPreferenceContext
	}
	if o.prefs == nil {
		return nil
	}
	if sess.Data.Authenticated || looksLikePhone(req.ParticipantID) {
		return o.prefs.Load(ctx, req.ParticipantID, sess.Data.UserID)
	}
	return nil
}

// shouldInterrupt applies the interruption rules from gate 9a.
func (o *Orchestrator) shouldInterrupt(ctx context.Context, key string, sess *session.Session, res *intent.RoutingResult, message string) bool {
	if !strongIntents[res.Intent] {
		return false
	}
	if res.Confidence <= 0.8 {
		return false
	}
	// Same-module intents are flow input, not a topic switch.
	if res.ModuleID != "" && sess.Data.Module != "" && strings.EqualFold(res.ModuleID, sess.Data.Module) {
		return false
	}
	if o.flows.IsInWaitState(ctx, key) {
		return false
	}
	if len(message) < 20 && !shortAllowedIntents[res.Intent] {
		return false
	}
	return true
}

func (o *Orchestrator) continueFlow(ctx context.Context, key string, sess *session.Session, res *intent.RoutingResult, message string) *Reply {
	step, err := o.flows.ProcessActiveFlow(ctx, key, message, res.Intent, res.Confidence)
	if err != nil {
		o.log.Error("flow processing failed", "key", key, "error", err)
		return &Reply{Response: apologyResponse}
	}
	r := &Reply{Response: step.Response, Buttons: step.Buttons, Metadata: step.Metadata}
	if step.Completed {
		sess.Data.FlowContext = nil
		r.meta("flow_completed", true)
		if sess.Data.SuspendedFlow != nil {
			sess.Data.AwaitingResumeConfirmation = true
			r.Response += "\n\nWould you like to resume what you were doing earlier? (yes/no)"
		}
	}
	return r
}

func (o *Orchestrator) cancelActiveFlow(ctx context.Context, sess *session.Session) {
	if err := o.flows.CancelFlow(ctx, sess.Key); err != nil {
		o.log.Warn("flow cancel failed", "key", sess.Key, "error", err)
	}
	sess.Data.FlowContext = nil
}

// clarify implements gate 11.
func (o *Orchestrator) clarify(res *intent.RoutingResult, message string) *Reply {
	if needsClarification(res) {
		r := &Reply{
			Response: "I want to make sure I got that right. Did you mean one of these?",
			Buttons:  clarificationButtons(res),
		}
		return r.meta("intent", res.Intent)
	}
	if res.Intent == "unknown" && res.Confidence < 0.6 {
		return helpMenu()
	}
	if protectedIntents[res.Intent] {
		return nil
	}
	if res.Confidence < 0.55 || isGibberish(message) {
		return helpMenu()
	}
	return nil
}

func helpMenu() *Reply {
	return &Reply{
		Response: "I didn't quite catch that. Here's what I can help with:",
		Buttons: []agent.Button{
			{Label: "🍕 Order food", Value: "order food"},
			{Label: "🛍️ Search products", Value: "search products"},
			{Label: "📦 Send a parcel", Value: "send a parcel"},
			{Label: "🔎 Track my order", Value: "track my order"},
		},
	}
}

func needsClarification(res *intent.RoutingResult) bool {
	if res.Raw == nil {
		return false
	}
	v, ok := res.Raw["needs_clarification"].(bool)
	return ok && v
}

func clarificationButtons(res *intent.RoutingResult) []agent.Button {
	options, _ := res.Raw["options"].([]any)
	buttons := make([]agent.Button, 0, len(options))
	for _, opt := range options {
		if s, ok := opt.(string); ok {
			buttons = append(buttons, agent.Button{Label: s, Value: s})
		}
	}
	if len(buttons) == 0 {
		return helpMenu().Buttons
	}
	return buttons
}

// maybeStartFlow implements gate 12, including the auth-required detour.
func (o *Orchestrator) maybeStartFlow(ctx context.Context, sess *session.Session, res *intent.RoutingResult, message, module string, prefs map[string]any, prefix string) *Reply {
	def, err := o.flows.FindFlowByIntent(res.Intent, module, message)
	if err != nil {
		o.log.Warn("flow lookup failed", "intent", res.Intent, "error", err)
		return nil
	}
	if def == nil {
		return nil
	}

	if def.RequiresAuth && !sess.Data.Authenticated {
		sess.Data.PendingIntent = res.Intent
		sess.Data.PendingEntities = res.Entities
		sess.Data.PendingMessage = message
		sess.Data.PendingModule = module
		sess.Data.PendingAction = "start_flow"
		sess.CurrentStep = session.StepAwaitingPhone
		return &Reply{
			Response: "You'll need to log in for that. Please share your 10-digit phone number, or type 'cancel' to exit.",
		}
	}

	initCtx := map[string]any{
		"message":  message,
		"intent":   res.Intent,
		"entities": res.Entities,
	}
	if prefs != nil {
		initCtx["preferences"] = prefs
	}
	step, err := o.flows.StartFlow(ctx, sess.Key, def.ID, initCtx)
	if err != nil {
		o.log.Error("flow start failed", "flow", def.ID, "error", err)
		return &Reply{Response: apologyResponse}
	}

	if !step.Completed {
		if active, err := o.flows.GetActiveFlow(ctx, sess.Key); err == nil && active != nil {
			sess.Data.FlowContext = active
		}
		if module != "" {
			sess.Data.Module = module
		}
	}

	r := &Reply{Response: withPrefix(prefix, step.Response), Buttons: step.Buttons, Metadata: step.Metadata}
	return r.meta("intent", res.Intent)
}

// executeAgent implements gate 14.
func (o *Orchestrator) executeAgent(ctx context.Context, sess *session.Session, res *intent.RoutingResult, agentID, message string, prefs map[string]any, prefix string, analysis language.Analysis) *Reply {
	a, err := o.agents.Lookup(agentID)
	if err != nil {
		o.log.Warn("agent missing, using faq", "agent", agentID)
		if a, err = o.agents.Lookup("faq"); err != nil {
			return helpMenu()
		}
	}

	ac := &agent.Context{
		SessionKey:  sess.Key,
		Message:     message,
		Intent:      res.Intent,
		Module:      res.ModuleID,
		Entities:    res.Entities,
		Confidence:  res.Confidence,
		Session:     sess,
		Preferences: prefs,
		Language:    analysis.Language,
		History:     sess.Data.History,
	}
	result, err := a.Execute(ctx, ac)
	if err != nil {
		o.log.Error("agent execution failed", "agent", agentID, "error", err)
		return &Reply{Response: apologyResponse}
	}

	var handoffTarget string
	if result.Handoff != nil {
		handoffTarget = result.Handoff.TargetAgent
		outcome, err := o.handoffs.Execute(ctx, sess, result.Handoff, ac)
		if err != nil {
			o.log.Error("handoff failed", "agent", agentID, "error", err)
			return &Reply{Response: "I couldn't transfer you right now. Could you rephrase, or type 'talk to support'?"}
		}
		result = outcome.Result
		if outcome.Escalated {
			r := &Reply{Response: withPrefix(prefix, result.Response), Buttons: result.Buttons, Metadata: result.Metadata}
			r.meta("escalated", true)
			r.meta("issueId", outcome.TicketID)
			r.meta("handoff_source", agentID)
			r.meta("handoff_target", handoffTarget)
			return r
		}
	}

	if result.SessionPatch != nil {
		result.SessionPatch(&sess.Data)
	}

	r := &Reply{Response: withPrefix(prefix, result.Response), Buttons: result.Buttons, Metadata: result.Metadata}
	r.meta("intent", res.Intent)
	if handoffTarget != "" {
		r.meta("handoff_source", agentID)
		r.meta("handoff_target", handoffTarget)
	}
	if gameIntents[res.Intent] {
		r.meta("gameIntent", res.Intent)
	}
	return r
}

func (o *Orchestrator) recordTraining(req *Request, reply *Reply, analysis language.Analysis) {
	if o.training == nil {
		return
	}
	in, _ := replyIntent(reply)
	sample := TrainingSample{
		ParticipantID: req.ParticipantID,
		Message:       req.Message,
		Intent:        in,
		Language:      analysis.Language,
		Success:       reply.Response != apologyResponse,
	}
	o.queue.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := o.training.Record(ctx, sample); err != nil {
			o.log.Warn("training record failed", "error", err)
		}
	})
}

func lastBotMessage(sess *session.Session) string {
	for i := len(sess.Data.History) - 1; i >= 0; i-- {
		if sess.Data.History[i].Role == "assistant" {
			return sess.Data.History[i].Text
		}
	}
	return ""
}

func replyIntent(reply *Reply) (string, bool) {
	if reply.Metadata == nil {
		return "", false
	}
	s, ok := reply.Metadata["intent"].(string)
	return s, ok
}

func withPrefix(prefix, response string) string {
	if prefix == "" {
		return response
	}
	return prefix + "\n\n" + response
}

// parseLocationShare extracts coordinates from a transport location
// payload, used by flows that receive shared locations mid-auth.
func parseLocationShare(message string) (lat, lng float64, ok bool) {
	m := locationShareRe.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
