package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// MaxDepth bounds agent-to-agent delegation chains.
const MaxDepth = 3

// ErrDepthExceeded is returned when a handoff chain exceeds MaxDepth.
var ErrDepthExceeded = errors.New("maximum handoff depth exceeded")

// PairStats accumulates per source_to_target outcomes.
type PairStats struct {
	Count       int64         `json:"count"`
	Successes   int64         `json:"successes"`
	TotalTime   time.Duration `json:"-"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// SuccessRate is successes over count, 0 when untried.
func (s PairStats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Count)
}

// Service routes handoff requests to target agents or to a human via a
// support ticket. It enforces the depth bound and keeps pair statistics.
type Service struct {
	agents  *agent.Registry
	tickets TicketClient
	log     *slog.Logger

	mu    sync.Mutex
	stats map[string]*PairStats
}

func NewService(agents *agent.Registry, tickets TicketClient) *Service {
	return &Service{
		agents:  agents,
		tickets: tickets,
		log:     slog.Default().With("component", "handoff"),
		stats:   make(map[string]*PairStats),
	}
}

// Outcome is what a resolved handoff produced.
type Outcome struct {
	Result *agent.Result
	// Escalated is set when the target was a human; TicketID identifies
	// the support issue.
	Escalated bool
	TicketID  string
}

// Execute resolves one handoff request. The session is mutated in place
// (depth counter, escalation flags); the caller persists it.
func (s *Service) Execute(ctx context.Context, sess *session.Session, req *agent.HandoffRequest, ac *agent.Context) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("nil handoff request")
	}

	if req.TargetAgent == agent.HandoffTargetHuman {
		return s.escalate(ctx, sess, req)
	}

	if sess.Data.HandoffDepth+1 > MaxDepth {
		return nil, fmt.Errorf("%w: %s -> %s at depth %d",
			ErrDepthExceeded, req.SourceAgent, req.TargetAgent, sess.Data.HandoffDepth)
	}

	target, err := s.agents.Lookup(req.TargetAgent)
	if err != nil {
		return nil, fmt.Errorf("handoff target: %w", err)
	}

	// Depth goes up before the target runs so a delegation loop inside
	// the target still hits the bound.
	sess.Data.HandoffDepth++

	message := req.UserMessage
	if message == "" {
		message = ac.Message
	}
	targetCtx := *ac
	targetCtx.Message = message
	if req.ExtractedData != nil {
		merged := make(map[string]any, len(ac.Entities)+len(req.ExtractedData))
		for k, v := range ac.Entities {
			merged[k] = v
		}
		for k, v := range req.ExtractedData {
			merged[k] = v
		}
		targetCtx.Entities = merged
	}

	start := time.Now()
	result, err := target.Execute(ctx, &targetCtx)
	s.record(req.SourceAgent, req.TargetAgent, err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("handoff to %s: %w", req.TargetAgent, err)
	}

	// Nested handoffs recurse under the same depth counter.
	if result.Handoff != nil {
		nested := result.Handoff
		result.Handoff = nil
		nestedOut, err := s.Execute(ctx, sess, nested, &targetCtx)
		if err != nil {
			return nil, err
		}
		if req.SendTransitionMessage && req.TransitionMessage != "" {
			nestedOut.Result.Response = req.TransitionMessage + "\n\n" + nestedOut.Result.Response
		}
		return nestedOut, nil
	}

	sess.Data.HandoffDepth = 0
	if req.SendTransitionMessage && req.TransitionMessage != "" {
		result.Response = req.TransitionMessage + "\n\n" + result.Response
	}
	return &Outcome{Result: result}, nil
}

// escalate files (or reuses) a support ticket and marks the session as
// human-handled. Idempotent: an issue id already in the session, or an
// open issue for this conversation, short-circuits creation.
func (s *Service) escalate(ctx context.Context, sess *session.Session, req *agent.HandoffRequest) (*Outcome, error) {
	ticketID := sess.Data.FrappeIssueID

	if ticketID == "" && s.tickets != nil {
		if existing, err := s.tickets.FindByConversation(ctx, sess.Key); err != nil {
			s.log.Warn("ticket lookup failed", "key", sess.Key, "error", err)
		} else if existing != nil {
			ticketID = existing.ID
		}
	}

	if ticketID == "" && s.tickets != nil {
		subject := req.Reason
		if subject == "" {
			subject = "Chat escalation"
		}
		created, err := s.tickets.Create(ctx, CreateTicketInput{
			ConversationID: sess.Key,
			Subject:        subject,
			Description:    buildTicketDescription(sess, req),
			Priority:       req.Priority,
		})
		if err != nil {
			// Escalation still happens; the ticket is retried on the
			// next human-target handoff.
			s.log.Error("ticket create failed", "key", sess.Key, "error", err)
		} else {
			ticketID = created.ID
		}
	}

	sess.Data.EscalatedToHuman = true
	sess.Data.FrappeIssueID = ticketID
	sess.Data.HandoffDepth = 0
	s.record(req.SourceAgent, agent.HandoffTargetHuman, ticketID != "", 0)

	response := "I've connected you with our support team. A human agent will assist you shortly."
	if ticketID != "" {
		response += fmt.Sprintf(" Your ticket id is %s.", ticketID)
	}
	return &Outcome{
		Result:    &agent.Result{Response: response},
		Escalated: true,
		TicketID:  ticketID,
	}, nil
}

func buildTicketDescription(sess *session.Session, req *agent.HandoffRequest) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Conversation: %s\n", sess.Key)
	if req.SourceAgent != "" {
		fmt.Fprintf(b, "Escalated by: %s\n", req.SourceAgent)
	}
	if req.Reason != "" {
		fmt.Fprintf(b, "Reason: %s\n", req.Reason)
	}
	if req.UserMessage != "" {
		fmt.Fprintf(b, "Last user message: %s\n", req.UserMessage)
	}
	if req.ConversationSummary != "" {
		fmt.Fprintf(b, "\nSummary:\n%s\n", req.ConversationSummary)
	}
	return b.String()
}

func (s *Service) record(source, target string, success bool, d time.Duration) {
	key := source + "_to_" + target
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[key]
	if !ok {
		st = &PairStats{}
		s.stats[key] = st
	}
	st.Count++
	if success {
		st.Successes++
	}
	st.TotalTime += d
	st.AvgDuration = st.TotalTime / time.Duration(st.Count)
}

// Stats returns a snapshot of per-pair statistics.
func (s *Service) Stats() map[string]PairStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]PairStats, len(s.stats))
	for k, v := range s.stats {
		out[k] = *v
	}
	return out
}
