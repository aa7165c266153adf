package handoff

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

type scriptedAgent struct {
	id      string
	result  *agent.Result
	err     error
	gotMsgs []string
}

func (a *scriptedAgent) ID() string { return a.id }

func (a *scriptedAgent) Execute(ctx context.Context, ac *agent.Context) (*agent.Result, error) {
	a.gotMsgs = append(a.gotMsgs, ac.Message)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type fakeTickets struct {
	existing  *Ticket
	created   []CreateTicketInput
	createErr error
	lookupErr error
}

func (f *fakeTickets) FindByConversation(ctx context.Context, conversationID string) (*Ticket, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.existing, nil
}

func (f *fakeTickets) Create(ctx context.Context, in CreateTicketInput) (*Ticket, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &Ticket{ID: fmt.Sprintf("ISS-%04d", len(f.created)), Subject: in.Subject}, nil
}

func newService(t *testing.T, agents []agent.Agent, tickets TicketClient) *Service {
	t.Helper()
	reg := agent.NewRegistry()
	for _, a := range agents {
		require.NoError(t, reg.Add(a))
	}
	return NewService(reg, tickets)
}

func TestExecute_AgentToAgent(t *testing.T) {
	support := &scriptedAgent{id: "support", result: &agent.Result{Response: "Refund initiated."}}
	svc := newService(t, []agent.Agent{support}, nil)
	sess := session.New("whatsapp-911")

	out, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		SourceAgent: "order",
		TargetAgent: "support",
		UserMessage: "my order arrived cold",
	}, &agent.Context{Message: "original"})
	require.NoError(t, err)
	assert.Equal(t, "Refund initiated.", out.Result.Response)
	assert.False(t, out.Escalated)
	assert.Equal(t, 0, sess.Data.HandoffDepth, "depth resets on completion")
	assert.Equal(t, []string{"my order arrived cold"}, support.gotMsgs)
}

func TestExecute_DepthExceeded(t *testing.T) {
	support := &scriptedAgent{id: "support", result: &agent.Result{Response: "ok"}}
	svc := newService(t, []agent.Agent{support}, nil)
	sess := session.New("whatsapp-911")
	sess.Data.HandoffDepth = MaxDepth

	_, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		SourceAgent: "order",
		TargetAgent: "support",
	}, &agent.Context{})
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestExecute_NestedHandoffCountsAgainstDepth(t *testing.T) {
	// a -> b -> a -> b ... would loop forever without the bound.
	b := &scriptedAgent{id: "b", result: &agent.Result{Response: "done"}}
	a := &scriptedAgent{id: "a", result: &agent.Result{
		Response: "ignored",
		Handoff:  &agent.HandoffRequest{SourceAgent: "a", TargetAgent: "b"},
	}}
	svc := newService(t, []agent.Agent{a, b}, nil)
	sess := session.New("whatsapp-911")

	out, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		SourceAgent: "order",
		TargetAgent: "a",
	}, &agent.Context{Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Result.Response)
	assert.Equal(t, 0, sess.Data.HandoffDepth)
}

func TestEscalate_CreatesTicketOnce(t *testing.T) {
	tickets := &fakeTickets{}
	svc := newService(t, nil, tickets)
	sess := session.New("whatsapp-911")

	out, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		SourceAgent: "support",
		TargetAgent: agent.HandoffTargetHuman,
		Reason:      "payment dispute",
		Priority:    agent.PriorityCritical,
	}, &agent.Context{})
	require.NoError(t, err)
	assert.True(t, out.Escalated)
	assert.Equal(t, "ISS-0001", out.TicketID)
	assert.True(t, sess.Data.EscalatedToHuman)
	assert.Equal(t, "ISS-0001", sess.Data.FrappeIssueID)
	assert.Contains(t, out.Result.Response, "ISS-0001")

	// Second escalation reuses the session's ticket.
	out, err = svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		TargetAgent: agent.HandoffTargetHuman,
	}, &agent.Context{})
	require.NoError(t, err)
	assert.Equal(t, "ISS-0001", out.TicketID)
	assert.Len(t, tickets.created, 1)
}

func TestEscalate_ReusesOpenIssueFromTracker(t *testing.T) {
	tickets := &fakeTickets{existing: &Ticket{ID: "ISS-7777"}}
	svc := newService(t, nil, tickets)
	sess := session.New("whatsapp-911")

	out, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		TargetAgent: agent.HandoffTargetHuman,
	}, &agent.Context{})
	require.NoError(t, err)
	assert.Equal(t, "ISS-7777", out.TicketID)
	assert.Empty(t, tickets.created)
}

func TestEscalate_TicketFailureStillEscalates(t *testing.T) {
	tickets := &fakeTickets{createErr: fmt.Errorf("frappe down")}
	svc := newService(t, nil, tickets)
	sess := session.New("whatsapp-911")

	out, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
		TargetAgent: agent.HandoffTargetHuman,
	}, &agent.Context{})
	require.NoError(t, err)
	assert.True(t, out.Escalated)
	assert.Empty(t, out.TicketID)
	assert.True(t, sess.Data.EscalatedToHuman)
}

func TestStats_TracksPairs(t *testing.T) {
	support := &scriptedAgent{id: "support", result: &agent.Result{Response: "ok"}}
	svc := newService(t, []agent.Agent{support}, nil)
	sess := session.New("whatsapp-911")

	for i := 0; i < 3; i++ {
		_, err := svc.Execute(context.Background(), sess, &agent.HandoffRequest{
			SourceAgent: "order", TargetAgent: "support",
		}, &agent.Context{})
		require.NoError(t, err)
	}

	stats := svc.Stats()
	st, ok := stats["order_to_support"]
	require.True(t, ok)
	assert.EqualValues(t, 3, st.Count)
	assert.Equal(t, 1.0, st.SuccessRate())
}

func TestFrappePriorityMapping(t *testing.T) {
	assert.Equal(t, "Urgent", frappePriority(agent.PriorityCritical))
	assert.Equal(t, "High", frappePriority(agent.PriorityHigh))
	assert.Equal(t, "Medium", frappePriority(agent.PriorityMedium))
	assert.Equal(t, "Low", frappePriority(agent.PriorityLow))
	assert.Equal(t, "Medium", frappePriority(""))
}
