// Package handoff executes agent-to-agent delegation and human
// escalation, including support-ticket creation in the Frappe desk.
package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// Ticket is a created or found support issue.
type Ticket struct {
	ID       string `json:"name"`
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
}

// TicketClient is the external issue tracker surface the escalation path
// needs. Tests stub it; production uses FrappeClient.
type TicketClient interface {
	// FindByConversation looks up an open issue already filed for this
	// conversation. Returns nil when none exists.
	FindByConversation(ctx context.Context, conversationID string) (*Ticket, error)
	Create(ctx context.Context, in CreateTicketInput) (*Ticket, error)
}

// CreateTicketInput is the issue payload.
type CreateTicketInput struct {
	ConversationID string
	Subject        string
	Description    string
	Priority       agent.HandoffPriority
}

// frappePriority maps internal priority levels onto Frappe issue
// priorities.
func frappePriority(p agent.HandoffPriority) string {
	switch p {
	case agent.PriorityCritical:
		return "Urgent"
	case agent.PriorityHigh:
		return "High"
	case agent.PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// FrappeClient files issues through the Frappe REST resource API.
type FrappeClient struct {
	baseURL string
	apiKey  string
	secret  string
	http    *httpclient.Client
}

func NewFrappeClient(baseURL, apiKey, secret string, hc *httpclient.Client) *FrappeClient {
	if hc == nil {
		hc = httpclient.New(httpclient.WithTimeout(8 * time.Second))
	}
	return &FrappeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		secret:  secret,
		http:    hc,
	}
}

var _ TicketClient = (*FrappeClient)(nil)

func (c *FrappeClient) FindByConversation(ctx context.Context, conversationID string) (*Ticket, error) {
	filters := fmt.Sprintf(`[["custom_conversation_id","=",%q],["status","not in",["Closed","Resolved"]]]`, conversationID)
	q := url.Values{}
	q.Set("filters", filters)
	q.Set("fields", `["name","subject","priority"]`)
	q.Set("limit_page_length", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/resource/Issue?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("frappe issue lookup: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Data []Ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("frappe lookup decode: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func (c *FrappeClient) Create(ctx context.Context, in CreateTicketInput) (*Ticket, error) {
	payload := map[string]any{
		"subject":                in.Subject,
		"description":            in.Description,
		"priority":               frappePriority(in.Priority),
		"custom_conversation_id": in.ConversationID,
		"issue_type":             "Chat Escalation",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/resource/Issue", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("frappe issue create: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Data Ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("frappe create decode: %w", err)
	}
	return &out.Data, nil
}

func (c *FrappeClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.secret))
}
