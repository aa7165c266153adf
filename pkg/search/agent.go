package search

import (
	"context"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/intent"
)

// Agent exposes the executor as the "search" conversational agent. The
// routed entities become the function arguments; session state supplies
// zone, location and identity.
type Agent struct {
	exec *Executor
}

func NewAgent(exec *Executor) *Agent {
	return &Agent{exec: exec}
}

var _ agent.Agent = (*Agent)(nil)

func (a *Agent) ID() string { return "search" }

func (a *Agent) Execute(ctx context.Context, ac *agent.Context) (*agent.Result, error) {
	args := Args{Query: ac.Message}
	if q := intent.EntityString(ac.Entities, "query"); q != "" {
		args.Query = q
	}
	args.Module = intent.EntityString(ac.Entities, "module")
	args.Category = intent.EntityString(ac.Entities, "category")

	in := Input{
		Args:        args,
		Module:      ac.Module,
		Preferences: ac.Preferences,
	}
	if sess := ac.Session; sess != nil {
		if in.Module == "" {
			in.Module = sess.Data.Module
		}
		in.ZoneID = sess.Data.ZoneID
		in.UserID = sess.Data.UserID
		if loc := sess.Data.Location; loc != nil {
			in.Latitude = loc.Latitude
			in.Longitude = loc.Longitude
			in.HasLoc = true
		}
	}

	resp := a.exec.Execute(ctx, in)

	message := resp.Message
	if resp.Warning != "" {
		message = resp.Warning + "\n\n" + message
	}
	result := &agent.Result{
		Response: message,
		Metadata: map[string]any{
			"search_mode": resp.SearchMode,
			"total":       resp.Total,
			"showing":     resp.Showing,
		},
	}
	for i, item := range resp.Items {
		if i >= 5 {
			break
		}
		result.Buttons = append(result.Buttons, agent.Button{
			Label: item.Name,
			Value: "add " + item.Name + " to cart",
		})
	}
	return result, nil
}
