package flow

import (
	"context"
	"log/slog"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// Dispatcher is the orchestrator-facing facade. It pairs the external
// engine with the definition catalog and hides both behind the small set
// of operations the message loop needs.
type Dispatcher struct {
	engine  Engine
	catalog *Catalog
	log     *slog.Logger
}

func NewDispatcher(engine Engine, catalog *Catalog) *Dispatcher {
	return &Dispatcher{
		engine:  engine,
		catalog: catalog,
		log:     slog.Default().With("component", "flow_dispatcher"),
	}
}

// GetActiveFlow returns the participant's running flow handle, or nil.
func (d *Dispatcher) GetActiveFlow(ctx context.Context, key string) (*session.FlowRef, error) {
	return d.engine.ActiveFlow(ctx, key)
}

// IsInWaitState reports whether the active flow is blocked on user input.
// Engine errors degrade to false so a flaky runtime never wedges routing.
func (d *Dispatcher) IsInWaitState(ctx context.Context, key string) bool {
	waiting, err := d.engine.InWaitState(ctx, key)
	if err != nil {
		d.log.Warn("wait-state probe failed", "key", key, "error", err)
		return false
	}
	return waiting
}

// ProcessActiveFlow forwards a user turn to the running flow.
func (d *Dispatcher) ProcessActiveFlow(ctx context.Context, key, message, intent string, confidence float64) (*StepResult, error) {
	return d.engine.Process(ctx, key, ProcessInput{
		Message:    message,
		Intent:     intent,
		Confidence: confidence,
	})
}

// StartFlow launches a flow with the given initial context.
func (d *Dispatcher) StartFlow(ctx context.Context, key, flowID string, initCtx map[string]any) (*StepResult, error) {
	return d.engine.Start(ctx, key, flowID, initCtx)
}

// FindFlowByIntent resolves which flow, if any, a routed intent starts.
func (d *Dispatcher) FindFlowByIntent(intent, module, message string) (*Definition, error) {
	if d.catalog == nil {
		return nil, nil
	}
	return d.catalog.FindByIntent(intent, module, message)
}

// SuspendFlow pauses the active flow so it can be resumed later.
func (d *Dispatcher) SuspendFlow(ctx context.Context, key string) error {
	return d.engine.Suspend(ctx, key)
}

// CancelFlow terminates the active flow. Cancelling when nothing is
// running is a no-op at the engine.
func (d *Dispatcher) CancelFlow(ctx context.Context, key string) error {
	return d.engine.Cancel(ctx, key)
}

// ResumeSuspendedFlow resumes the participant's suspended flow and
// reports whether one was actually resumed.
func (d *Dispatcher) ResumeSuspendedFlow(ctx context.Context, key string) (bool, error) {
	return d.engine.Resume(ctx, key)
}

// ClearFlowCache drops the catalog cache. Used by tests and the admin
// reload endpoint.
func (d *Dispatcher) ClearFlowCache() {
	if d.catalog != nil {
		d.catalog.ClearCache()
	}
}
