package agent

import (
	"errors"
	"fmt"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/registry"
)

// ErrAgentNotFound is returned when no agent matches the requested id.
var ErrAgentNotFound = errors.New("agent not found")

// Registry holds agents by id.
type Registry struct {
	*registry.BaseRegistry[Agent]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Agent]()}
}

// Add registers an agent under its own id.
func (r *Registry) Add(a Agent) error {
	if a == nil {
		return fmt.Errorf("agent cannot be nil")
	}
	return r.Register(a.ID(), a)
}

// Lookup resolves an agent id, wrapping ErrAgentNotFound with the id.
func (r *Registry) Lookup(id string) (Agent, error) {
	a, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// IDs lists the registered agent ids in sorted order.
func (r *Registry) IDs() []string {
	return r.Names()
}
