package bus

import (
	"context"
	"sort"
	"sync"

	"github.com/agentmesh/core/telemetry"
)

// Handler is a callback invoked for messages addressed to an agent that the
// bus does not (or cannot) deliver via direct Agent.Process invocation.
// Handlers never block other handlers: a panic from one handler is logged
// and does not stop invocation of the rest (spec §4.1 step 5).
type Handler func(ctx context.Context, msg Message)

// record is the bus's internal bookkeeping for one registered agent (spec
// C2's Agent Record). capabilities and handlers are guarded by the owning
// registry's mutex, not by record itself.
type record struct {
	agent        Agent
	capabilities map[string]struct{}
	handlers     []Handler
}

// registry is the agent directory shared by the Bus: register/unregister,
// handler lists, and capability lookups. All mutation is serialized so no
// reader ever observes a torn state (spec §5).
type registry struct {
	mu     sync.RWMutex
	agents map[string]*record
	log    telemetry.Logger
}

func newRegistry(log telemetry.Logger) *registry {
	return &registry{agents: make(map[string]*record), log: log}
}

// register adds agent to the registry. Re-registering an already-known
// agent id is a no-op with a warning (spec C2 invariant): it does not
// duplicate handlers or capability advertisements.
func (r *registry) register(ctx context.Context, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.AgentID()]; exists {
		r.log.Warn(ctx, "duplicate agent registration ignored", "agent_id", a.AgentID())
		return
	}
	caps := make(map[string]struct{}, len(a.Capabilities()))
	for _, c := range a.Capabilities() {
		caps[c] = struct{}{}
	}
	r.agents[a.AgentID()] = &record{agent: a, capabilities: caps}
}

// unregister removes the agent with the given id. It is a no-op if absent.
func (r *registry) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// addHandler appends handler to the agent's handler list. It is a no-op if
// the agent id is unknown.
func (r *registry) addHandler(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.agents[id]
	if !ok {
		return
	}
	rec.handlers = append(rec.handlers, h)
}

// find returns the agent registered under id, or false if absent.
func (r *registry) find(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[id]
	if !ok {
		return nil, false
	}
	return rec.agent, true
}

// handlersFor returns a copy of the handler list registered for id, in
// registration order.
func (r *registry) handlersFor(id string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[id]
	if !ok {
		return nil
	}
	out := make([]Handler, len(rec.handlers))
	copy(out, rec.handlers)
	return out
}

// all returns every registered Agent, sorted by agent id for deterministic
// iteration (agent selection scoring, status snapshots).
func (r *registry) all() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.agents))
	for _, rec := range r.agents {
		out = append(out, rec.agent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID() < out[j].AgentID() })
	return out
}

// capabilities returns the union of every registered agent's capability set
// (spec §4.3: "capability tags currently available in the bus").
func (r *registry) capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, rec := range r.agents {
		for c := range rec.capabilities {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// hasCapability reports whether id advertises capability c.
func (r *registry) hasCapability(id, c string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[id]
	if !ok {
		return false
	}
	_, ok = rec.capabilities[c]
	return ok
}
