// Package dispatcher implements the Central Dispatcher (spec C7): the
// single user-facing entry point that enriches a query with memory,
// classifies it, and either answers directly, delegates to a specialized
// agent over the bus, or hands it to the Workflow Orchestrator.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/agentmesh/core/bus"
	"github.com/agentmesh/core/telemetry"
)

// DefaultDelegationTimeout bounds a single specialized-agent delegation
// issued by the Dispatcher over the bus.
const DefaultDelegationTimeout = bus.DefaultRequestTimeout

// OrchestratorClient is the narrow interface the Dispatcher needs from the
// Workflow Orchestrator (matches *orchestrator.Orchestrator's ExecuteTask
// exactly; kept separate to avoid an import cycle and to stay testable).
type OrchestratorClient interface {
	ExecuteTask(ctx context.Context, description string, taskContext map[string]any) (string, error)
}

type (
	// Dispatcher routes a user query to a direct response, a specialized
	// agent, or the orchestrator.
	Dispatcher struct {
		bus          *bus.Bus
		memory       MemoryProvider
		orchestrator OrchestratorClient
		tel          telemetry.Bundle

		delegationTimeout time.Duration
		history           *conversationHistory
	}

	// Option configures a Dispatcher at construction time.
	Option func(*Dispatcher)
)

// WithMemoryProvider attaches a memory/knowledge store for query enrichment.
func WithMemoryProvider(m MemoryProvider) Option {
	return func(d *Dispatcher) { d.memory = m }
}

// WithOrchestrator attaches the Workflow Orchestrator for orchestration-cue
// routing.
func WithOrchestrator(o OrchestratorClient) Option {
	return func(d *Dispatcher) { d.orchestrator = o }
}

// WithTelemetry attaches a telemetry.Bundle. Defaults to telemetry.NoopBundle().
func WithTelemetry(t telemetry.Bundle) Option {
	return func(d *Dispatcher) { d.tel = t }
}

// WithDelegationTimeout overrides DefaultDelegationTimeout.
func WithDelegationTimeout(dur time.Duration) Option {
	return func(d *Dispatcher) { d.delegationTimeout = dur }
}

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(d *Dispatcher) { d.history = newConversationHistory(n) }
}

// New constructs a Dispatcher bound to b. Specialized agents are resolved
// dynamically from b's registry by capability tag ("code", "system",
// "memory", or the generic "echo" catch-all) rather than fixed ids, so
// registering/unregistering agents with the bus is sufficient to change
// what the Dispatcher can delegate to.
func New(b *bus.Bus, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bus:               b,
		tel:               telemetry.NoopBundle(),
		delegationTimeout: DefaultDelegationTimeout,
		history:           newConversationHistory(DefaultHistoryLimit),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process runs the full Dispatcher pipeline for one query (spec §4.5):
// memory enrichment, classification, delegation, and post-processing.
func (d *Dispatcher) Process(ctx context.Context, query string, reqContext map[string]any) (bus.Response, error) {
	d.history.append("user", query)

	if query == "" {
		resp := bus.Response{
			Content:  "I didn't receive a question. Could you rephrase it?",
			Status:   bus.StatusSuccess,
			Metadata: map[string]any{"action": "suggest_reformulation", "agent_used": string(targetDirect)},
		}
		d.history.append("assistant", resp.Content)
		return resp, nil
	}

	enrichment := d.enrichWithMemory(ctx, query)
	normalized := normalizeQuery(query)

	if content, ok := shortcutContent(enrichment); ok && !isCodeGenerationRequest(normalized) {
		resp := bus.Response{
			Content: content,
			Status:  bus.StatusSuccess,
			Metadata: map[string]any{
				"direct_memory_response": true,
				"memories_found":         len(enrichment.records),
			},
		}
		d.history.append("assistant", resp.Content)
		return resp, nil
	}

	var (
		resp bus.Response
		err  error
	)
	switch {
	case isExplicitAgentType(reqContext):
		explicit, _ := reqContext["agent_type"].(string)
		resp, err = d.delegateByCapability(ctx, explicit, query, reqContext)
	default:
		resp, err = d.route(ctx, classify(normalized, d.orchestrator != nil), query, normalized, reqContext)
	}

	if err != nil {
		if errors.Is(err, bus.ErrCancelled) {
			resp = bus.Response{Status: bus.StatusCancelled, Metadata: map[string]any{"error": "cancelled"}}
		} else {
			resp = bus.Response{
				Status:   bus.StatusError,
				Content:  "Something went wrong handling that request.",
				Metadata: map[string]any{"error": classifyError(err)},
			}
		}
	}

	d.history.append("assistant", resp.Content)
	return resp, err
}

func isExplicitAgentType(reqContext map[string]any) bool {
	v, ok := reqContext["agent_type"].(string)
	return ok && v != ""
}

// route dispatches a classified target to its delegate, falling back to the
// generic catch-all and finally the static direct-response table when no
// matching agent is registered.
func (d *Dispatcher) route(ctx context.Context, tgt target, query, normalized string, reqContext map[string]any) (bus.Response, error) {
	var (
		resp bus.Response
		err  error
	)
	switch tgt {
	case targetOrchestrator:
		resp, err = d.delegateToOrchestrator(ctx, query, reqContext)
	case targetCode, targetSystem, targetMemory:
		resp, err = d.delegateByCapability(ctx, string(tgt), query, reqContext)
		if errors.Is(err, bus.ErrNoAgentAvailable) {
			// No specialized agent registered for this capability: fall
			// through to the generic catch-all, then to direct handling.
			resp, err = d.delegateToCatchAll(ctx, query, reqContext)
			if errors.Is(err, bus.ErrNoAgentAvailable) {
				resp, err = d.directResponse(query, normalized), nil
				resp.Metadata = withAgentUsed(resp.Metadata, string(targetDirect))
			}
		}
	default:
		resp, err = d.delegateToCatchAll(ctx, query, reqContext)
		if errors.Is(err, bus.ErrNoAgentAvailable) {
			resp = d.directResponse(query, normalized)
			resp.Metadata = withAgentUsed(resp.Metadata, string(targetDirect))
			err = nil
		}
	}

	return resp, err
}

// delegateByCapability finds the first registered agent advertising
// capability (sorted by agent id for determinism) and sends it the query.
func (d *Dispatcher) delegateByCapability(ctx context.Context, capability, query string, reqContext map[string]any) (bus.Response, error) {
	agent, ok := d.findAgentByCapability(capability)
	if !ok {
		return bus.Response{}, bus.ErrNoAgentAvailable
	}
	return d.sendToAgent(ctx, agent, query, reqContext, capability)
}

// delegateToCatchAll routes to a registered agent advertising the generic
// "echo"/"general" capability (spec's zero-score fallthrough path, widened
// to first try a bus agent before the static direct-response table — see
// DESIGN.md).
func (d *Dispatcher) delegateToCatchAll(ctx context.Context, query string, reqContext map[string]any) (bus.Response, error) {
	for _, cap := range []string{"echo", "general"} {
		if agent, ok := d.findAgentByCapability(cap); ok {
			return d.sendToAgent(ctx, agent, query, reqContext, cap)
		}
	}
	return bus.Response{}, bus.ErrNoAgentAvailable
}

func (d *Dispatcher) sendToAgent(ctx context.Context, agent bus.Agent, query string, reqContext map[string]any, usedAs string) (bus.Response, error) {
	msg, err := d.bus.SendRequest(ctx, "dispatcher", agent.AgentID(), query, reqContext, d.delegationTimeout)
	if err != nil {
		return bus.Response{}, err
	}
	if msg.Kind == bus.KindError {
		errText := msg.Content
		if errText == "" {
			errText, _ = msg.Context["error"].(string)
		}
		return bus.Response{
			Status:   bus.StatusError,
			Content:  errText,
			Metadata: withAgentUsed(map[string]any{"error": errText}, usedAs),
		}, nil
	}
	return bus.Response{
		Content:  msg.Content,
		Status:   bus.StatusSuccess,
		Metadata: withAgentUsed(map[string]any{}, usedAs),
	}, nil
}

func (d *Dispatcher) delegateToOrchestrator(ctx context.Context, query string, reqContext map[string]any) (bus.Response, error) {
	if d.orchestrator == nil {
		return bus.Response{}, fmt.Errorf("dispatcher: %w", bus.ErrNoAgentAvailable)
	}
	content, err := d.orchestrator.ExecuteTask(ctx, query, reqContext)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.Response{
		Content:  content,
		Status:   bus.StatusSuccess,
		Metadata: withAgentUsed(map[string]any{"orchestrated": true}, string(targetOrchestrator)),
	}, nil
}

func (d *Dispatcher) findAgentByCapability(capability string) (bus.Agent, bool) {
	agents := d.bus.Agents()
	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentID() < agents[j].AgentID() })
	for _, a := range agents {
		for _, c := range a.Capabilities() {
			if c == capability {
				return a, true
			}
		}
	}
	return nil, false
}

func (d *Dispatcher) capabilitiesSummary() string {
	caps := d.bus.Capabilities(context.Background())
	if len(caps) == 0 {
		return "general conversation"
	}
	sort.Strings(caps)
	out := caps[0]
	for _, c := range caps[1:] {
		out += ", " + c
	}
	return out
}

func withAgentUsed(metadata map[string]any, used string) map[string]any {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["agent_used"] = used
	return metadata
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, bus.ErrRecipientNotFound):
		return "agent_not_found"
	case errors.Is(err, bus.ErrTimeout):
		return "timeout"
	case errors.Is(err, bus.ErrNoAgentAvailable):
		return "no_agent_available"
	default:
		return "dispatch_error"
	}
}
