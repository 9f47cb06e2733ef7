package planner

import "context"

// Backend is an external plan generator, typically backed by an LLM (spec
// §4.3: "the Planner may delegate to a pluggable backend"). A Backend may
// respond either with a structured JSON document (validated against the
// plan schema) or with free text containing a numbered list of steps in the
// form "N. [capability] description", which the Planner parses with
// parseTextualPlan.
//
// Backends are expected to be narrow adapters around a single model call;
// see modelbackend for the concrete Anthropic/OpenAI/Bedrock
// implementations.
type Backend interface {
	// GeneratePlan asks the backend to break description down into tasks,
	// given the capabilities currently available across registered agents.
	// The returned string is either a JSON object matching the plan schema
	// or a textual numbered list; Backend implementations are not required
	// to pick one format consistently, since the caller validates either
	// way.
	GeneratePlan(ctx context.Context, description string, availableCapabilities []string) (string, error)
}

// BackendFunc adapts a plain function to the Backend interface.
type BackendFunc func(ctx context.Context, description string, availableCapabilities []string) (string, error)

// GeneratePlan implements Backend.
func (f BackendFunc) GeneratePlan(ctx context.Context, description string, availableCapabilities []string) (string, error) {
	return f(ctx, description, availableCapabilities)
}
