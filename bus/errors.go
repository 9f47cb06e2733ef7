package bus

import "errors"

// Error taxonomy shared across the bus, planner, orchestrator, and
// dispatcher (spec §7). A sentinel that is returned is wrapped with context
// first so callers can both log structured fields and classify via
// errors.Is.
var (
	// ErrRecipientNotFound names the recipient_not_found kind. The bus does
	// not return it: an unknown receiver is reported as an ERROR message whose
	// context carries this kind.
	ErrRecipientNotFound = errors.New("recipient_not_found")
	// ErrTimeout is returned when a send_request deadline elapses with no
	// correlated response.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled is returned when a caller abandons an in-flight send_request.
	ErrCancelled = errors.New("cancelled")
	// ErrNoAgentAvailable is returned by the orchestrator when no registered
	// agent can be matched to a step.
	ErrNoAgentAvailable = errors.New("no_agent_available")
	// ErrInvalidPlan names the invalid_plan kind. No function in this module
	// returns it; the planner reports rejected plans with its own
	// planner.ErrInvalidPlan.
	ErrInvalidPlan = errors.New("invalid_plan")
	// ErrAgentError names the agent_error kind. The bus does not return it: a
	// non-success status from an agent's Process call is reported as an
	// ERROR message whose context carries this kind.
	ErrAgentError = errors.New("agent_error")
	// ErrInternal names the internal_error kind for unexpected failures. No
	// function in this module returns it.
	ErrInternal = errors.New("internal_error")
)
