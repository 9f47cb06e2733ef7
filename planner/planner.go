// Package planner implements the Task Planner (spec C5): decomposition of a
// natural-language task description into a plan.Plan, either via a pluggable
// Backend or, failing that, a deterministic heuristic fallback.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentmesh/core/plan"
	"github.com/agentmesh/core/telemetry"
)

// DefaultPlanningTimeout bounds how long GeneratePlan's Backend delegation
// may take before the Planner gives up and falls back to the heuristic
// planner (spec §4.3: "planning must be bounded").
const DefaultPlanningTimeout = 30 * time.Second

type (
	// Planner decomposes task descriptions into Plans, optionally
	// delegating to a Backend, and keeps an in-memory history of plans it
	// has produced.
	Planner struct {
		backend Backend
		tel     telemetry.Bundle
		timeout time.Duration
		store   *store
		schema  *schemaValidator
	}

	// Option configures a Planner at construction time.
	Option func(*Planner)
)

// WithBackend attaches a pluggable plan-generation Backend. Without one, the
// Planner always uses the heuristic fallback.
func WithBackend(b Backend) Option {
	return func(p *Planner) { p.backend = b }
}

// WithTelemetry attaches a telemetry.Bundle. Defaults to telemetry.NoopBundle().
func WithTelemetry(t telemetry.Bundle) Option {
	return func(p *Planner) { p.tel = t }
}

// WithPlanningTimeout overrides DefaultPlanningTimeout.
func WithPlanningTimeout(d time.Duration) Option {
	return func(p *Planner) { p.timeout = d }
}

// New constructs a Planner.
func New(opts ...Option) (*Planner, error) {
	p := &Planner{
		tel:     telemetry.NoopBundle(),
		timeout: DefaultPlanningTimeout,
		store:   newStore(),
	}
	for _, opt := range opts {
		opt(p)
	}
	sv, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}
	p.schema = sv
	return p, nil
}

// Plan decomposes description into a plan.Plan. If a Backend is configured,
// it is tried first within the planning timeout; a Backend error, timeout,
// or schema-invalid response all fall back to the heuristic planner rather
// than failing the call outright — Plan only returns an error if
// even the heuristic fallback cannot construct a valid plan.Plan (which in
// practice only happens if description is empty).
func (p *Planner) Plan(ctx context.Context, description string, availableCapabilities []string, planCtx map[string]any) (*plan.Plan, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("planner: task description must not be empty")
	}

	tasks, err := p.tasksFromBackend(ctx, description, availableCapabilities)
	if err != nil {
		p.tel.Logger.Warn(ctx, "planner: backend plan rejected, falling back to heuristic", "error", err.Error())
		tasks = heuristicPlan(description)
	}

	pl, err := plan.New(description, tasks, planCtx)
	if err != nil {
		// A backend (or malformed textual parse) can still produce an
		// internally inconsistent task set, e.g. a dependency cycle; retry
		// once against the heuristic planner, which is always acyclic.
		p.tel.Logger.Warn(ctx, "planner: plan construction failed, retrying with heuristic plan", "error", err.Error())
		pl, err = plan.New(description, heuristicPlan(description), planCtx)
		if err != nil {
			return nil, fmt.Errorf("planner: %w", err)
		}
	}

	p.store.put(pl)
	p.tel.Metrics.IncCounter("planner.plans_created", 1, "task_count", fmt.Sprint(len(pl.Tasks)))
	return pl, nil
}

// tasksFromBackend delegates to the configured Backend, bounded by the
// Planner's planning timeout, and validates/parses its response. Returns
// ErrInvalidPlan (wrapped) if no Backend is configured or its response cannot
// be parsed into tasks, ErrPlanningTimeout (wrapped) if the timeout elapses,
// and the Backend's own error (wrapped) if the Backend fails.
func (p *Planner) tasksFromBackend(ctx context.Context, description string, availableCapabilities []string) ([]plan.Task, error) {
	if p.backend == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrInvalidPlan)
	}

	bctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		raw string
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		raw, err := p.backend.GeneratePlan(bctx, description, availableCapabilities)
		resultCh <- result{raw, err}
	}()

	var raw string
	select {
	case <-bctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrPlanningTimeout, bctx.Err())
	case r := <-resultCh:
		if r.err != nil {
			return nil, fmt.Errorf("planner backend: %w", r.err)
		}
		raw = r.raw
	}

	return p.parseBackendResponse(raw)
}

// parseBackendResponse tries structured-JSON parsing first (schema
// validated), then falls back to the textual numbered-list format.
func (p *Planner) parseBackendResponse(raw string) ([]plan.Task, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		sp, err := p.schema.decodeStructuredPlan([]byte(trimmed))
		if err != nil {
			return nil, err
		}
		return structuredToTasks(sp), nil
	}
	return parseTextualPlan(trimmed)
}

// UpdateTask forwards to the underlying Plan's UpdateTask, enforcing the
// task status state machine (plan.Status.CanTransition).
func (p *Planner) UpdateTask(planID, taskID string, next plan.Status, result, errMsg, assignedAgent string) error {
	pl, ok := p.store.get(planID)
	if !ok {
		return fmt.Errorf("planner: %w: %s", ErrPlanNotFound, planID)
	}
	return pl.UpdateTask(taskID, next, result, errMsg, assignedAgent)
}

// GetPlan returns the plan with the given id.
func (p *Planner) GetPlan(planID string) (*plan.Plan, error) {
	pl, ok := p.store.get(planID)
	if !ok {
		return nil, fmt.Errorf("planner: %w: %s", ErrPlanNotFound, planID)
	}
	return pl, nil
}

// ListPlans returns all plans the Planner has produced, most recently
// created first.
func (p *Planner) ListPlans() []*plan.Plan {
	return p.store.list()
}
