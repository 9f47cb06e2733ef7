// Package orchestrator implements the Workflow Orchestrator (spec C6): it
// asks the Planner for a Plan, walks the Plan's execution order selecting
// and dispatching each step to a registered agent over the Bus, reports
// task status back into the Plan, and consolidates the final response.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentmesh/core/bus"
	"github.com/agentmesh/core/orchestrator/engine"
	"github.com/agentmesh/core/orchestrator/engine/inmem"
	"github.com/agentmesh/core/plan"
	"github.com/agentmesh/core/planner"
	"github.com/agentmesh/core/telemetry"
)

// DefaultStepTimeout bounds a single orchestrator-initiated step request
// (spec §5: "15 s for orchestrator-initiated step requests").
const DefaultStepTimeout = 15 * time.Second

// ErrWorkflowNotArchived is returned by an Archive implementation's lookup
// side when no archived record exists for a workflow id.
var ErrWorkflowNotArchived = errors.New("orchestrator: workflow not archived")

// Archive is an optional best-effort sink for completed workflows (e.g. a
// Mongo-backed archive; see orchestrator/archive). Archival failures are
// logged and never fail a workflow.
type Archive interface {
	SaveWorkflow(ctx context.Context, w *Workflow) error
}

type (
	// Orchestrator drives Plans to completion over a Bus.
	Orchestrator struct {
		bus     *bus.Bus
		planner *planner.Planner
		eng     engine.Engine
		archive Archive
		tel     telemetry.Bundle

		stepTimeout time.Duration
		store       *workflowStore
	}

	// Option configures an Orchestrator at construction time.
	Option func(*Orchestrator)
)

// WithEngine overrides the default in-memory engine.Engine (see
// orchestrator/engine/temporal for a durable alternative).
func WithEngine(e engine.Engine) Option {
	return func(o *Orchestrator) { o.eng = e }
}

// WithArchive attaches an optional workflow archive.
func WithArchive(a Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithTelemetry attaches a telemetry.Bundle. Defaults to telemetry.NoopBundle().
func WithTelemetry(t telemetry.Bundle) Option {
	return func(o *Orchestrator) { o.tel = t }
}

// WithStepTimeout overrides DefaultStepTimeout.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

// New constructs an Orchestrator bound to b and p. If no Option supplies an
// Engine, a non-durable engine/inmem.Engine is used.
func New(b *bus.Bus, p *planner.Planner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		bus:         b,
		planner:     p,
		tel:         telemetry.NoopBundle(),
		stepTimeout: DefaultStepTimeout,
		store:       newWorkflowStore(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.eng == nil {
		o.eng = inmem.New(o.dispatchStep)
	}
	return o
}

// RegisterAvailableAgent registers an agent with the underlying Bus so it
// becomes a candidate for step assignment and a message delivery endpoint.
func (o *Orchestrator) RegisterAvailableAgent(ctx context.Context, a bus.Agent) {
	o.bus.RegisterAgent(ctx, a)
}

// GetAgentStatus reports whether id is currently registered and, if it
// implements StatefulAgent, its reported lifecycle state.
func (o *Orchestrator) GetAgentStatus(id string) (bus.State, bool) {
	a, ok := o.bus.FindAgent(id)
	if !ok {
		return "", false
	}
	return agentState(a), true
}

// PlanWorkflow asks the Planner for a Plan decomposing description and
// wraps it in a new Workflow, without executing any steps.
func (o *Orchestrator) PlanWorkflow(ctx context.Context, description string, workflowContext map[string]any) (*Workflow, error) {
	availableCapabilities := o.bus.Capabilities(ctx)
	p, err := o.planner.Plan(ctx, description, availableCapabilities, workflowContext)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: plan workflow: %w", err)
	}
	w := newWorkflow(p)
	o.store.put(w)
	return w, nil
}

// ExecuteWorkflow drives workflowID's Plan to completion: steps are
// traversed in ExecutionOrder, a step becomes eligible once all its
// dependencies are COMPLETED, and ready steps execute sequentially (spec
// §4.4). A FAILED step terminates the workflow immediately; before the run
// is marked failed, every downstream task is propagated to SKIPPED (to a
// fixpoint, since skipping one task can unblock the next) so no task is
// left PENDING in the final, terminal Plan.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	w, ok := o.store.get(workflowID)
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown workflow %s", workflowID)
	}

	p := w.Plan
	p.Start()

	for !p.AllTerminal() && p.Status != plan.RunCancelled {
		if o.skipTasksWithFailedDependencies(p) {
			continue
		}

		ready := p.ReadyTasks()
		if len(ready) == 0 {
			break // nothing eligible and nothing to propagate: stuck plan, stop
		}

		for _, taskID := range ready {
			if p.Status == plan.RunCancelled {
				break
			}
			if err := o.executeStep(ctx, w, taskID); err != nil {
				for o.skipTasksWithFailedDependencies(p) {
				}
				p.Finish(plan.RunFailed)
				o.archiveBestEffort(ctx, w)
				return w, nil
			}
		}
	}

	if p.Status != plan.RunFailed && p.Status != plan.RunCancelled {
		p.Finish(plan.RunCompleted)
	}
	o.archiveBestEffort(ctx, w)
	return w, nil
}

// skipTasksWithFailedDependencies transitions every PENDING task whose
// dependencies include a FAILED or SKIPPED task to SKIPPED, and reports
// whether it skipped anything (the caller should re-evaluate ReadyTasks
// after a skip, since skipping can itself unblock further propagation).
func (o *Orchestrator) skipTasksWithFailedDependencies(p *plan.Plan) bool {
	skippedAny := false
	for _, id := range p.ExecutionOrder {
		t := p.Tasks[id]
		if t.Status == plan.StatusPending && p.DependenciesFailedOrSkipped(id) {
			_ = p.UpdateTask(id, plan.StatusSkipped, "", "", "")
			skippedAny = true
		}
	}
	return skippedAny
}

// executeStep selects an agent for taskID, dispatches it through the
// configured Engine, and records the outcome on the Plan. It returns an
// error only when the step itself fails (no agent available, bus error, or
// agent-reported error) — a failure that must terminate the workflow.
func (o *Orchestrator) executeStep(ctx context.Context, w *Workflow, taskID string) error {
	p := w.Plan
	t := p.Tasks[taskID]
	w.CurrentStep = taskID

	agent, err := selectAgent(o.bus.Agents(), selectionInput{
		requiredCapabilities: capabilitySlice(t),
		preferredAgent:       preferredAgent(p.Context),
	})
	if err != nil {
		_ = p.UpdateTask(taskID, plan.StatusFailed, "", err.Error(), "")
		w.recordResult(taskID, "", err.Error(), plan.StatusFailed)
		return err
	}

	if err := p.UpdateTask(taskID, plan.StatusInProgress, "", "", agent.AgentID()); err != nil {
		return err
	}

	res, err := o.eng.ExecuteStep(ctx, engine.StepRequest{
		WorkflowID: w.ID,
		TaskID:     taskID,
		AgentID:    agent.AgentID(),
		Query:      stepPrompt(t, p),
		Context:    p.Context,
		Timeout:    o.stepTimeout,
	})
	if err != nil {
		_ = p.UpdateTask(taskID, plan.StatusFailed, "", err.Error(), agent.AgentID())
		w.recordResult(taskID, agent.AgentID(), err.Error(), plan.StatusFailed)
		return err
	}
	if res.Error != "" {
		_ = p.UpdateTask(taskID, plan.StatusFailed, "", res.Error, agent.AgentID())
		w.recordResult(taskID, agent.AgentID(), res.Error, plan.StatusFailed)
		return fmt.Errorf("orchestrator: step %s: %s", taskID, res.Error)
	}

	output := res.Output
	if output == "" {
		output = "(completed with no output)"
	}
	if err := p.UpdateTask(taskID, plan.StatusCompleted, output, "", agent.AgentID()); err != nil {
		return err
	}
	w.recordResult(taskID, agent.AgentID(), output, plan.StatusCompleted)
	return nil
}

// dispatchStep is the engine.Dispatch implementation backing the default
// in-memory engine: it issues a single bus request to the assigned agent.
func (o *Orchestrator) dispatchStep(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
	msg, err := o.bus.SendRequest(ctx, "orchestrator", req.AgentID, req.Query, req.Context, req.Timeout)
	if err != nil {
		return engine.StepResult{}, err
	}
	if msg.Kind == bus.KindError {
		errText := msg.Content
		if errText == "" {
			errText, _ = msg.Context["error"].(string)
		}
		return engine.StepResult{Error: errText}, nil
	}
	return engine.StepResult{Output: msg.Content}, nil
}

// ExecuteTask is the end-to-end convenience operation (spec §4.4
// execute_task): plan then execute in one call, returning the consolidated
// response.
func (o *Orchestrator) ExecuteTask(ctx context.Context, description string, taskContext map[string]any) (string, error) {
	w, err := o.PlanWorkflow(ctx, description, taskContext)
	if err != nil {
		return "", err
	}
	w, err = o.ExecuteWorkflow(ctx, w.ID)
	if err != nil {
		return "", err
	}
	return Consolidate(w), nil
}

// CancelWorkflow marks a planned or running workflow cancelled; a workflow
// that is already completed, failed or cancelled is left unchanged and an
// error is returned. In-flight steps are not forcibly interrupted (the
// default engine has no cancellation hook mid-step); subsequent steps are
// simply never started.
func (o *Orchestrator) CancelWorkflow(workflowID string) error {
	w, ok := o.store.get(workflowID)
	if !ok {
		return fmt.Errorf("orchestrator: unknown workflow %s", workflowID)
	}
	switch w.Plan.Status {
	case plan.RunCompleted, plan.RunFailed, plan.RunCancelled:
		return fmt.Errorf("orchestrator: workflow %s is already %s", workflowID, w.Plan.Status)
	}
	w.Plan.Finish(plan.RunCancelled)
	return nil
}

// GetWorkflowStatus returns the workflow with the given id.
func (o *Orchestrator) GetWorkflowStatus(workflowID string) (*Workflow, error) {
	w, ok := o.store.get(workflowID)
	if !ok {
		return nil, fmt.Errorf("orchestrator: unknown workflow %s", workflowID)
	}
	return w, nil
}

// ListWorkflows returns every workflow the orchestrator has planned, most
// recently created first. When statuses are given, only workflows whose plan
// is in one of them are returned.
func (o *Orchestrator) ListWorkflows(statuses ...plan.RunStatus) []*Workflow {
	all := o.store.list()
	if len(statuses) == 0 {
		return all
	}
	var out []*Workflow
	for _, w := range all {
		for _, s := range statuses {
			if w.Plan.Status == s {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

func (o *Orchestrator) archiveBestEffort(ctx context.Context, w *Workflow) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveWorkflow(ctx, w); err != nil {
		o.tel.Logger.Warn(ctx, "orchestrator: workflow archive failed", "workflow_id", w.ID, "error", err.Error())
	}
}

// stepPrompt builds the text sent to the assigned agent: the step's own
// description, followed by a "CONTEXT FROM PREVIOUS STEPS" section
// appending the results of its completed dependencies (spec §4.4), if any.
func stepPrompt(t *plan.Task, p *plan.Plan) string {
	if len(t.Dependencies) == 0 {
		return t.Description
	}
	var depResults []string
	for _, id := range p.ExecutionOrder {
		if _, isDep := t.Dependencies[id]; !isDep {
			continue
		}
		dep := p.Tasks[id]
		if dep.Result != "" {
			depResults = append(depResults, fmt.Sprintf("%s: %s", id, dep.Result))
		}
	}
	if len(depResults) == 0 {
		return t.Description
	}
	prompt := t.Description + "\n\nCONTEXT FROM PREVIOUS STEPS:\n"
	for _, r := range depResults {
		prompt += "- " + r + "\n"
	}
	return prompt
}

func capabilitySlice(t *plan.Task) []string {
	caps := make([]string, 0, len(t.RequiredCapabilities))
	for c := range t.RequiredCapabilities {
		caps = append(caps, c)
	}
	return caps
}

// preferredAgent reads an optional "preferred_agent" string out of a plan's
// context map (spec §4.4 selection bonus).
func preferredAgent(planContext map[string]any) string {
	if v, ok := planContext["preferred_agent"].(string); ok {
		return v
	}
	return ""
}
