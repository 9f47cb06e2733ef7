package orchestrator

import (
	"time"

	"github.com/agentmesh/core/plan"
)

// RunStatus mirrors plan.RunStatus for the orchestrator's public view so
// callers depend on the orchestrator package rather than reaching into
// plan directly.
type RunStatus = plan.RunStatus

// StepResult is one entry of a Workflow's per-step results list (spec §3:
// Workflow "adds current_step ... results (list of per-step {step_index,
// agent_id, content, status})"). TaskID is carried alongside the spec's four
// fields so consumers can join back to the originating Plan task without a
// second lookup by position.
type StepResult struct {
	StepIndex int
	TaskID    string
	AgentID   string
	Content   string
	Status    plan.Status
}

// Workflow is the orchestrator's runtime view of a Plan in execution (spec
// C6): the originating Plan plus bookkeeping the orchestrator accumulates
// while driving it to completion.
type Workflow struct {
	ID          string
	Plan        *plan.Plan
	CurrentStep string
	Results     []StepResult
	CreatedAt   time.Time
}

// Status reports the underlying plan's run status.
func (w *Workflow) Status() RunStatus {
	return w.Plan.Status
}

// newWorkflow wraps a freshly planned Plan in a Workflow.
func newWorkflow(p *plan.Plan) *Workflow {
	return &Workflow{
		ID:        p.ID,
		Plan:      p,
		CreatedAt: time.Now(),
	}
}

// recordResult appends taskID's outcome to the workflow's per-step results
// list, indexed by its position in the Plan's ExecutionOrder.
func (w *Workflow) recordResult(taskID, agentID, content string, status plan.Status) {
	idx := -1
	for i, id := range w.Plan.ExecutionOrder {
		if id == taskID {
			idx = i
			break
		}
	}
	w.Results = append(w.Results, StepResult{
		StepIndex: idx,
		TaskID:    taskID,
		AgentID:   agentID,
		Content:   content,
		Status:    status,
	})
}
