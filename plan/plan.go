package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RunStatus is a Plan's overall lifecycle state.
type RunStatus string

// The set of plan run statuses.
const (
	RunPlanned   RunStatus = "planned"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Plan is an ordered, acyclic collection of Tasks derived from a task
// description (spec C4). ExecutionOrder is always a valid topological order
// of Tasks under their dependency edges; a Plan with a dependency cycle is
// rejected at construction and never observed by callers.
type Plan struct {
	ID             string
	OriginalTask   string
	Tasks          map[string]*Task
	ExecutionOrder []string
	Status         RunStatus
	CreatedAt      time.Time
	StartedAt      time.Time
	EndedAt        time.Time
	Context        map[string]any
}

// New constructs a Plan from tasks, validating that task ids are unique, that
// every dependency refers to a task present in the plan, and that the
// dependency relation is acyclic. On success ExecutionOrder holds a valid
// topological order.
func New(originalTask string, tasks []Task, ctx map[string]any) (*Plan, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("plan: at least one task is required")
	}
	if len(tasks) > 8 {
		return nil, fmt.Errorf("plan: at most 8 tasks are allowed, got %d", len(tasks))
	}

	byID := make(map[string]*Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("plan: duplicate task id %q", t.ID)
		}
		byID[t.ID] = &t
	}
	for _, t := range byID {
		for dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("plan: task %s depends on unknown task %q", t.ID, dep)
			}
		}
	}

	order, err := topoSort(byID)
	if err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = make(map[string]any)
	}
	return &Plan{
		ID:             uuid.NewString(),
		OriginalTask:   originalTask,
		Tasks:          byID,
		ExecutionOrder: order,
		Status:         RunPlanned,
		CreatedAt:      time.Now(),
		Context:        ctx,
	}, nil
}

// topoSort computes a deterministic topological order of tasks under their
// dependency edges, or an error describing a cycle.
func topoSort(tasks map[string]*Task) ([]string, error) {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic tie-breaking among independent tasks

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))
	order := make([]string, 0, len(tasks))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("plan: dependency cycle detected involving task %q (path: %v)", id, append(append([]string(nil), stack...), id))
		}
		color[id] = gray
		stack = append(stack, id)
		deps := make([]string, 0, len(tasks[id].Dependencies))
		for d := range tasks[id].Dependencies {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// ValidTopologicalOrder reports whether order is a valid topological order
// of p.Tasks: every task appears exactly once, and no task precedes any of
// its dependencies. Used by tests to assert the construction invariant.
func (p *Plan) ValidTopologicalOrder(order []string) bool {
	if len(order) != len(p.Tasks) {
		return false
	}
	position := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := p.Tasks[id]; !ok {
			return false
		}
		position[id] = i
	}
	for id, t := range p.Tasks {
		for dep := range t.Dependencies {
			if position[dep] >= position[id] {
				return false
			}
		}
	}
	return true
}

// UpdateTask mutates the referenced task's status, rejecting illegal status
// transitions (spec C4/C5). result is required when transitioning to
// COMPLETED (any errMsg is discarded); errMsg is required when transitioning
// to FAILED (any result is discarded).
func (p *Plan) UpdateTask(taskID string, next Status, result, errMsg, assignedAgent string) error {
	t, ok := p.Tasks[taskID]
	if !ok {
		return fmt.Errorf("plan %s: unknown task %q", p.ID, taskID)
	}
	return t.transition(next, result, errMsg, assignedAgent)
}

// ReadyTasks returns the ids, in ExecutionOrder, of PENDING tasks all of
// whose dependencies have already reached COMPLETED.
func (p *Plan) ReadyTasks() []string {
	var ready []string
	for _, id := range p.ExecutionOrder {
		t := p.Tasks[id]
		if t.Status != StatusPending {
			continue
		}
		if p.dependenciesCompleted(t) {
			ready = append(ready, id)
		}
	}
	return ready
}

// dependenciesCompleted reports whether every dependency of t has status
// COMPLETED.
func (p *Plan) dependenciesCompleted(t *Task) bool {
	for dep := range t.Dependencies {
		if p.Tasks[dep].Status != StatusCompleted {
			return false
		}
	}
	return true
}

// DependenciesFailedOrSkipped reports whether any dependency of the task
// with id is FAILED or SKIPPED, meaning the task itself must be SKIPPED
// rather than executed (spec §4.4: "a step whose dependencies include a
// FAILED step is SKIPPED").
func (p *Plan) DependenciesFailedOrSkipped(id string) bool {
	t := p.Tasks[id]
	for dep := range t.Dependencies {
		switch p.Tasks[dep].Status {
		case StatusFailed, StatusSkipped:
			return true
		}
	}
	return false
}

// AllTerminal reports whether every task has reached a terminal status
// (COMPLETED, FAILED or SKIPPED).
func (p *Plan) AllTerminal() bool {
	for _, t := range p.Tasks {
		if t.Status != StatusCompleted && t.Status != StatusFailed && t.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// Start marks the plan running and records StartedAt, if not already set.
func (p *Plan) Start() {
	if p.Status == RunPlanned {
		p.Status = RunRunning
		p.StartedAt = time.Now()
	}
}

// Finish marks the plan with the given terminal status and records EndedAt.
func (p *Plan) Finish(status RunStatus) {
	p.Status = status
	p.EndedAt = time.Now()
}
