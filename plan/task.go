// Package plan implements the typed Plan/Task data model (spec C4): an
// ordered, acyclic collection of Tasks derived from a task description, with
// a status state machine and a dependency DAG validated at construction.
package plan

import "fmt"

// Status is a Task's position in its state machine.
type Status string

// The task status values and their legal transitions (spec C4):
// PENDING -> IN_PROGRESS -> {COMPLETED, FAILED}; a FAILED task whose
// dependencies have not completed is SKIPPED instead of FAILED.
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusSkipped    Status = "SKIPPED"
)

// CanTransition reports whether moving from s to next is a legal state
// transition. SKIPPED and terminal states (COMPLETED, FAILED) accept no
// further transitions.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusSkipped
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed || next == StatusSkipped
	default: // COMPLETED, FAILED, SKIPPED are terminal
		return false
	}
}

// Task is a single unit of work within a Plan (spec C4).
type Task struct {
	ID                   string
	Description          string
	RequiredCapabilities map[string]struct{}
	Dependencies         map[string]struct{}
	AssignedAgent        string
	Status               Status
	Result               string
	Error                string
}

// NewTask constructs a PENDING Task with the given required capabilities and
// dependency task ids.
func NewTask(id, description string, requiredCapabilities, dependencies []string) Task {
	return Task{
		ID:                   id,
		Description:          description,
		RequiredCapabilities: toSet(requiredCapabilities),
		Dependencies:         toSet(dependencies),
		Status:               StatusPending,
	}
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

// HasCapability reports whether c is among the task's required capabilities.
func (t Task) HasCapability(c string) bool {
	_, ok := t.RequiredCapabilities[c]
	return ok
}

// transition moves t to next, enforcing the status state machine and the
// result/error invariants: Result is set iff status is COMPLETED, Error is
// set iff status is FAILED.
func (t *Task) transition(next Status, result, errMsg, assignedAgent string) error {
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("task %s: illegal status transition %s -> %s", t.ID, t.Status, next)
	}
	switch next {
	case StatusCompleted:
		if result == "" {
			return fmt.Errorf("task %s: COMPLETED requires a non-empty result", t.ID)
		}
		t.Result = result
		t.Error = ""
	case StatusFailed:
		if errMsg == "" {
			return fmt.Errorf("task %s: FAILED requires a non-empty error", t.ID)
		}
		t.Error = errMsg
		t.Result = ""
	default:
		// IN_PROGRESS / SKIPPED carry neither result nor error.
		t.Result = ""
		t.Error = ""
	}
	if assignedAgent != "" {
		t.AssignedAgent = assignedAgent
	}
	t.Status = next
	return nil
}
