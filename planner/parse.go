package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentmesh/core/plan"
)

// textualStepPattern matches a numbered step line of the form:
//
//	"1. [code_generation] write a fibonacci function"
//	"2. [system_operations] create the output directory (depends on: 1)"
//
// The capability tag is optional; an untagged step gets no required
// capabilities. A trailing "(depends on: n[, m...])" clause records
// dependencies on earlier step numbers.
var textualStepPattern = regexp.MustCompile(`(?m)^\s*(\d+)\.\s*(?:\[([a-zA-Z0-9_]+)\]\s*)?(.+?)\s*$`)
var dependsOnPattern = regexp.MustCompile(`\(depends on:\s*([\d,\s]+)\)\s*$`)

// parseTextualPlan parses a free-text numbered-step response from a Backend
// into Tasks, assigning task ids "t<n>" matching the step numbers so that
// dependency references resolve directly.
func parseTextualPlan(text string) ([]plan.Task, error) {
	matches := textualStepPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no numbered steps found in backend response", ErrInvalidPlan)
	}

	tasks := make([]plan.Task, 0, len(matches))
	for _, m := range matches {
		stepNum, capability, rest := m[1], m[2], m[3]

		var deps []string
		if dm := dependsOnPattern.FindStringSubmatch(rest); dm != nil {
			rest = strings.TrimSpace(dependsOnPattern.ReplaceAllString(rest, ""))
			for _, part := range strings.Split(dm[1], ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					deps = append(deps, "t"+part)
				}
			}
		}

		var capabilities []string
		if capability != "" {
			capabilities = []string{capability}
		}

		id := "t" + stepNum
		description := strings.TrimSpace(rest)
		if description == "" {
			return nil, fmt.Errorf("%w: step %s has an empty description", ErrInvalidPlan, stepNum)
		}
		tasks = append(tasks, plan.NewTask(id, description, capabilities, deps))
	}
	return tasks, nil
}

// structuredToTasks converts a schema-validated structuredPlan into Tasks.
func structuredToTasks(sp structuredPlan) []plan.Task {
	tasks := make([]plan.Task, 0, len(sp.Tasks))
	for _, st := range sp.Tasks {
		tasks = append(tasks, plan.NewTask(st.ID, st.Description, st.Capabilities, st.Dependencies))
	}
	return tasks
}
