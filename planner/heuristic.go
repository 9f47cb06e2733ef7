package planner

import (
	"strings"

	"github.com/agentmesh/core/plan"
)

// heuristicPlan builds the deterministic single-task fallback plan used
// whenever no Backend is configured, the configured Backend errs, or its
// response fails schema validation (spec §4.3, §7 invalid_plan handling).
// It keyword-matches the task description against two capability buckets
// (code_generation, system_operations) and otherwise assigns
// general_processing.
func heuristicPlan(description string) []plan.Task {
	lower := strings.ToLower(description)
	capability := "general_processing"
	switch {
	case containsAny(lower, "code", "program", "function", "script", "bug"):
		capability = "code_generation"
	case containsAny(lower, "file", "directory", "folder", "disk"):
		capability = "system_operations"
	}
	return []plan.Task{
		plan.NewTask("t1", description, []string{capability}, nil),
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
