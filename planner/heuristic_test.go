package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicPlanCategorizesByKeyword(t *testing.T) {
	cases := []struct {
		description string
		capability  string
	}{
		{"write a python function to sort a list", "code_generation"},
		{"fix the bug in this script", "code_generation"},
		{"list every file in the downloads directory", "system_operations"},
		{"clean up the temp folder", "system_operations"},
		{"summarize today's weather", "general_processing"},
	}
	for _, c := range cases {
		tasks := heuristicPlan(c.description)
		if assert.Len(t, tasks, 1) {
			assert.True(t, tasks[0].HasCapability(c.capability), "description %q: expected capability %s, got %v", c.description, c.capability, tasks[0].RequiredCapabilities)
		}
	}
}
