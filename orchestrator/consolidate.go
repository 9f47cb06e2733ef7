package orchestrator

import (
	"fmt"
	"strings"

	"github.com/agentmesh/core/plan"
)

const stepSummaryDescLimit = 60

// Consolidate builds the workflow's final response from its Workflow.Results
// (spec §4.4 "Result consolidation", spec §3 Workflow.results): the original
// task, a one-line summary per step, then the per-step contents
// concatenated. Steps tagged "code" (by dominant capability domain) are
// emitted first; non-code "echo" outputs are suppressed unless they are the
// only output produced. A task that never executed (e.g. SKIPPED) has no
// entry in Results and is summarized from the Plan alone.
func Consolidate(w *Workflow) string {
	p := w.Plan

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", p.OriginalTask)

	for i, id := range p.ExecutionOrder {
		t := p.Tasks[id]
		b.WriteString(stepSummaryLine(i+1, t))
		b.WriteString("\n")
	}

	contents := orderedStepContents(w.Results, p)
	for _, c := range contents {
		b.WriteString("\n")
		b.WriteString(c)
	}

	return b.String()
}

// stepSummaryLine renders "- Step N: <truncated desc> (<status>, agent: <id>)".
func stepSummaryLine(n int, t *plan.Task) string {
	desc := t.Description
	if len(desc) > stepSummaryDescLimit {
		desc = desc[:stepSummaryDescLimit] + "..."
	}
	agent := t.AssignedAgent
	if agent == "" {
		agent = "-"
	}
	return fmt.Sprintf("- Step %d: %s (%s, agent: %s)", n, desc, t.Status, agent)
}

// orderedStepContents returns the non-empty per-step content recorded in
// results, in execution order, with code-tagged steps moved first. A step
// whose agent domain is echo is dropped unless it is the only content
// produced by the whole plan.
func orderedStepContents(results []StepResult, p *plan.Plan) []string {
	type stepContent struct {
		tag     domainTag
		content string
	}

	var all []stepContent
	for _, r := range results {
		if r.Content == "" {
			continue
		}
		t := p.Tasks[r.TaskID]
		all = append(all, stepContent{tag: capabilityDomain(t), content: r.Content})
	}

	var code, other, echo []string
	for _, sc := range all {
		switch sc.tag {
		case domainCode:
			code = append(code, sc.content)
		case domainEcho:
			echo = append(echo, sc.content)
		default:
			other = append(other, sc.content)
		}
	}

	if len(code) == 0 && len(other) == 0 {
		// Echo output is only content available: keep it.
		return echo
	}
	return append(code, other...)
}

// capabilityDomain classifies a task by its required capabilities using the
// same domain tagging as agent selection.
func capabilityDomain(t *plan.Task) domainTag {
	caps := make([]string, 0, len(t.RequiredCapabilities))
	for c := range t.RequiredCapabilities {
		caps = append(caps, c)
	}
	return tagOf(caps)
}
