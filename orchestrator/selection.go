package orchestrator

import (
	"sort"

	"github.com/agentmesh/core/bus"
)

// StatefulAgent is an optional capability an Agent may implement to expose
// its current lifecycle state for selection scoring. Agents that do not
// implement it are treated as idle (spec §4.4: "agents that do not report
// state are assumed available").
type StatefulAgent interface {
	State() bus.State
}

// domainTag classifies an agent by its dominant capability domain for the
// tie-break ordering and domain bonus (spec §4.4).
type domainTag int

const (
	domainOther domainTag = iota
	domainEcho
	domainMemory
	domainSystem
	domainCode
)

// tagOf inspects an agent's advertised capabilities and returns its
// dominant domain. Order of checks matters: code and system are checked
// before memory/echo so an agent advertising several capabilities still
// gets the most specific tag.
func tagOf(capabilities []string) domainTag {
	has := func(want string) bool {
		for _, c := range capabilities {
			if c == want {
				return true
			}
		}
		return false
	}
	switch {
	case has("code_generation"):
		return domainCode
	case has("system_operations"):
		return domainSystem
	case has("memory_search"), has("memory"):
		return domainMemory
	case has("echo"):
		return domainEcho
	default:
		return domainOther
	}
}

// candidate pairs a registered agent with its selection score for one task.
type candidate struct {
	agent bus.Agent
	score int
	tag   domainTag
}

// selectionInput bundles the context selectAgent needs to score candidates
// for a single task (spec §4.4).
type selectionInput struct {
	requiredCapabilities []string
	preferredAgent       string
}

// selectAgent scores every registered agent against in and returns the
// highest-scoring one. Ties are broken by domain precedence
// (code > system > memory > echo) and then by agent id for determinism.
// Returns ErrNoAgentAvailable if no candidate scores above zero and no
// agent advertises the "general" or "default" fallback capability.
func selectAgent(agents []bus.Agent, in selectionInput) (bus.Agent, error) {
	candidates := make([]candidate, 0, len(agents))
	for _, a := range agents {
		score := scoreAgent(a, in)
		candidates = append(candidates, candidate{agent: a, score: score, tag: tagOf(a.Capabilities())})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].tag != candidates[j].tag {
			return candidates[i].tag > candidates[j].tag
		}
		return candidates[i].agent.AgentID() < candidates[j].agent.AgentID()
	})

	if len(candidates) > 0 && candidates[0].score > 0 {
		return candidates[0].agent, nil
	}

	// No capability-based match scored positively; fall back to any agent
	// advertising a general-purpose capability.
	for _, c := range candidates {
		for _, cap := range c.agent.Capabilities() {
			if cap == "general" || cap == "default" {
				return c.agent, nil
			}
		}
	}

	return nil, bus.ErrNoAgentAvailable
}

// scoreAgent computes the raw selection score for a single agent against a
// task's requirements, per the weights in spec §4.4:
//
//	+5  exact capability-set match (agent's capabilities equal required set)
//	+3  per required capability the agent advertises
//	+1  once, when the agent advertises some required capabilities and also
//	    others beyond them (partial match bonus)
//	+30 agent is idle, -20 agent is processing (busy)
//	+25 agent id matches the task's preferred agent
//	+15 domain bonus when the agent's dominant domain is code or system
func scoreAgent(a bus.Agent, in selectionInput) int {
	caps := a.Capabilities()
	capSet := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		capSet[c] = struct{}{}
	}

	score := 0

	if sameCapabilitySet(capSet, in.requiredCapabilities) {
		score += 5
	}

	matched := 0
	for _, req := range in.requiredCapabilities {
		if _, ok := capSet[req]; ok {
			score += 3
			matched++
		}
	}
	if matched > 0 && matched < len(caps) {
		score += 1
	}

	switch state := agentState(a); state {
	case bus.StateIdle:
		score += 30
	case bus.StateProcessing:
		score -= 20
	}

	if in.preferredAgent != "" && in.preferredAgent == a.AgentID() {
		score += 25
	}

	if tag := tagOf(caps); tag == domainCode || tag == domainSystem {
		score += 15
	}

	return score
}

// agentState returns a's reported state via the optional StatefulAgent
// interface, defaulting to idle.
func agentState(a bus.Agent) bus.State {
	if sa, ok := a.(StatefulAgent); ok {
		return sa.State()
	}
	return bus.StateIdle
}

func sameCapabilitySet(have map[string]struct{}, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
