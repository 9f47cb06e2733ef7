// Package modelbackend provides pluggable planner.Backend implementations
// backed by real LLM providers (Anthropic, OpenAI, AWS Bedrock). Each
// adapter sends the same planning prompt and returns the raw model text
// verbatim; planner.Planner is responsible for parsing/validating the
// response, so these adapters stay narrow translation layers, mirroring the
// teacher's features/model/{anthropic,openai,bedrock} client adapters.
package modelbackend

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model to decompose a task description into a
// structured plan, matching the schema planner.schemaValidator enforces.
const systemPrompt = `You are a task planning assistant. Given a task description and a list of
available agent capabilities, decompose the task into 1-8 dependent steps.

Respond with ONLY a JSON object of this exact shape, no surrounding prose:

{"tasks":[{"id":"t1","description":"...","capabilities":["capability_name"],"dependencies":[]}]}

Each task id must be unique. Dependencies must reference ids of other tasks in the same response.
Only use capabilities from the provided list when possible.`

// userPrompt renders the task description and available capabilities into
// the user-turn content sent to the model.
func userPrompt(description string, availableCapabilities []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", description)
	if len(availableCapabilities) > 0 {
		fmt.Fprintf(&b, "Available capabilities: %s\n", strings.Join(availableCapabilities, ", "))
	}
	return b.String()
}
