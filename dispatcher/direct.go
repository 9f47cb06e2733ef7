package dispatcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentmesh/core/bus"
)

var (
	countPattern = regexp.MustCompile(`count to (\d+)`)
	mathPattern  = regexp.MustCompile(`(\d+)\s*([+\-*/])\s*(\d+)`)
)

var identityPatterns = []string{
	"who are you", "what's your name", "what is your name", "introduce yourself",
	"identify yourself", "are you an ai", "are you an assistant",
}

var capabilityPatterns = []string{
	"what can you do", "what are your capabilities", "your abilities",
	"your functionalities", "how can you help me", "what do you know how to do",
	"what are you capable of", "what is your purpose",
}

var farewellPatterns = []string{"bye", "see you", "farewell", "talk later"}

var frustrationPatterns = []string{
	"frustrat", "doesn't work", "does not work", "i don't understand",
	"i do not understand", "disappointed", "i don't like", "not working",
}

var confusionPatterns = []string{
	"i'm confused", "im confused", "i don't know what to do", "what are my options",
	"other options", "another option", "something else",
}

// assistantName is the identity this Dispatcher answers "who are you"
// queries with.
const assistantName = "Assistant"

// directResponse implements the in-process deterministic response table
// (spec §4.5 step 3): greetings/farewells, counting, arithmetic, identity,
// capabilities summary, empathetic acknowledgement, and reformulation
// suggestion for anything unrecognized.
func (d *Dispatcher) directResponse(query, normalized string) bus.Response {
	if m := countPattern.FindStringSubmatch(normalized); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 100 {
			nums := make([]string, n)
			for i := 1; i <= n; i++ {
				nums[i-1] = strconv.Itoa(i)
			}
			return bus.Response{Content: strings.Join(nums, ", "), Status: bus.StatusSuccess}
		}
	}

	if m := mathPattern.FindStringSubmatch(normalized); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		if result, ok := evalArithmetic(a, m[2], b); ok {
			return bus.Response{
				Content: fmt.Sprintf("The result of %d %s %d is %s", a, m[2], b, result),
				Status:  bus.StatusSuccess,
			}
		}
	}

	if matchAny(normalized, identityPatterns) {
		return bus.Response{
			Content: fmt.Sprintf("I'm %s, your virtual assistant. I coordinate specialized agents to help with your tasks.", assistantName),
			Status:  bus.StatusSuccess,
		}
	}

	if matchAny(normalized, capabilityPatterns) {
		return bus.Response{
			Content: fmt.Sprintf("I can help with: %s. What would you like to start with?", d.capabilitiesSummary()),
			Status:  bus.StatusSuccess,
		}
	}

	if matchAny(normalized, conversationalPatterns) {
		content := fmt.Sprintf("Hello! I'm %s. How can I help you today?", assistantName)
		if matchAny(normalized, farewellPatterns) {
			content = "Goodbye! Come back whenever you need help."
		}
		return bus.Response{Content: content, Status: bus.StatusSuccess}
	}

	if matchAny(normalized, frustrationPatterns) {
		return bus.Response{
			Content: "I understand this is frustrating. Could you tell me specifically what you expected instead?",
			Status:  bus.StatusSuccess,
			Metadata: map[string]any{"response_type": "empathetic"},
		}
	}

	if matchAny(normalized, confusionPatterns) {
		return bus.Response{
			Content: "Here's what I can do: generate or explain code, answer knowledge questions, run system tasks, or coordinate a multi-step workflow. Try rephrasing your request around one of those.",
			Status:  bus.StatusSuccess,
			Metadata: map[string]any{"response_type": "options_menu"},
		}
	}

	return bus.Response{
		Content:  fmt.Sprintf("I'm not sure I understood that. Could you rephrase: %q?", query),
		Status:   bus.StatusSuccess,
		Metadata: map[string]any{"action": "suggest_reformulation"},
	}
}

func evalArithmetic(a int, op string, b int) (string, bool) {
	switch op {
	case "+":
		return strconv.Itoa(a + b), true
	case "-":
		return strconv.Itoa(a - b), true
	case "*":
		return strconv.Itoa(a * b), true
	case "/":
		if b == 0 {
			return "", false
		}
		return strconv.FormatFloat(float64(a)/float64(b), 'g', -1, 64), true
	default:
		return "", false
	}
}
