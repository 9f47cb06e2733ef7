package dispatcher

import "strings"

// target is the Dispatcher's routing decision for a query (spec §4.5 step 2).
type target string

const (
	targetDirect       target = "direct"
	targetCode         target = "code"
	targetSystem       target = "system"
	targetMemory       target = "memory"
	targetOrchestrator target = "orchestrator"
)

var conversationalPatterns = []string{
	"hello", "hi there", "good morning", "good afternoon", "good evening",
	"hey", "greetings", "what's up", "howdy", "bye", "goodbye", "see you",
	"farewell", "talk later", "how are you", "how's it going", "thanks",
	"thank you", "much appreciated",
}

var emotionalPatterns = []string{
	"i feel", "i'm frustrated", "im frustrated", "this is frustrating",
	"frustration", "doesn't work", "does not work", "i don't understand",
	"i do not understand", "i don't know what to do", "help me", "i need help",
	"how do you feel", "what do you feel", "are you feeling", "my experience",
}

var codeGenerationVerbs = []string{"create", "generate", "write", "implement", "build", "develop", "code"}
var codeNouns = []string{"program", "code", "function", "script", "class", "method", "application", "app", "algorithm", "module", "library", "source code"}
var languageNames = []string{"python", "javascript", "java", "c++", "typescript", "html", "css", "php", "ruby", "golang", "rust", "swift", "bash"}

var explanationPatterns = []string{"what is", "explain", "describe", "definition of", "meaning of", "tell me about"}

var hardwareTerms = []string{"ram", "cpu", "processor", "disk", "storage", "hardware", "operating system", "windows", "linux", "macos", "network", "driver"}
var systemVerbs = []string{"run", "open", "close", "configure", "install", "uninstall", "update", "restart", "shut down"}
var systemPatterns = []string{"list files", "show the contents", "create a folder", "delete the file", "directory", "terminal", "command", "file path"}

var orchestrationCues = []string{"step by step", "workflow", "coordinate", "multiple steps", "and then", "first", "finally", "work together"}

// scoringPatterns backs the keyword-scoring fallback (spec §4.5 step 2,
// last bullet): whole-word match +2, substring match +1.
var scoringPatterns = map[target][]string{
	targetCode:   append(append([]string{}, codeNouns...), languageNames...),
	targetSystem: append(append(append([]string{}, hardwareTerms...), systemPatterns...), "file", "path", "process"),
	targetMemory: {"information", "knowledge", "data", "remember", "forget", "learn", "search", "find", "history", "science", "math", "philosophy"},
}

// priorityOrder is the tie-break order for the scoring fallback: code beats
// system beats memory.
var priorityOrder = []target{targetCode, targetSystem, targetMemory}

func classify(normalized string, hasOrchestrator bool) target {
	if matchAny(normalized, conversationalPatterns) {
		return targetDirect
	}
	if matchAny(normalized, emotionalPatterns) {
		return targetDirect
	}
	if isCodeGenerationRequest(normalized) {
		return targetCode
	}
	if matchAny(normalized, explanationPatterns) && matchAny(normalized, languageNames) {
		return targetMemory
	}
	if matchAny(normalized, hardwareTerms) || matchAny(normalized, systemPatterns) || matchAny(normalized, systemVerbs) {
		return targetSystem
	}
	if hasOrchestrator && matchAny(normalized, orchestrationCues) {
		return targetOrchestrator
	}
	return scoreFallback(normalized)
}

func isCodeGenerationRequest(normalized string) bool {
	hasVerb := matchAny(normalized, codeGenerationVerbs)
	if !hasVerb {
		return false
	}
	return matchAny(normalized, codeNouns) || matchAny(normalized, languageNames)
}

// scoreFallback scores {code, system, memory} by keyword presence, applies
// the "memory" disambiguation rule (hardware context demotes a semantic
// memory match in favor of system), and breaks ties by priorityOrder. A
// non-positive top score falls through to direct handling.
func scoreFallback(normalized string) target {
	scores := map[target]int{targetCode: 0, targetSystem: 0, targetMemory: 0}
	for tgt, words := range scoringPatterns {
		for _, w := range words {
			switch {
			case wholeWordMatch(normalized, w):
				scores[tgt] += 2
			case strings.Contains(normalized, w):
				scores[tgt] += 1
			}
		}
	}

	if strings.Contains(normalized, "memory") {
		switch {
		case matchAny(normalized, []string{"remember", "save", "forget", "information"}):
			scores[targetMemory] += 3
		case matchAny(normalized, []string{"system", "computer", "available", "free"}):
			scores[targetSystem] += 3
			scores[targetMemory]--
		}
	}

	best := targetDirect
	max := 0
	for _, tgt := range priorityOrder {
		if scores[tgt] > max {
			max = scores[tgt]
			best = tgt
		}
	}
	if max <= 0 {
		return targetDirect
	}
	return best
}
