package dispatcher

import (
	"context"
	"strings"
)

// highRelevanceThreshold is the importance score at or above which a memory
// record is considered "highly relevant"; the memory-used shortcut only
// applies to a record that reaches it.
const highRelevanceThreshold = 0.8

// enrichmentThreshold is the permissive threshold used for the initial
// memory search that feeds context enrichment, distinct from the stricter
// highRelevanceThreshold used to decide whether memory should override
// classification.
const enrichmentThreshold = 0.15

// MemoryRecord is one result returned by a MemoryProvider search (spec §6
// "Memory provider").
type MemoryRecord struct {
	ID         string
	Content    string
	Importance float64
	MemoryType string
	Metadata   map[string]any
}

// MemoryProvider is the narrow interface the Dispatcher consults for
// context enrichment. Concrete memory/knowledge stores are out of scope for
// this module (spec Non-goals); callers wire in their own implementation.
type MemoryProvider interface {
	Search(ctx context.Context, query string, limit int, threshold float64, memoryType string) ([]MemoryRecord, error)
}

// memoryEnrichment is the result of consulting memory for one query.
type memoryEnrichment struct {
	records []MemoryRecord
	used    bool
}

func (d *Dispatcher) enrichWithMemory(ctx context.Context, query string) memoryEnrichment {
	if d.memory == nil {
		return memoryEnrichment{}
	}
	records, err := d.memory.Search(ctx, query, 5, enrichmentThreshold, "")
	if err != nil {
		d.tel.Logger.Warn(ctx, "dispatcher: memory search failed", "error", err.Error())
		return memoryEnrichment{}
	}
	return memoryEnrichment{records: records, used: len(records) > 0}
}

// highlyRelevant reports whether any enriched record clears
// highRelevanceThreshold.
func (e memoryEnrichment) highlyRelevant() bool {
	for _, r := range e.records {
		if r.Importance >= highRelevanceThreshold {
			return true
		}
	}
	return false
}

// shortcutBodyLimit bounds how long a memory record's content can be and
// still be returned verbatim; longer records are deferred to the memory
// agent instead (spec §4.5: "a sufficiently long body" disqualifies the
// shortcut rather than enabling it — a long record needs the memory agent's
// full context handling, not a bare content dump).
const shortcutBodyLimit = 500

// shortcutContent detects the "Memory-used shortcut" (spec §4.5): a single
// highly relevant record that directly answers the query. When the record
// carries explicit "Question:"/"Answer:" markers only the answer portion is
// returned; a record longer than shortcutBodyLimit is not shortcut at all
// (it is routed to the memory agent so it gets full handling). Returns
// ok=false when no shortcut applies.
func shortcutContent(e memoryEnrichment) (string, bool) {
	if len(e.records) != 1 || e.records[0].Importance < highRelevanceThreshold {
		return "", false
	}
	content := e.records[0].Content
	if len(content) > shortcutBodyLimit {
		return "", false
	}
	if idx := strings.Index(content, "Answer:"); idx >= 0 && strings.Contains(content, "Question:") {
		return strings.TrimSpace(content[idx+len("Answer:"):]), true
	}
	return content, true
}
