package planner

import (
	"sort"
	"sync"

	"github.com/agentmesh/core/plan"
)

// store is a goroutine-safe in-memory index of Plans keyed by plan id,
// mirroring the registry pattern used in bus/registry.go.
type store struct {
	mu   sync.RWMutex
	byID map[string]*plan.Plan
}

func newStore() *store {
	return &store{byID: make(map[string]*plan.Plan)}
}

func (s *store) put(p *plan.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
}

func (s *store) get(id string) (*plan.Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// list returns all plans ordered most-recently-created first.
func (s *store) list() []*plan.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*plan.Plan, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
