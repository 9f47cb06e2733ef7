package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/assert"
	"testing"
)

// stubAgent is a minimal Agent used across bus tests.
type stubAgent struct {
	id    string
	caps  []string
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, query string, msgCtx Context) (Response, error)
}

func newStubAgent(id string, caps ...string) *stubAgent {
	return &stubAgent{id: id, caps: caps}
}

func (a *stubAgent) AgentID() string        { return a.id }
func (a *stubAgent) Name() string           { return a.id }
func (a *stubAgent) Description() string    { return fmt.Sprintf("stub agent %s", a.id) }
func (a *stubAgent) Capabilities() []string { return a.caps }

func (a *stubAgent) Process(ctx context.Context, query string, msgCtx Context) (Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.fn != nil {
		return a.fn(ctx, query, msgCtx)
	}
	return Response{Content: "echo: " + query, Status: StatusSuccess}, nil
}

func (a *stubAgent) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransition(StateProcessing))
	assert.True(t, StateProcessing.CanTransition(StateIdle))
	assert.True(t, StateProcessing.CanTransition(StateError))
	assert.True(t, StateError.CanTransition(StateIdle))

	assert.False(t, StateIdle.CanTransition(StateError))
	assert.False(t, StateError.CanTransition(StateProcessing))
	assert.False(t, StateIdle.CanTransition(StateIdle))
}
