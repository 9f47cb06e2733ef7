package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/core/bus"
)

// stubAgent is a minimal bus.Agent used across dispatcher tests.
type stubAgent struct {
	id    string
	caps  []string
	fn    func(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error)
	calls int
}

func newStubAgent(id string, caps ...string) *stubAgent {
	return &stubAgent{id: id, caps: caps}
}

func (a *stubAgent) AgentID() string        { return a.id }
func (a *stubAgent) Name() string           { return a.id }
func (a *stubAgent) Description() string    { return fmt.Sprintf("stub agent %s", a.id) }
func (a *stubAgent) Capabilities() []string { return a.caps }

func (a *stubAgent) Process(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error) {
	a.calls++
	if a.fn != nil {
		return a.fn(ctx, query, msgCtx)
	}
	return bus.Response{Content: "echo: " + query, Status: bus.StatusSuccess}, nil
}

func startedBus(t *testing.T) *bus.Bus {
	t.Helper()
	b := bus.New()
	b.Start(context.Background())
	t.Cleanup(b.Stop)
	return b
}

// stubMemory is a MemoryProvider returning a fixed set of records.
type stubMemory struct {
	records []MemoryRecord
	err     error
}

func (m *stubMemory) Search(ctx context.Context, query string, limit int, threshold float64, memoryType string) ([]MemoryRecord, error) {
	return m.records, m.err
}

// stubOrchestrator is an OrchestratorClient stub.
type stubOrchestrator struct {
	content string
	err     error
	calls   int
}

func (o *stubOrchestrator) ExecuteTask(ctx context.Context, description string, taskContext map[string]any) (string, error) {
	o.calls++
	return o.content, o.err
}

// Scenario 1 (spec §8): a generic catch-all agent registered under "echo"
// handles an unclassifiable conversational query end to end.
func TestProcessEchoRoundTrip(t *testing.T) {
	b := startedBus(t)
	echo := newStubAgent("echo-agent", "echo")
	b.RegisterAgent(context.Background(), echo)

	d := New(b)
	resp, err := d.Process(context.Background(), "Echo: hello", nil)

	require.NoError(t, err)
	assert.Equal(t, bus.StatusSuccess, resp.Status)
	assert.Equal(t, "echo: Echo: hello", resp.Content)
	assert.Equal(t, "echo", resp.Metadata["agent_used"])
	assert.Equal(t, 1, echo.calls)
}

// Scenario 2 (spec §8): a code-generation request is delegated to the agent
// registered under the "code" capability.
func TestProcessDelegatesCodeGeneration(t *testing.T) {
	b := startedBus(t)
	coder := newStubAgent("coder", "code")
	coder.fn = func(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error) {
		return bus.Response{Content: "def fib(n): ...", Status: bus.StatusSuccess}, nil
	}
	b.RegisterAgent(context.Background(), coder)

	d := New(b)
	resp, err := d.Process(context.Background(), "Write a python function to compute fibonacci", nil)

	require.NoError(t, err)
	assert.Equal(t, bus.StatusSuccess, resp.Status)
	assert.Equal(t, "def fib(n): ...", resp.Content)
	assert.Equal(t, "code", resp.Metadata["agent_used"])
	assert.Equal(t, 1, coder.calls)
}

// Scenario 6 (spec §8): a single highly relevant, short memory record is
// returned directly without delegating anywhere.
func TestProcessMemoryShortcut(t *testing.T) {
	b := startedBus(t)
	d := New(b, WithMemoryProvider(&stubMemory{records: []MemoryRecord{
		{ID: "m1", Content: "Python is a programming language.", Importance: 0.9},
	}}))

	resp, err := d.Process(context.Background(), "What is Python?", nil)

	require.NoError(t, err)
	assert.Equal(t, bus.StatusSuccess, resp.Status)
	assert.Equal(t, "Python is a programming language.", resp.Content)
	assert.Equal(t, true, resp.Metadata["direct_memory_response"])
}

// A memory record carrying explicit Question:/Answer: markers is split so
// only the answer portion is returned.
func TestProcessMemoryShortcutSplitsAnswerMarker(t *testing.T) {
	b := startedBus(t)
	d := New(b, WithMemoryProvider(&stubMemory{records: []MemoryRecord{
		{ID: "m1", Content: "Question: What is Go? Answer: A compiled language.", Importance: 0.95},
	}}))

	resp, err := d.Process(context.Background(), "What is Go?", nil)

	require.NoError(t, err)
	assert.Equal(t, "A compiled language.", resp.Content)
}

// A memory record longer than shortcutBodyLimit defers to the memory agent
// instead of being returned verbatim.
func TestProcessMemoryShortcutDefersOnLongBody(t *testing.T) {
	b := startedBus(t)
	mem := newStubAgent("memory-agent", "memory")
	mem.fn = func(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error) {
		return bus.Response{Content: "handled by memory agent", Status: bus.StatusSuccess}, nil
	}
	b.RegisterAgent(context.Background(), mem)

	longContent := strings.Repeat("x", shortcutBodyLimit+1)
	d := New(b, WithMemoryProvider(&stubMemory{records: []MemoryRecord{
		{ID: "m1", Content: longContent, Importance: 0.95},
	}}))

	resp, err := d.Process(context.Background(), "remember some information about this", nil)

	require.NoError(t, err)
	assert.NotEqual(t, longContent, resp.Content)
}

// A code-generation request is never short-circuited by the memory
// shortcut, even when a highly relevant record is present.
func TestProcessCodeGenerationSuppressesMemoryShortcut(t *testing.T) {
	b := startedBus(t)
	coder := newStubAgent("coder", "code")
	b.RegisterAgent(context.Background(), coder)
	d := New(b, WithMemoryProvider(&stubMemory{records: []MemoryRecord{
		{ID: "m1", Content: "some unrelated fact", Importance: 0.9},
	}}))

	resp, err := d.Process(context.Background(), "Write a python function to sort a list", nil)

	require.NoError(t, err)
	assert.Equal(t, "code", resp.Metadata["agent_used"])
	assert.Equal(t, 1, coder.calls)
}

func TestProcessEmptyQuerySuggestsReformulation(t *testing.T) {
	b := startedBus(t)
	d := New(b)

	resp, err := d.Process(context.Background(), "", nil)

	require.NoError(t, err)
	assert.Equal(t, bus.StatusSuccess, resp.Status)
	assert.Equal(t, "suggest_reformulation", resp.Metadata["action"])
}

// A query longer than 1000 characters is accepted and still routed, with no
// special-case truncation or rejection (spec §8).
func TestProcessLongQueryStillRoutes(t *testing.T) {
	b := startedBus(t)
	echo := newStubAgent("echo-agent", "echo")
	b.RegisterAgent(context.Background(), echo)
	d := New(b)

	longQuery := "tell me a story about a dragon " + strings.Repeat("and a knight ", 100)
	require.Greater(t, len(longQuery), 1000)

	resp, err := d.Process(context.Background(), longQuery, nil)

	require.NoError(t, err)
	assert.Equal(t, bus.StatusSuccess, resp.Status)
}

func TestProcessExplicitAgentTypeOverridesClassification(t *testing.T) {
	b := startedBus(t)
	sys := newStubAgent("sysagent", "system")
	sys.fn = func(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error) {
		return bus.Response{Content: "done", Status: bus.StatusSuccess}, nil
	}
	b.RegisterAgent(context.Background(), sys)
	d := New(b)

	resp, err := d.Process(context.Background(), "hello there", map[string]any{"agent_type": "system"})

	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, "system", resp.Metadata["agent_used"])
}

func TestProcessExplicitAgentTypeCancellationIsUnified(t *testing.T) {
	b := startedBus(t)
	slow := newStubAgent("slow", "system")
	slow.fn = func(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error) {
		<-ctx.Done()
		return bus.Response{}, ctx.Err()
	}
	b.RegisterAgent(context.Background(), slow)
	d := New(b)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	resp, err := d.Process(ctx, "do something", map[string]any{"agent_type": "system"})

	require.Error(t, err)
	assert.Equal(t, bus.StatusCancelled, resp.Status)
}

func TestProcessDelegatesToOrchestratorOnOrchestrationCue(t *testing.T) {
	b := startedBus(t)
	orch := &stubOrchestrator{content: "plan executed"}
	d := New(b, WithOrchestrator(orch))

	resp, err := d.Process(context.Background(), "first gather the quarterly reports, then summarize them, and finally send me an email", nil)

	require.NoError(t, err)
	assert.Equal(t, "plan executed", resp.Content)
	assert.Equal(t, 1, orch.calls)
	assert.Equal(t, true, resp.Metadata["orchestrated"])
}

func TestProcessFallsBackToDirectResponseWhenNoAgentsRegistered(t *testing.T) {
	b := startedBus(t)
	d := New(b)

	resp, err := d.Process(context.Background(), "who are you", nil)

	require.NoError(t, err)
	assert.Equal(t, bus.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Content, assistantName)
	assert.Equal(t, "direct", resp.Metadata["agent_used"])
}

func TestProcessArithmeticDirectResponse(t *testing.T) {
	b := startedBus(t)
	d := New(b)

	resp, err := d.Process(context.Background(), "what is 4 + 5", nil)

	require.NoError(t, err)
	assert.Contains(t, resp.Content, "9")
}

func TestProcessRecordsHistory(t *testing.T) {
	b := startedBus(t)
	d := New(b)

	_, err := d.Process(context.Background(), "hello", nil)
	require.NoError(t, err)

	entries := d.history.recent()
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "assistant", entries[1].Role)
}
