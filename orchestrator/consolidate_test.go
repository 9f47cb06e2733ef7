package orchestrator

import (
	"strings"
	"testing"

	"github.com/agentmesh/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidatePutsCodeFirstAndSuppressesEcho(t *testing.T) {
	tasks := []plan.Task{
		plan.NewTask("t1", "say hi", []string{"echo"}, nil),
		plan.NewTask("t2", "write code", []string{"code_generation"}, []string{"t1"}),
	}
	p, err := plan.New("build something", tasks, nil)
	require.NoError(t, err)

	require.NoError(t, p.UpdateTask("t1", plan.StatusInProgress, "", "", "echo-1"))
	require.NoError(t, p.UpdateTask("t1", plan.StatusCompleted, "Echo: hi", "", ""))
	require.NoError(t, p.UpdateTask("t2", plan.StatusInProgress, "", "", "code-1"))
	require.NoError(t, p.UpdateTask("t2", plan.StatusCompleted, "def f(): pass", "", ""))
	p.Finish(plan.RunCompleted)

	w := newWorkflow(p)
	w.recordResult("t1", "echo-1", "Echo: hi", plan.StatusCompleted)
	w.recordResult("t2", "code-1", "def f(): pass", plan.StatusCompleted)
	out := Consolidate(w)

	codeIdx := strings.Index(out, "def f(): pass")
	echoIdx := strings.Index(out, "Echo: hi")
	require.NotEqual(t, -1, codeIdx)
	assert.Equal(t, -1, echoIdx, "echo output should be suppressed when code output exists")
}

func TestConsolidateKeepsEchoWhenOnlyOutput(t *testing.T) {
	tasks := []plan.Task{plan.NewTask("t1", "say hi", []string{"echo"}, nil)}
	p, err := plan.New("say hi", tasks, nil)
	require.NoError(t, err)
	require.NoError(t, p.UpdateTask("t1", plan.StatusInProgress, "", "", "echo-1"))
	require.NoError(t, p.UpdateTask("t1", plan.StatusCompleted, "Echo: hi", "", ""))
	p.Finish(plan.RunCompleted)

	w := newWorkflow(p)
	w.recordResult("t1", "echo-1", "Echo: hi", plan.StatusCompleted)
	out := Consolidate(w)
	assert.Contains(t, out, "Echo: hi")
}

func TestConsolidateIncludesFailureDetails(t *testing.T) {
	tasks := []plan.Task{plan.NewTask("t1", "write code", []string{"code_generation"}, nil)}
	p, err := plan.New("build something", tasks, nil)
	require.NoError(t, err)
	require.NoError(t, p.UpdateTask("t1", plan.StatusInProgress, "", "", "code-1"))
	require.NoError(t, p.UpdateTask("t1", plan.StatusFailed, "", "syntax error", ""))
	p.Finish(plan.RunFailed)

	w := newWorkflow(p)
	w.recordResult("t1", "code-1", "syntax error", plan.StatusFailed)
	out := Consolidate(w)
	assert.Contains(t, out, "syntax error")
	assert.Contains(t, out, "FAILED")
}
