package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/agentmesh/core/orchestrator/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteStepInvokesDispatch(t *testing.T) {
	var captured engine.StepRequest
	e := New(func(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
		captured = req
		return engine.StepResult{Output: "ok"}, nil
	})

	res, err := e.ExecuteStep(context.Background(), engine.StepRequest{TaskID: "t1", AgentID: "a1", Query: "do it"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)
	assert.Equal(t, "t1", captured.TaskID)
}

func TestExecuteStepAppliesTimeout(t *testing.T) {
	e := New(func(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
		<-ctx.Done()
		return engine.StepResult{}, ctx.Err()
	})

	_, err := e.ExecuteStep(context.Background(), engine.StepRequest{Timeout: 5 * time.Millisecond})
	require.Error(t, err)
}
