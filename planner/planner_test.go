package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentmesh/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanWithoutBackendUsesHeuristic(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "write a script to rename files", nil, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Tasks, 1)
}

func TestPlanRejectsEmptyDescription(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), "   ", nil, nil)
	require.Error(t, err)
}

func TestPlanUsesStructuredBackendResponse(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, description string, caps []string) (string, error) {
		return `{"tasks":[{"id":"t1","description":"write code","capabilities":["code_generation"]}]}`, nil
	})
	p, err := New(WithBackend(backend))
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "build a thing", []string{"code_generation"}, nil)
	require.NoError(t, err)
	require.Len(t, pl.Tasks, 1)
	assert.True(t, pl.Tasks["t1"].HasCapability("code_generation"))
}

func TestPlanUsesTextualBackendResponse(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, description string, caps []string) (string, error) {
		return "1. [code_generation] write the function\n2. [system_operations] save output (depends on: 1)", nil
	})
	p, err := New(WithBackend(backend))
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "build a thing", nil, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Tasks, 2)
}

func TestPlanFallsBackToHeuristicOnBackendError(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, description string, caps []string) (string, error) {
		return "", errors.New("backend unavailable")
	})
	p, err := New(WithBackend(backend))
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "write a script", nil, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Tasks, 1)
}

func TestPlanFallsBackToHeuristicOnInvalidSchema(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, description string, caps []string) (string, error) {
		return `{"tasks":[{"id":"t1"}]}`, nil
	})
	p, err := New(WithBackend(backend))
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "write a script", nil, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Tasks, 1)
}

func TestPlanFallsBackToHeuristicOnTimeout(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, description string, caps []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p, err := New(WithBackend(backend), WithPlanningTimeout(10*time.Millisecond))
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "write a script", nil, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Tasks, 1)
}

func TestPlanFallsBackToHeuristicOnDependencyCycle(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, description string, caps []string) (string, error) {
		return `{"tasks":[{"id":"t1","description":"a","capabilities":["x"],"dependencies":["t2"]},{"id":"t2","description":"b","capabilities":["x"],"dependencies":["t1"]}]}`, nil
	})
	p, err := New(WithBackend(backend))
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "write a script", nil, nil)
	require.NoError(t, err)
	assert.Len(t, pl.Tasks, 1) // heuristic single-task fallback
}

func TestUpdateTaskGetPlanListPlans(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	pl, err := p.Plan(context.Background(), "write a script", nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.UpdateTask(pl.ID, "t1", plan.StatusInProgress, "", "", "agent-1"))
	require.NoError(t, p.UpdateTask(pl.ID, "t1", plan.StatusCompleted, "done", "", ""))

	got, err := p.GetPlan(pl.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, got.Tasks["t1"].Status)

	_, err = p.GetPlan("does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	list := p.ListPlans()
	require.Len(t, list, 1)
	assert.Equal(t, pl.ID, list[0].ID)
}
