// Package temporal provides an optional durable Engine implementation
// backed by Temporal: each step execution becomes a short-lived Temporal
// workflow wrapping one activity invocation of the orchestrator's dispatch
// function, giving step retries and crash-resilience for callers who run a
// Temporal server alongside the orchestrator. It is never required: the
// orchestrator defaults to engine/inmem and only switches to this adapter
// when WithEngine(temporal.New(...)) is supplied explicitly.
//
// Grounded on the teacher's runtime/agent/engine/temporal adapter: a
// Temporal client plus a dedicated worker registered for one task queue,
// with OTEL tracing/metrics wired through the Temporal SDK's own
// interceptors.
package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/agentmesh/core/orchestrator/engine"
)

const workflowName = "agentmesh.ExecuteStep"
const activityName = "agentmesh.Dispatch"

// Options configures the Temporal engine adapter.
type Options struct {
	// Client is a pre-configured Temporal client. Required.
	Client client.Client
	// TaskQueue is the queue the adapter's worker listens on. Required.
	TaskQueue string
	// DisableTracing turns off the OTEL interceptor wiring.
	DisableTracing bool
}

type eng struct {
	client    client.Client
	taskQueue string
	worker    worker.Worker
}

// New constructs a Temporal-backed Engine, registers its workflow and
// activity, and starts a worker on opts.TaskQueue. The returned Engine's
// ExecuteStep starts one workflow execution per step and blocks for its
// result.
func New(opts Options, dispatch engine.Dispatch) (engine.Engine, error) {
	if opts.Client == nil {
		return nil, errors.New("temporal engine: client is required")
	}
	if opts.TaskQueue == "" {
		return nil, errors.New("temporal engine: task queue is required")
	}

	workerOpts := worker.Options{}
	if !opts.DisableTracing {
		tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
		if err != nil {
			return nil, fmt.Errorf("temporal engine: tracing interceptor: %w", err)
		}
		workerOpts.Interceptors = []interceptor.WorkerInterceptor{tracingInterceptor}
	}

	w := worker.New(opts.Client, opts.TaskQueue, workerOpts)
	w.RegisterWorkflowWithOptions(stepWorkflow, workflow.RegisterOptions{Name: workflowName})
	w.RegisterActivityWithOptions(dispatchActivity(dispatch), activity.RegisterOptions{Name: activityName})

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("temporal engine: start worker: %w", err)
	}

	return &eng{client: opts.Client, taskQueue: opts.TaskQueue, worker: w}, nil
}

// ExecuteStep starts a short-lived workflow wrapping a single activity
// invocation of dispatch, and waits for its result.
func (e *eng) ExecuteStep(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("step-%s-%s", req.WorkflowID, req.TaskID),
		TaskQueue: e.taskQueue,
	}, workflowName, req)
	if err != nil {
		return engine.StepResult{}, fmt.Errorf("temporal engine: start workflow: %w", err)
	}

	var res engine.StepResult
	if err := run.Get(ctx, &res); err != nil {
		return engine.StepResult{}, fmt.Errorf("temporal engine: workflow result: %w", err)
	}
	return res, nil
}

// stepWorkflow is the deterministic workflow entry point: it executes
// exactly one activity and returns its result.
func stepWorkflow(ctx workflow.Context, req engine.StepRequest) (engine.StepResult, error) {
	ao := workflow.ActivityOptions{StartToCloseTimeout: req.Timeout}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var res engine.StepResult
	if err := workflow.ExecuteActivity(ctx, activityName, req).Get(ctx, &res); err != nil {
		return engine.StepResult{}, err
	}
	return res, nil
}

// dispatchActivity adapts an engine.Dispatch function to a Temporal
// activity: Temporal activities take and return plain Go types, which
// StepRequest/StepResult already are.
func dispatchActivity(dispatch engine.Dispatch) func(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
	return func(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
		return dispatch(ctx, req)
	}
}
