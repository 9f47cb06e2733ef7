// Package engine abstracts durable execution of a single workflow step so
// the orchestrator can run entirely in-process (the default) or delegate
// step execution to Temporal for crash-resilient retries, without the
// orchestrator's scheduling logic (see ExecuteWorkflow in
// orchestrator/orchestrator.go) changing.
//
// This mirrors the pluggable-backend shape of the teacher's
// runtime/agent/engine package, narrowed to a single operation: a workflow
// in this runtime is a DAG of bus requests, not an arbitrary deterministic
// program, so there is no need for the teacher's full
// WorkflowContext/Future/SignalChannel surface.
package engine

import (
	"context"
	"time"
)

type (
	// StepRequest describes one workflow step: a single bus request sent to
	// an assigned agent.
	StepRequest struct {
		WorkflowID string
		TaskID     string
		AgentID    string
		Query      string
		Context    map[string]any
		Timeout    time.Duration
	}

	// StepResult is the outcome of executing a StepRequest.
	StepResult struct {
		Output string
		Error  string
	}

	// Dispatch executes a single step against the message bus (or any other
	// delivery mechanism) and is supplied by the orchestrator to whichever
	// Engine implementation it constructs.
	Dispatch func(ctx context.Context, req StepRequest) (StepResult, error)

	// Engine executes workflow steps, optionally durably. Implementations
	// must propagate ctx cancellation into Dispatch.
	Engine interface {
		ExecuteStep(ctx context.Context, req StepRequest) (StepResult, error)
	}
)
