// Package inmem provides the default, non-durable Engine implementation: it
// invokes the supplied engine.Dispatch directly within the calling
// goroutine, applying only the request's own timeout. Suitable for local
// development, tests, and single-process deployments (spec: "no distributed
// deployment across machines" — the default engine never needs to be
// anything more than this).
package inmem

import (
	"context"

	"github.com/agentmesh/core/orchestrator/engine"
)

type eng struct {
	dispatch engine.Dispatch
}

// New returns an Engine that executes steps directly, with no durability or
// replay guarantees.
func New(dispatch engine.Dispatch) engine.Engine {
	return &eng{dispatch: dispatch}
}

func (e *eng) ExecuteStep(ctx context.Context, req engine.StepRequest) (engine.StepResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	return e.dispatch(ctx, req)
}
