package planner

import "errors"

// Sentinel errors returned by Planner operations, mirroring the bus error
// taxonomy (spec §7) for the planning-specific failure modes.
var (
	// ErrInvalidPlan is returned when a backend's structured response fails
	// schema validation or cannot be parsed into tasks; the Planner falls
	// back to the heuristic planner rather than surfacing this to the
	// caller.
	ErrInvalidPlan = errors.New("invalid_plan")

	// ErrPlanNotFound is returned by GetPlan for an unknown plan id.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanningTimeout is returned when a backend does not produce a plan
	// within the bounded planning time.
	ErrPlanningTimeout = errors.New("planning timed out")
)
