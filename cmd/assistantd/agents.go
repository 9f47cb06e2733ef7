package main

import (
	"context"
	"fmt"
	"strings"

	"goa.design/clue/log"

	"github.com/agentmesh/core/bus"
)

// registerDemoAgents wires a handful of trivial bus.Agent implementations
// so the pipeline is exercisable end to end without any external services
// configured: an echo catch-all, a canned code responder, a canned system
// responder, and a canned memory responder.
func registerDemoAgents(ctx context.Context, b *bus.Bus) {
	for _, a := range []bus.Agent{
		newFuncAgent("echo", "Echo", "repeats back whatever it is asked", []string{"echo", "general"},
			func(query string) string { return "echo: " + query }),
		newFuncAgent("demo-coder", "Demo Coder", "returns a placeholder code snippet", []string{"code"},
			func(query string) string {
				return fmt.Sprintf("// placeholder implementation for: %s\nfunc solve() {}\n", strings.TrimSpace(query))
			}),
		newFuncAgent("demo-system", "Demo System", "acknowledges system/OS requests without touching the host", []string{"system"},
			func(query string) string { return "system agent acknowledged: " + query }),
		newFuncAgent("demo-memory", "Demo Memory", "answers knowledge questions from a small canned set", []string{"memory"},
			func(query string) string { return "I don't have that memorized yet, but I can look it up." }),
	} {
		b.RegisterAgent(ctx, a)
		log.Print(ctx, log.KV{K: "registered_agent", V: a.AgentID()})
	}
}

// funcAgent adapts a plain function to the bus.Agent interface for simple,
// stateless demo responders.
type funcAgent struct {
	id, name, desc string
	caps           []string
	fn             func(query string) string
}

func newFuncAgent(id, name, desc string, caps []string, fn func(query string) string) *funcAgent {
	return &funcAgent{id: id, name: name, desc: desc, caps: caps, fn: fn}
}

func (a *funcAgent) AgentID() string        { return a.id }
func (a *funcAgent) Name() string           { return a.name }
func (a *funcAgent) Description() string    { return a.desc }
func (a *funcAgent) Capabilities() []string { return a.caps }

func (a *funcAgent) Process(ctx context.Context, query string, msgCtx bus.Context) (bus.Response, error) {
	return bus.Response{Content: a.fn(query), Status: bus.StatusSuccess}, nil
}
