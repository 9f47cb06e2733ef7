// Command assistantd wires a Bus, Planner, Orchestrator, and Dispatcher
// into a running process and serves queries from stdin. It registers a
// small set of demo agents so the end-to-end pipeline (classification,
// delegation, orchestration) is exercisable without any external services
// configured.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"goa.design/clue/log"

	"github.com/agentmesh/core/bus"
	"github.com/agentmesh/core/dispatcher"
	"github.com/agentmesh/core/modelbackend"
	"github.com/agentmesh/core/orchestrator"
	"github.com/agentmesh/core/planner"
	"github.com/agentmesh/core/telemetry"
)

func main() {
	var (
		dbgF          = flag.Bool("debug", false, "enable debug-level logging")
		anthropicKeyF = flag.String("anthropic-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key for the planner backend (optional; falls back to the heuristic planner)")
		anthropicMdlF = flag.String("anthropic-model", "claude-3-5-sonnet-latest", "Anthropic model id used by the planner backend")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	tel := telemetry.Bundle{
		Logger:  telemetry.NewClueLogger(),
		Metrics: telemetry.NewClueMetrics(),
		Tracer:  telemetry.NewClueTracer(),
	}

	b := bus.New(bus.WithTelemetry(tel))
	b.Start(ctx)
	defer b.Stop()

	registerDemoAgents(ctx, b)

	var plannerOpts []planner.Option
	plannerOpts = append(plannerOpts, planner.WithTelemetry(tel))
	if *anthropicKeyF != "" {
		backend, err := modelbackend.NewAnthropicBackendFromAPIKey(*anthropicKeyF, *anthropicMdlF)
		if err != nil {
			log.Fatalf(ctx, err, "failed to configure anthropic planner backend")
		}
		plannerOpts = append(plannerOpts, planner.WithBackend(backend))
	} else {
		log.Print(ctx, log.KV{K: "planner", V: "no anthropic-key set, using heuristic fallback only"})
	}
	pl, err := planner.New(plannerOpts...)
	if err != nil {
		log.Fatalf(ctx, err, "failed to construct planner")
	}

	orch := orchestrator.New(b, pl, orchestrator.WithTelemetry(tel))

	disp := dispatcher.New(b,
		dispatcher.WithOrchestrator(orch),
		dispatcher.WithTelemetry(tel),
	)

	log.Print(ctx, log.KV{K: "status", V: "ready"})

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go runREPL(ctx, disp, done)

	select {
	case sig := <-sigc:
		log.Printf(ctx, "exiting (%v)", sig)
	case <-done:
		log.Print(ctx, log.KV{K: "status", V: "stdin closed, exiting"})
	}
}

// runREPL reads one query per line from stdin and prints the Dispatcher's
// response, closing done when stdin is exhausted.
func runREPL(ctx context.Context, disp *dispatcher.Dispatcher, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(os.Stdin)
	reqContext := map[string]any{}
	fmt.Println("assistantd ready. Type a query and press enter (Ctrl-D to quit).")
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		resp, err := disp.Process(ctx, query, reqContext)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("[%s] %s\n", resp.Status, resp.Content)
	}
}
