package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentmesh/core/telemetry"
)

// DefaultRequestTimeout is the default deadline for SendRequest (spec §5).
const DefaultRequestTimeout = 10 * time.Second

type (
	// Bus is the asynchronous message router (spec C2). A single cooperative
	// worker drains an unbounded FIFO queue, correlates RESPONSE/ERROR
	// messages to outstanding SendRequest waiters, attempts direct processing
	// of REQUEST messages against the registered Agent, and falls back to
	// per-agent handler lists. Delivery errors are never fatal: they are
	// surfaced as ERROR messages back to the sender.
	Bus struct {
		reg   *registry
		queue *fifoQueue
		corr  *correlationTable
		tel   telemetry.Bundle

		defaultTimeout time.Duration
		cache          RegistryCache

		mu      sync.Mutex
		running bool
		done    chan struct{}
	}

	// RegistryCache is an optional best-effort cache of agent capability
	// advertisements, shared across processes (e.g. Redis-backed; see
	// registrycache.Client). The bus treats it purely as a cache: a miss or
	// error never fails an operation, and it is never the system of record.
	RegistryCache interface {
		PublishCapabilities(ctx context.Context, agentID string, capabilities []string) error
		Capabilities(ctx context.Context) (map[string][]string, error)
	}

	// Option configures a Bus at construction time.
	Option func(*Bus)
)

// WithTelemetry attaches a telemetry.Bundle used for logging, metrics, and
// tracing. Defaults to telemetry.NoopBundle().
func WithTelemetry(t telemetry.Bundle) Option {
	return func(b *Bus) { b.tel = t }
}

// WithDefaultTimeout overrides DefaultRequestTimeout for SendRequest calls
// that do not specify one explicitly (timeout <= 0).
func WithDefaultTimeout(d time.Duration) Option {
	return func(b *Bus) { b.defaultTimeout = d }
}

// WithRegistryCache attaches an optional distributed capability cache.
func WithRegistryCache(c RegistryCache) Option {
	return func(b *Bus) { b.cache = c }
}

// New constructs a Bus. Call Start before sending any messages and Stop when
// done to release the delivery goroutine.
func New(opts ...Option) *Bus {
	b := &Bus{
		queue:          newFIFOQueue(),
		corr:           newCorrelationTable(),
		tel:            telemetry.NoopBundle(),
		defaultTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.reg = newRegistry(b.tel.Logger)
	return b
}

// Start begins the delivery processing loop. Calling Start twice is a no-op.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.done = make(chan struct{})
	go b.run(ctx, b.done)
}

// Stop ends the processing loop and blocks until the worker goroutine has
// exited. Calling Stop before Start, or twice, is a no-op.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	done := b.done
	b.mu.Unlock()
	b.queue.close()
	<-done
}

// RegisterAgent registers a (spec C3) Agent with the bus. Re-registering an
// already-known agent id is a no-op with a warning.
func (b *Bus) RegisterAgent(ctx context.Context, a Agent) {
	b.reg.register(ctx, a)
	if b.cache != nil {
		if err := b.cache.PublishCapabilities(ctx, a.AgentID(), a.Capabilities()); err != nil {
			b.tel.Logger.Warn(ctx, "registry cache publish failed", "agent_id", a.AgentID(), "error", err.Error())
		}
	}
}

// UnregisterAgent removes the agent with the given id. No-op if absent.
func (b *Bus) UnregisterAgent(id string) {
	b.reg.unregister(id)
}

// RegisterHandler appends a Handler to the agent's handler list.
func (b *Bus) RegisterHandler(id string, h Handler) {
	b.reg.addHandler(id, h)
}

// FindAgent returns the agent registered under id, or false if absent.
func (b *Bus) FindAgent(id string) (Agent, bool) {
	return b.reg.find(id)
}

// Agents returns every locally registered agent, sorted by id. Used by the
// orchestrator to score candidates for step assignment (spec C6 §4.4).
func (b *Bus) Agents() []Agent {
	return b.reg.all()
}

// Capabilities returns the union of every registered agent's capability
// set. When a RegistryCache is configured it is consulted to augment the
// local view with capabilities advertised by agents registered in other
// processes; cache errors are logged and ignored (best-effort only).
func (b *Bus) Capabilities(ctx context.Context) []string {
	local := b.reg.capabilities()
	if b.cache == nil {
		return local
	}
	remote, err := b.cache.Capabilities(ctx)
	if err != nil {
		b.tel.Logger.Warn(ctx, "registry cache lookup failed", "error", err.Error())
		return local
	}
	seen := make(map[string]struct{}, len(local))
	for _, c := range local {
		seen[c] = struct{}{}
	}
	out := append([]string(nil), local...)
	for _, caps := range remote {
		for _, c := range caps {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}

// SendMessage enqueues msg for asynchronous delivery. It never blocks on
// delivery and never returns an error: failures are surfaced as ERROR
// messages routed back to the sender.
func (b *Bus) SendMessage(msg Message) {
	b.queue.push(msg)
}

// SendRequest sends a REQUEST from sender to receiver and blocks until a
// correlated RESPONSE/ERROR arrives, the context is cancelled, or timeout
// elapses (timeout <= 0 uses the bus's configured default). On timeout it
// returns ErrTimeout; on cancellation, ErrCancelled. The correlation table
// contains no entry for the request once this call returns, under any
// outcome.
func (b *Bus) SendRequest(ctx context.Context, senderID, receiverID, content string, msgCtx Context, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}
	req := NewMessage(KindRequest, senderID, receiverID, content, msgCtx)
	ch := b.corr.register(req.ID)

	ctx, span := b.tel.Tracer.Start(ctx, "bus.send_request")
	defer span.End()

	b.queue.push(req)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		if b.corr.remove(req.ID) {
			b.tel.Metrics.IncCounter("bus.request.timeout", 1)
			return Message{}, fmt.Errorf("send_request to %s: %w", receiverID, ErrTimeout)
		}
		// Lost the race: a response was already in flight. Give it a final,
		// non-blocking chance to arrive.
		select {
		case resp := <-ch:
			return resp, nil
		default:
			return Message{}, fmt.Errorf("send_request to %s: %w", receiverID, ErrTimeout)
		}
	case <-ctx.Done():
		b.corr.remove(req.ID)
		return Message{}, fmt.Errorf("send_request to %s: %w", receiverID, ErrCancelled)
	}
}

// run is the bus's single delivery worker: it pops messages from the queue
// until the queue is closed and drained.
func (b *Bus) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		msg, ok := b.queue.pop()
		if !ok {
			return
		}
		b.deliver(ctx, msg)
	}
}

// deliver implements the delivery algorithm of spec §4.1.
func (b *Bus) deliver(ctx context.Context, msg Message) {
	ctx, span := b.tel.Tracer.Start(ctx, "bus.deliver")
	defer span.End()
	b.tel.Metrics.IncCounter("bus.message.delivered", 1, "kind", string(msg.Kind))

	// Step 2: correlated reply short-circuits straight to the waiter.
	if msg.ReferenceID != "" {
		if b.corr.resolve(msg.ReferenceID, msg) {
			return
		}
	}

	// Step 3: unknown receiver synthesizes a recipient_not_found ERROR back
	// toward the sender.
	agent, found := b.reg.find(msg.ReceiverID)
	if !found {
		b.tel.Logger.Warn(ctx, "message receiver not registered", "receiver_id", msg.ReceiverID, "message_id", msg.ID)
		if msg.Kind != KindError { // never bounce an ERROR to avoid loops
			errMsg := NewErrorMessage(msg, "bus", "recipient_not_found", fmt.Sprintf("agent %q is not registered", msg.ReceiverID))
			b.queue.push(errMsg)
		}
		return
	}

	handled := false
	if msg.Kind == KindRequest {
		handled = b.deliverDirect(ctx, agent, msg)
	}
	if handled {
		return
	}

	// Step 5: fall back to the agent's registered handlers, in order.
	handlers := b.reg.handlersFor(msg.ReceiverID)
	if len(handlers) == 0 {
		b.tel.Logger.Warn(ctx, "message dropped: no direct processing and no handlers", "receiver_id", msg.ReceiverID, "message_id", msg.ID)
		return
	}
	for _, h := range handlers {
		b.invokeHandler(ctx, h, msg)
	}
}

// deliverDirect attempts direct processing of a REQUEST message: it invokes
// agent.Process and enqueues a correlated RESPONSE (or ERROR, if the agent
// reported a non-success status) back to the sender. It reports whether
// direct processing completed (true) or should fall through to handler
// dispatch (false, when Process panics or returns an error).
func (b *Bus) deliverDirect(ctx context.Context, agent Agent, msg Message) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			b.tel.Logger.Error(ctx, "agent.process panicked", "agent_id", agent.AgentID(), "recover", fmt.Sprint(r))
			handled = false
		}
	}()

	start := time.Now()
	resp, err := agent.Process(ctx, msg.Content, msg.Context)
	b.tel.Metrics.RecordTimer("bus.agent.process", time.Since(start), "agent_id", agent.AgentID())

	if err != nil {
		b.tel.Logger.Error(ctx, "agent.process returned error", "agent_id", agent.AgentID(), "error", err.Error())
		return false
	}

	var reply Message
	if resp.IsSuccess() {
		reply = NewResponse(msg, agent.AgentID(), resp.Content, Context(resp.Metadata))
	} else {
		reply = NewErrorMessage(msg, agent.AgentID(), "agent_error", resp.Content)
	}
	b.queue.push(reply)
	return true
}

// invokeHandler calls h, recovering and logging any panic so it does not
// stop processing of subsequent handlers.
func (b *Bus) invokeHandler(ctx context.Context, h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.tel.Logger.Error(ctx, "message handler panicked", "message_id", msg.ID, "recover", fmt.Sprint(r))
		}
	}()
	h(ctx, msg)
}

// PendingRequests reports the number of outstanding SendRequest waiters.
// Exposed for gauges and tests.
func (b *Bus) PendingRequests() int {
	return b.corr.size()
}
