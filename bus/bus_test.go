package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedBus(t *testing.T) *Bus {
	t.Helper()
	b := New()
	ctx := context.Background()
	b.Start(ctx)
	t.Cleanup(b.Stop)
	return b
}

func TestSendRequestEchoRoundTrip(t *testing.T) {
	b := startedBus(t)
	echo := newStubAgent("echo", "echo")
	b.RegisterAgent(context.Background(), echo)

	resp, err := b.SendRequest(context.Background(), "user", "echo", "hello", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, KindResponse, resp.Kind)
	assert.Equal(t, "echo: hello", resp.Content)
	assert.Equal(t, 0, b.PendingRequests())
}

func TestSendRequestRecipientNotFound(t *testing.T) {
	b := startedBus(t)

	resp, err := b.SendRequest(context.Background(), "user", "ghost", "hi", nil, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, KindError, resp.Kind)
	assert.Equal(t, "recipient_not_found", resp.Context["error"])
	assert.Equal(t, 0, b.PendingRequests())
}

func TestSendRequestTimeout(t *testing.T) {
	b := startedBus(t)
	slow := newStubAgent("slow", "echo")
	slow.fn = func(ctx context.Context, query string, msgCtx Context) (Response, error) {
		time.Sleep(time.Second)
		return Response{Content: "late", Status: StatusSuccess}, nil
	}
	b.RegisterAgent(context.Background(), slow)

	start := time.Now()
	_, err := b.SendRequest(context.Background(), "user", "slow", "x", nil, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, 0, b.PendingRequests())
}

func TestSendRequestAgentErrorBecomesErrorMessage(t *testing.T) {
	b := startedBus(t)
	failing := newStubAgent("system", "system_operations")
	failing.fn = func(ctx context.Context, query string, msgCtx Context) (Response, error) {
		return Response{Content: "disk full", Status: StatusError}, nil
	}
	b.RegisterAgent(context.Background(), failing)

	resp, err := b.SendRequest(context.Background(), "user", "system", "write file", nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, KindError, resp.Kind)
	assert.Equal(t, "agent_error", resp.Context["error"])
	assert.Equal(t, "disk full", resp.Content)
}

func TestSendRequestCancellation(t *testing.T) {
	b := startedBus(t)
	slow := newStubAgent("slow", "echo")
	slow.fn = func(ctx context.Context, query string, msgCtx Context) (Response, error) {
		time.Sleep(time.Second)
		return Response{Status: StatusSuccess}, nil
	}
	b.RegisterAgent(context.Background(), slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.SendRequest(ctx, "user", "slow", "x", nil, 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, 0, b.PendingRequests())
}

func TestHandlerFallbackInvokedForNonRequest(t *testing.T) {
	b := startedBus(t)
	received := make(chan Message, 1)
	agent := newStubAgent("listener", "echo")
	b.RegisterAgent(context.Background(), agent)
	b.RegisterHandler("listener", func(ctx context.Context, msg Message) {
		received <- msg
	})

	notif := NewMessage(KindNotification, "user", "listener", "fyi", nil)
	b.SendMessage(notif)

	select {
	case msg := <-received:
		assert.Equal(t, "fyi", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
	// Direct processing should not have been attempted for a non-REQUEST kind.
	assert.Equal(t, 0, agent.callCount())
}

func TestHandlerPanicDoesNotStopOtherHandlers(t *testing.T) {
	b := startedBus(t)
	agent := newStubAgent("listener", "echo")
	b.RegisterAgent(context.Background(), agent)

	second := make(chan struct{}, 1)
	b.RegisterHandler("listener", func(ctx context.Context, msg Message) {
		panic("boom")
	})
	b.RegisterHandler("listener", func(ctx context.Context, msg Message) {
		second <- struct{}{}
	})

	b.SendMessage(NewMessage(KindNotification, "user", "listener", "hi", nil))

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked after first panicked")
	}
}

func TestDroppedWhenNoDirectProcessingAndNoHandlers(t *testing.T) {
	b := startedBus(t)
	agent := newStubAgent("mute", "echo")
	b.RegisterAgent(context.Background(), agent)

	// A non-request message with no handlers registered is simply dropped;
	// this test only asserts the bus does not panic or hang.
	b.SendMessage(NewMessage(KindStatus, "user", "mute", "status update", nil))
	time.Sleep(50 * time.Millisecond)
}

func TestStartIsIdempotent(t *testing.T) {
	b := New()
	ctx := context.Background()
	b.Start(ctx)
	b.Start(ctx) // should not spawn a second worker or deadlock
	b.Stop()
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	b := New()
	b.Stop()
}
