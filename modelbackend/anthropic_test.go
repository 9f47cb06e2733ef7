package modelbackend

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func TestAnthropicBackendGeneratePlanReturnsText(t *testing.T) {
	stub := &stubMessagesClient{resp: textMessage(`{"tasks":[{"id":"t1","description":"d","capabilities":["x"]}]}`)}
	b, err := NewAnthropicBackend(stub, "claude-3-5-sonnet")
	require.NoError(t, err)

	out, err := b.GeneratePlan(context.Background(), "do a thing", []string{"x"})
	require.NoError(t, err)
	assert.Contains(t, out, `"t1"`)
	assert.Equal(t, sdk.Model("claude-3-5-sonnet"), stub.lastParams.Model)
}

func TestAnthropicBackendGeneratePlanPropagatesError(t *testing.T) {
	stub := &stubMessagesClient{err: errors.New("rate limited")}
	b, err := NewAnthropicBackend(stub, "claude-3-5-sonnet")
	require.NoError(t, err)

	_, err = b.GeneratePlan(context.Background(), "do a thing", nil)
	require.Error(t, err)
}

func TestNewAnthropicBackendRequiresClientAndModel(t *testing.T) {
	_, err := NewAnthropicBackend(nil, "claude")
	require.Error(t, err)

	_, err = NewAnthropicBackend(&stubMessagesClient{}, "")
	require.Error(t, err)
}
