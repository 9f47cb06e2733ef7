package modelbackend

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// MessagesClient captures the subset of the Anthropic SDK client used by
// AnthropicBackend, so callers can pass either the real client or a mock in
// tests. Grounded on the teacher's
// features/model/anthropic.MessagesClient.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicBackend implements planner.Backend on top of the Anthropic
// Messages API.
type AnthropicBackend struct {
	msg   MessagesClient
	model string
}

// NewAnthropicBackend builds a Backend from an Anthropic Messages client and
// a model identifier (e.g. string(sdk.ModelClaudeSonnet4_5_20250929)).
func NewAnthropicBackend(msg MessagesClient, model string) (*AnthropicBackend, error) {
	if msg == nil {
		return nil, errors.New("modelbackend: anthropic messages client is required")
	}
	if model == "" {
		return nil, errors.New("modelbackend: anthropic model identifier is required")
	}
	return &AnthropicBackend{msg: msg, model: model}, nil
}

// NewAnthropicBackendFromAPIKey constructs a Backend using the default
// Anthropic HTTP client configured with apiKey.
func NewAnthropicBackendFromAPIKey(apiKey, model string) (*AnthropicBackend, error) {
	if apiKey == "" {
		return nil, errors.New("modelbackend: anthropic api key is required")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicBackend(&client.Messages, model)
}

// GeneratePlan implements planner.Backend.
func (b *AnthropicBackend) GeneratePlan(ctx context.Context, description string, availableCapabilities []string) (string, error) {
	msg, err := b.msg.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(b.model),
		MaxTokens: 1024,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt(description, availableCapabilities))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("modelbackend: anthropic messages.new: %w", err)
	}
	return extractText(msg), nil
}

// extractText concatenates the text blocks of an Anthropic message response.
func extractText(msg *sdk.Message) string {
	var out string
	for _, block := range msg.Content {
		if text := block.Text; text != "" {
			out += text
		}
	}
	return out
}
