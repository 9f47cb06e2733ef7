package modelbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatClient captures the subset of the official OpenAI SDK client used by
// OpenAIBackend, so callers can pass either the real client or a mock in
// tests. Grounded on the teacher's features/model/openai.ChatClient, adapted
// from sashabaranov/go-openai's narrow-interface shape onto the official
// openai-go SDK the teacher's go.mod actually targets.
type ChatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIBackend implements planner.Backend on top of the OpenAI Chat
// Completions API.
type OpenAIBackend struct {
	chat  ChatClient
	model string
}

// NewOpenAIBackend builds a Backend from a chat-completions client and model
// identifier.
func NewOpenAIBackend(chat ChatClient, model string) (*OpenAIBackend, error) {
	if chat == nil {
		return nil, errors.New("modelbackend: openai chat client is required")
	}
	if model == "" {
		return nil, errors.New("modelbackend: openai model identifier is required")
	}
	return &OpenAIBackend{chat: chat, model: model}, nil
}

// NewOpenAIBackendFromAPIKey constructs a Backend using the default OpenAI
// HTTP client configured with apiKey.
func NewOpenAIBackendFromAPIKey(apiKey, model string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, errors.New("modelbackend: openai api key is required")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIBackend(&client.Chat.Completions, model)
}

// GeneratePlan implements planner.Backend.
func (b *OpenAIBackend) GeneratePlan(ctx context.Context, description string, availableCapabilities []string) (string, error) {
	resp, err := b.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(description, availableCapabilities)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("modelbackend: openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("modelbackend: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
