package modelbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client
// required by BedrockBackend, matching *bedrockruntime.Client so callers can
// substitute a mock in tests. Grounded on the teacher's
// features/model/bedrock.RuntimeClient.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockBackend implements planner.Backend on top of the AWS Bedrock
// Converse API.
type BedrockBackend struct {
	runtime RuntimeClient
	model   string
}

// NewBedrockBackend builds a Backend from a Bedrock runtime client and model
// identifier (e.g. an inference profile ARN or foundation model id).
func NewBedrockBackend(runtime RuntimeClient, model string) (*BedrockBackend, error) {
	if runtime == nil {
		return nil, errors.New("modelbackend: bedrock runtime client is required")
	}
	if model == "" {
		return nil, errors.New("modelbackend: bedrock model identifier is required")
	}
	return &BedrockBackend{runtime: runtime, model: model}, nil
}

// GeneratePlan implements planner.Backend.
func (b *BedrockBackend) GeneratePlan(ctx context.Context, description string, availableCapabilities []string) (string, error) {
	out, err := b.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: &b.model,
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: userPrompt(description, availableCapabilities)},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("modelbackend: bedrock converse: %w", err)
	}
	output, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("modelbackend: bedrock response did not contain a message")
	}
	var text string
	for _, block := range output.Value.Content {
		if tb, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	return text, nil
}
