package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// CompletionClient is the completion surface the adapter depends on. Tests
// substitute a stub; production wraps the OpenAI client.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient implements CompletionClient against an OpenAI-compatible API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIClient creates a completion client.
func NewOpenAIClient(apiKey, model string, temperature float32, maxTokens int) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete submits one chat completion and returns the first choice's text.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from completion service")
	}

	return resp.Choices[0].Message.Content, nil
}
