// Package genai provides GenAI-enhanced operations using the OpenAI API.
//
// The briefing builder uses it to polish talking points before a call; the
// deterministic path never depends on it, so a nil client simply skips the
// polish step.
package genai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// completionService is the minimal chat-completion surface, kept as a seam
// for tests.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat-completion service for briefing enhancement.
type Client struct {
	chat  completionService
	model openai.ChatModel
}

// NewClient initializes a GenAI client from the OPENAI_API_KEY environment
// variable.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{chat: &cli.Chat.Completions, model: openai.ChatModelGPT4oMini}, nil
}

// Generate produces a completion from a system and user prompt.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
