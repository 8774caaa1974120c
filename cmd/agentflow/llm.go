package main

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// LlmClient is the narrow capability the demo agent depends on. The core
// engine packages never import this or any concrete provider; it exists
// only so cmd/agentflow can illustrate an Agent backed by a real LLM
// without widening the engine's dependency surface.
type LlmClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// openAIClient adapts github.com/sashabaranov/go-openai to LlmClient.
type openAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient returns an LlmClient backed by the OpenAI chat completions
// API.
func NewOpenAIClient(apiKey, model string) LlmClient {
	return &openAIClient{client: openai.NewClient(apiKey), model: model}
}

func (c *openAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// offlineClient is a canned LlmClient used when no API key is configured,
// so the demo binary runs end to end without network access.
type offlineClient struct{}

// NewOfflineClient returns an LlmClient that echoes a deterministic
// acknowledgement instead of calling a provider.
func NewOfflineClient() LlmClient { return offlineClient{} }

func (offlineClient) Complete(_ context.Context, _, prompt string) (string, error) {
	return fmt.Sprintf("[offline] acknowledged: %s", prompt), nil
}
