package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"pamubot/app/config"

	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
)

const (
	requestTimeout      = 30 * time.Second
	maxCompletionTokens = 4000
)

// Client wraps an OpenAI-compatible chat completion endpoint.
type Client struct {
	api   *openai.Client
	model string
}

func NewClient(cfg config.ModelConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: requestTimeout,
	}

	return &Client{
		api:   openai.NewClientWithConfig(clientConfig),
		model: cfg.Model,
	}
}

// Complete issues a plain completion and returns the trimmed message text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: maxCompletionTokens,
		Temperature:         0.7,
	})
	if err != nil {
		return "", oops.Wrapf(err, "failed to create chat completion")
	}

	if len(resp.Choices) == 0 {
		return "", oops.Errorf("no chat completion found")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CompleteJSON issues a completion in JSON mode and strips markdown fences
// some models wrap the object in.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxCompletionTokens: maxCompletionTokens,
		Temperature:         0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", oops.Wrapf(err, "failed to create chat completion")
	}

	if len(resp.Choices) == 0 {
		return "", oops.Errorf("no chat completion found")
	}

	result := resp.Choices[0].Message.Content
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	return result, nil
}
