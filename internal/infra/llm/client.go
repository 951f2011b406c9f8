package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/minderhq/minder/internal/biz/domain"
)

const (
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 30 * time.Second
)

const systemPrompt = `You are Minder, a personal assistant that helps the user manage tasks, reminders and daily check-ins. Structured commands are handled elsewhere; you only see free-form conversation. Be concise and practical. When the user seems to want a task or reminder, suggest the matching command (for example "add task ..." or "remind me in 10 minutes to ...").`

// Client generates free-form replies through an OpenAI-compatible API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new replier client. baseURL may be empty to use
// the default OpenAI endpoint; model falls back to a small default.
func NewClient(apiKey, baseURL, model string) *Client {
	if model == "" {
		model = defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Generate produces a reply for text, framed by the recent history.
func (c *Client) Generate(ctx context.Context, sessionID, text string, history []*domain.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if m.IsUser() {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}
