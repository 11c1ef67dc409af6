package anthropicinfra

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/edge-landings/api/internal/domain"
)

const maxTokens = 1024

// Client sends chat turns to the Messages API.
type Client struct {
	api   anthropic.Client
	model string
}

func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}, opts...)
	return &Client{api: anthropic.NewClient(opts...), model: model}
}

func (c *Client) Model() string { return c.model }

// Complete sends the conversation, which must start with a user turn, and
// joins the text blocks of the answer.
func (c *Client) Complete(ctx context.Context, system string, turns []domain.ChatTurn) (*domain.ChatReply, error) {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &domain.UpstreamError{StatusCode: apiErr.StatusCode, Message: errorMessage(apiErr)}
		}
		return nil, err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	reply := &domain.ChatReply{
		Reply: strings.TrimSpace(sb.String()),
		Model: string(msg.Model),
		Usage: &domain.ChatUsage{InputTokens: msg.Usage.InputTokens, OutputTokens: msg.Usage.OutputTokens},
	}
	if reply.Model == "" {
		reply.Model = c.model
	}
	if msg.StopReason != "" {
		s := string(msg.StopReason)
		reply.StopReason = &s
	}
	return reply, nil
}

func errorMessage(e *anthropic.Error) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.RawJSON()), &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return "Failed to reach Claude assistant."
}
