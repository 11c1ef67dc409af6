package domain

import "fmt"

// ChatTurn is one prior message of an assistant conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Prompt       string     `json:"prompt"`
	Conversation []ChatTurn `json:"conversation"`
	System       string     `json:"system"`
}

type ChatUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type ChatReply struct {
	Reply      string     `json:"reply"`
	Model      string     `json:"model"`
	Usage      *ChatUsage `json:"usage"`
	StopReason *string    `json:"stop_reason"`
}

// UpstreamError carries the HTTP status an external API answered with.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}
