package assistant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/edge-landings/api/internal/domain"
)

const (
	msgNotConfigured = "Claude assistant is not configured on this server."
	msgEmptyPrompt   = "Prompt is required."
)

type Service interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error)
}

type completer interface {
	Complete(ctx context.Context, system string, turns []domain.ChatTurn) (*domain.ChatReply, error)
}

type service struct {
	client completer
	log    *slog.Logger
}

// ServiceDeps wires a Service. A nil Client disables the assistant.
type ServiceDeps struct {
	Client completer
	Logger *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{client: deps.Client, log: log.With("component", "assistant")}
}

func (s *service) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	if s.client == nil {
		return nil, domain.NewPublicError(domain.ErrUnavailable, msgNotConfigured)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.NewPublicError(domain.ErrBadRequest, msgEmptyPrompt)
	}

	reply, err := s.client.Complete(ctx, strings.TrimSpace(req.System), history(req.Conversation, prompt))
	if err != nil {
		s.log.ErrorContext(ctx, "assistant call failed", "err", err)
		var up *domain.UpstreamError
		if errors.As(err, &up) {
			if up.StatusCode == 0 {
				up.StatusCode = http.StatusInternalServerError
			}
			return nil, up
		}
		return nil, err
	}
	return reply, nil
}

// history normalizes prior turns and appends the prompt. Any role other than
// "assistant" counts as the user, blank turns are skipped, and the result
// always starts with a user turn.
func history(conv []domain.ChatTurn, prompt string) []domain.ChatTurn {
	out := make([]domain.ChatTurn, 0, len(conv)+1)
	for _, t := range conv {
		text := strings.TrimSpace(t.Content)
		if text == "" {
			continue
		}
		role := "user"
		if t.Role == "assistant" {
			role = "assistant"
		}
		if len(out) == 0 && role == "assistant" {
			continue
		}
		out = append(out, domain.ChatTurn{Role: role, Content: text})
	}
	return append(out, domain.ChatTurn{Role: "user", Content: prompt})
}
