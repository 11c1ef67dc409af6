package handler

import (
	"net/http"

	"github.com/edge-landings/api/internal/application/assistant"
	"github.com/edge-landings/api/internal/domain"
)

// AssistantHandler proxies chat prompts to the model.
type AssistantHandler struct {
	svc assistant.Service
}

func NewAssistantHandler(svc assistant.Service) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
