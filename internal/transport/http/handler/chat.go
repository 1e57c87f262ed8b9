package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/sse"
)

// Answerer runs one retrieval-augmented chat turn, calling onToken for
// every generated fragment in order.
type Answerer interface {
	Answer(ctx context.Context, question string, onToken func(token string) error) (*app.AnswerResult, error)
}

type ChatHandler struct {
	answers Answerer
}

type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// streamPayload is the JSON body of every chat stream event. Content is
// omitted for the terminal done event.
type streamPayload struct {
	Type    string `json:"type"`
	Content any    `json:"content,omitempty"`
}

func NewChatHandler(answers Answerer) *ChatHandler {
	return &ChatHandler{answers: answers}
}

// Chat answers a question as a server-sent event stream: token events
// while the model generates, then one sources event, then done. A
// failure after streaming has started is reported as an error event
// because the response status is already committed.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Question is required")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.String(http.StatusBadRequest, "Question is required")
		return
	}

	stream, err := sse.NewWriter(c.Writer)
	if err != nil {
		c.String(http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	result, err := h.answers.Answer(c.Request.Context(), question, func(token string) error {
		return stream.WriteEvent("token", streamPayload{Type: "token", Content: token})
	})
	if err != nil {
		// The client going away cancels the request context; there is
		// nobody left to read an error event.
		if c.Request.Context().Err() != nil {
			return
		}
		_ = stream.WriteEvent("error", streamPayload{Type: "error", Content: err.Error()})
		return
	}

	if err := stream.WriteEvent("sources", streamPayload{Type: "sources", Content: result.Sources}); err != nil {
		return
	}
	_ = stream.WriteEvent("done", streamPayload{Type: "done"})
}
