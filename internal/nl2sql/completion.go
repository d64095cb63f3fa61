package nl2sql

import (
	"context"
	"errors"
)

type ModelID string

type Sender string

const (
	SenderUser      Sender = "User"
	SenderAssistant Sender = "Assistant"
)

type Message struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt"`
	Model        ModelID   `json:"model"`
	Temperature  float64   `json:"temperature"`
	Messages     []Message `json:"messages"`
	CallerID     string    `json:"caller_id"`
}

// ChoiceMessage.Content is nil when the service returned a choice without
// any content at all.
type ChoiceMessage struct {
	Content *string `json:"content"`
}

type Choice struct {
	Message ChoiceMessage `json:"message"`
}

type CompletionResponse struct {
	Choices []Choice `json:"choices"`
}

// CompletionClient sends one request to a text-generation service. A client
// reports transport failures as ErrServiceUnavailable and responses without
// a usable choice as ErrEmptyCompletion.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

var errNilContent = errors.New("first choice has no content")

func checkResponse(resp CompletionResponse) error {
	if len(resp.Choices) == 0 {
		return newError(ErrEmptyCompletion, StageCompletion, nil)
	}
	if resp.Choices[0].Message.Content == nil {
		return newError(ErrEmptyCompletion, StageCompletion, errNilContent)
	}
	return nil
}
