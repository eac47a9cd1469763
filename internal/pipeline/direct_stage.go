package pipeline

import (
	"context"

	"qroute/internal/llm"
)

// DirectStage answers a query with a single plain completion
type DirectStage struct {
	client llm.Client
	model  string
}

func NewDirectStage(client llm.Client, model string) *DirectStage {
	return &DirectStage{client: client, model: model}
}

// Run returns the model's answer verbatim. Errors are returned unwrapped;
// Process marks them with ErrDirectCompletion.
func (s *DirectStage) Run(ctx context.Context, query string) (string, error) {
	conv, err := s.converse(ctx, query)
	if err != nil {
		return "", err
	}
	last, _ := conv.Last()
	return last.Content, nil
}

func (s *DirectStage) converse(ctx context.Context, query string) (*Conversation, error) {
	conv := NewConversation()
	conv.Append(llm.Message{Role: llm.RoleSystem, Content: directSystemPrompt})
	conv.Append(llm.Message{Role: llm.RoleUser, Content: query})

	resp, err := s.client.Chat(ctx, &llm.ChatRequest{
		Model:    s.model,
		Messages: conv.Messages(),
	})
	if err == nil && resp == nil {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		return nil, err
	}

	msg := resp.Message
	msg.Role = llm.RoleAssistant
	conv.Append(msg)
	return conv, nil
}
