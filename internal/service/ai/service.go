// Package ai wraps the chat-completion providers behind a single streaming
// interface. DeepSeek is reached through the OpenAI-compatible component.
package ai

import (
	"context"
	"fmt"

	"github.com/lbj0223/AI/internal/config"
	"github.com/lbj0223/AI/internal/models"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const deepseekBaseURL = "https://api.deepseek.com"

// Service drives one configured chat model.
type Service struct {
	chatModel model.ToolCallingChatModel
}

// NewService builds the chat model for the named provider.
func NewService(ctx context.Context, provider string, provCfg config.ProviderConfig) (*Service, error) {
	if provCfg.APIKey == "" {
		return nil, fmt.Errorf("api key for provider %s not configured", provider)
	}

	var (
		chatModel model.ToolCallingChatModel
		err       error
	)
	switch provider {
	case "deepseek", "openai":
		baseURL := provCfg.BaseURL
		if provider == "deepseek" && baseURL == "" {
			baseURL = deepseekBaseURL
		}
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: baseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: provCfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s chat model: %w", provider, err)
	}

	return &Service{chatModel: chatModel}, nil
}

// StreamChat sends the system instruction plus the session history and
// consumes the streamed reply. onDelta receives the accumulated text after
// each fragment; the fully concatenated reply is returned at the end.
func (s *Service) StreamChat(ctx context.Context, system string, history []models.Message, onDelta func(string) error) (string, error) {
	messages := convertMessages(system, history)

	streamReader, err := s.chatModel.Stream(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("start chat stream: %w", err)
	}

	var fullContent string
	for {
		chunk, err := streamReader.Recv()
		if err != nil {
			// stream finished
			break
		}
		fullContent += chunk.Content
		if onDelta != nil {
			if err := onDelta(fullContent); err != nil {
				return "", err
			}
		}
	}
	return fullContent, nil
}

// Generate performs a single non-streamed completion for the prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return resp.Content, nil
}

func convertMessages(system string, history []models.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+1)
	if system != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: system})
	}
	for _, msg := range history {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleUser:
			role = schema.User
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: msg.Content})
	}
	return messages
}
