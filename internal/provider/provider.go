package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"sevensons/internal/registry"
)

// Completer issues one completion request and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message) (string, error)
}

type chatModelCompleter struct {
	chatModel model.BaseChatModel
}

func (c *chatModelCompleter) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Content, nil
}

// Default hosts for the OpenAI-wire-compatible providers.
const (
	chatAnywhereHost = "https://api.chatanywhere.tech"
	dmxAPIHost       = "https://www.dmxapi.com"
)

// New builds a completer for the resolved source. chatanywhere and dmxapi
// speak the OpenAI wire protocol and reuse the openai adapter with a custom
// base URL.
func New(ctx context.Context, src *registry.CompletionSource) (Completer, error) {
	if src == nil {
		return nil, fmt.Errorf("completion source required")
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	temperature := src.Temperature
	maxTokens := src.MaxTokens

	switch src.Provider {
	case "openai", "chatanywhere", "dmxapi":
		baseURL := src.Host
		if baseURL == "" {
			switch src.Provider {
			case "chatanywhere":
				baseURL = chatAnywhereHost
			case "dmxapi":
				baseURL = dmxAPIHost
			}
		}
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     normalizeBaseURL(baseURL),
			Model:       src.Model,
			APIKey:      src.APIKey,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
	case "anthropic":
		var baseURLPtr *string
		if src.Host != "" {
			host := src.Host
			baseURLPtr = &host
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:      src.APIKey,
			Model:       src.Model,
			BaseURL:     baseURLPtr,
			MaxTokens:   maxTokens,
			Temperature: &temperature,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: src.APIKey})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  src.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", src.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", src.Provider, err)
	}
	return &chatModelCompleter{chatModel: chatModel}, nil
}

// normalizeBaseURL tolerates hosts written with or without /v1 or the full
// /chat/completions path and reduces them to the /v1 base the adapter wants.
func normalizeBaseURL(host string) string {
	if host == "" {
		return ""
	}
	clean := strings.TrimRight(strings.TrimSpace(host), "/")
	clean = strings.TrimSuffix(clean, "/chat/completions")
	if !strings.HasSuffix(clean, "/v1") {
		clean += "/v1"
	}
	return clean
}
