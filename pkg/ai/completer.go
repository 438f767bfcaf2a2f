package ai

import (
	"context"
	"fmt"
	"strings"
)

// Completer turns one prompt into one completion.
// All providers (Ollama, Gemini, OpenAI-compatible) implement this interface.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const (
	ProviderOllama       = "ollama"
	ProviderGemini       = "gemini"
	ProviderOpenAICompat = "openai-compat"
)

// Config selects a provider and model.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// NewCompleter builds the Completer for cfg.Provider (ollama when empty).
func NewCompleter(cfg Config) (Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOllama
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("generation model required")
	}
	switch provider {
	case ProviderOllama:
		return NewOllamaCompleter(NewOllamaClient(cfg.BaseURL), cfg.Model), nil
	case ProviderGemini:
		client, err := NewGeminiClient(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.BaseURL) != "" {
			client.baseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		}
		return NewGeminiCompleter(client, cfg.Model), nil
	case ProviderOpenAICompat:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("openai-compat base URL required")
		}
		return NewOpenAICompatCompleter(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
