package registry

import (
	"strings"

	"sevensons/internal/models"
)

// CompletionSource is the resolved set of parameters for one live completion
// call. A nil source means the role runs on the demo fallback.
type CompletionSource struct {
	Provider     string
	APIKey       string
	Host         string
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// Substrings that mark a credential as a placeholder rather than a real key.
var placeholderMarkers = []string{
	"your_",
	"your-api-key",
	"test-demo-key",
	"sk-test-",
}

func isPlaceholder(key string) bool {
	for _, marker := range placeholderMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

// validCredential applies the per-provider prefix/length heuristic. It is a
// syntactic check only; a key that passes may still be rejected upstream.
func validCredential(provider, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" || isPlaceholder(key) {
		return false
	}
	switch provider {
	case "openai":
		return strings.HasPrefix(key, "sk-") && len(key) >= 20
	case "anthropic":
		return strings.HasPrefix(key, "sk-ant-") && len(key) >= 20
	case "chatanywhere":
		return strings.HasPrefix(key, "sk-") && len(key) >= 10
	case "dmxapi", "gemini":
		return len(key) >= 10
	default:
		return false
	}
}

// ResolveCompletionSource decides whether a role may make a live completion
// call. It is a pure function of the role and process configuration: no I/O,
// deterministic, idempotent. The second result is false when the role must
// use the demo fallback.
func (r *Registry) ResolveCompletionSource(role models.Role) (*CompletionSource, bool) {
	if r.demoMode {
		return nil, false
	}
	cc := role.Completion
	provider := "chatanywhere"
	if cc != nil && cc.Provider != "" {
		provider = cc.Provider
	}

	src := &CompletionSource{Provider: provider}
	if cc != nil {
		src.Host = cc.Host
		src.Model = cc.Model
		src.Temperature = cc.Temperature
		src.MaxTokens = cc.MaxTokens
		src.SystemPrompt = cc.SystemPrompt
	}

	fallback, hasFallback := r.providers[provider]

	switch {
	case cc != nil && validCredential(provider, cc.APIKey):
		src.APIKey = strings.TrimSpace(cc.APIKey)
	case hasFallback && validCredential(provider, fallback.APIKey):
		src.APIKey = strings.TrimSpace(fallback.APIKey)
	default:
		return nil, false
	}

	if src.Host == "" && hasFallback {
		src.Host = fallback.BaseURL
	}
	if src.Model == "" {
		if hasFallback && fallback.Model != "" {
			src.Model = fallback.Model
		} else {
			src.Model = "gpt-3.5-turbo"
		}
	}
	if src.MaxTokens <= 0 {
		src.MaxTokens = 1000
	}
	if src.Temperature <= 0 {
		src.Temperature = 0.7
	}
	return src, true
}
