package llm

import (
	"log/slog"
	"os"
	"time"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewClientFactory returns a factory for clients of the upstream at baseURL.
// If GOGO_MODE=MOCK, the factory returns a shared MockClient instead.
func NewClientFactory(baseURL string, timeout time.Duration) ClientFactory {
	if os.Getenv(EnvGogoMode) == ModeMock {
		slog.Info("GOGO_MODE=MOCK detected, using mock LLM client")
		mock := NewMockClient()
		return func(string) LLMClient { return mock }
	}

	return func(apiKey string) LLMClient {
		return NewClient(baseURL, apiKey, timeout)
	}
}
