package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
)

// ListModels lists the upstream models visible to the server-side credential.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	key, err := s.resolveAPIKey(ctx, "")
	if err != nil {
		return nil, err
	}
	models, err := s.clients(key).ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// DetectIntent reports whether message asks for visual analysis.
func (s *Service) DetectIntent(message string) bool {
	return s.intent.IsVision(message)
}
