// Package service implements the relay's use cases on top of the store,
// the upstream client and the live alert hub.
package service

import (
	"context"
	"log/slog"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
	"github.com/xiaot623/seawatch/internal/adapter/paramstore"
	"github.com/xiaot623/seawatch/internal/chat"
	"github.com/xiaot623/seawatch/internal/config"
	"github.com/xiaot623/seawatch/internal/domain"
	"github.com/xiaot623/seawatch/internal/intent"
	"github.com/xiaot623/seawatch/internal/repository"
	"github.com/xiaot623/seawatch/internal/tools"
)

// AlertPublisher receives a notice for every tool invocation of a committed turn.
type AlertPublisher interface {
	Publish(notice domain.AlertNotice)
}

// SeverityGrader grades tool invocations for alert notices.
type SeverityGrader interface {
	Severity(ctx context.Context, sessionID string, inv domain.ToolInvocation) (domain.Severity, error)
}

// Service coordinates sessions and turns.
type Service struct {
	store    repository.Store
	clients  llm.ClientFactory
	config   *config.Config
	builder  *chat.Builder
	registry *tools.Registry
	intent   *intent.Detector
	grader   SeverityGrader
	alerts   AlertPublisher
	keys     paramstore.KeySource
	logger   *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithAlerts publishes tool invocations, graded by grader, to alerts.
func WithAlerts(alerts AlertPublisher, grader SeverityGrader) Option {
	return func(s *Service) {
		s.alerts = alerts
		s.grader = grader
	}
}

// WithKeySource sets the fallback source for the upstream API key.
func WithKeySource(keys paramstore.KeySource) Option {
	return func(s *Service) { s.keys = keys }
}

// WithRegistry replaces the default tool registry.
func WithRegistry(r *tools.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(store repository.Store, clients llm.ClientFactory, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clients:  clients,
		config:   cfg,
		builder:  chat.NewBuilder(cfg.SystemPrompt, cfg.HistoryWindow),
		registry: tools.DefaultRegistry,
		intent:   intent.NewDetector(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolveAPIKey prefers the per-request key, then the configured key, then
// the parameter store.
func (s *Service) resolveAPIKey(ctx context.Context, requestKey string) (string, error) {
	if requestKey != "" {
		return requestKey, nil
	}
	if s.config.LLMAPIKey != "" {
		return s.config.LLMAPIKey, nil
	}
	if s.keys != nil {
		key, err := s.keys.APIKey(ctx)
		if err == nil {
			return key, nil
		}
		s.logger.Warn("failed to read api key from parameter store", "error", err)
	}
	return "", domain.ErrMissingAPIKey
}
