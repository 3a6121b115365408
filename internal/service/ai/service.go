package ai

import (
	"context"
	"fmt"

	"github.com/docchat-app/docchat/internal/config"
	"github.com/docchat-app/docchat/internal/model/chat"
)

// systemPrompt is the fixed instruction sent with every request.
const systemPrompt = "You are a concise, helpful assistant. Answer using the conversation so far and any attached documents."

// Service fronts the configured inference provider.
type Service struct {
	provider Provider
	cfg      config.AIConfig
}

// NewService builds the provider selected by configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err = newGemini(ctx, cfg)
	case config.ProviderArk:
		provider, err = newArk(ctx, cfg)
	default:
		err = fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &Service{provider: provider, cfg: cfg}, nil
}

// StreamReply re-serializes the history and dispatches one inference call.
// The returned stream must be drained and closed by the caller.
func (s *Service) StreamReply(ctx context.Context, history []chat.Turn) (Stream, error) {
	req := Request{
		System:      systemPrompt,
		Messages:    HistoryFromTurns(history),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	stream, err := s.provider.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("invoke chat provider: %w", err)
	}
	return stream, nil
}

// Close releases the underlying provider client.
func (s *Service) Close() error {
	return s.provider.Close()
}
