package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NaguKun/Analyseur-de-CV/internal/config"
)

// LLMService is the model provider used for field extraction and embeddings.
type LLMService interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
}

// NewLLMService builds the provider selected by cfg.Provider.
func NewLLMService(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (LLMService, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiService(ctx, cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
