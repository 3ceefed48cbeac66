package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/NaguKun/Analyseur-de-CV/internal/config"
)

type openAIService struct {
	client     llms.Model
	embedder   embeddings.Embedder
	embedModel string
	logger     *slog.Logger
}

// NewOpenAIService talks to any OpenAI-compatible endpoint through langchaingo.
func NewOpenAIService(cfg config.LLMConfig, logger *slog.Logger) (LLMService, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai embedder: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &openAIService{
		client:     client,
		embedder:   embedder,
		embedModel: cfg.EmbeddingModel,
		logger:     logger.With("component", "openai"),
	}, nil
}

func (o *openAIService) EmbeddingModel() string {
	return o.embedModel
}

func (o *openAIService) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	truncated := make([]string, len(texts))
	for i, text := range texts {
		if len(text) > maxEmbeddingInput {
			text = text[:maxEmbeddingInput]
		}
		truncated[i] = text
	}

	vectors, err := o.embedder.EmbedDocuments(ctx, truncated)
	if err != nil {
		o.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result does not match input count %d", len(texts))
	}
	return vectors, nil
}

func (o *openAIService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	response, err := o.client.GenerateContent(ctx, content,
		llms.WithTemperature(float64(temperature)),
		llms.WithJSONMode(),
	)
	if err != nil {
		o.logger.Error("openai request failed", "err", err)
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return response.Choices[0].Content, nil
}
