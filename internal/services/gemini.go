package services

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/NaguKun/Analyseur-de-CV/internal/config"
)

// maxEmbeddingInput caps the characters sent per embedding input.
const maxEmbeddingInput = 40000

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	logger     *slog.Logger
}

func NewGeminiService(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (LLMService, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &geminiService{
		client:     client,
		modelName:  cfg.Model,
		embedModel: cfg.EmbeddingModel,
		logger:     logger.With("component", "gemini"),
	}, nil
}

func (g *geminiService) EmbeddingModel() string {
	return g.embedModel
}

// GenerateEmbeddings embeds texts in one request. The result is aligned
// with texts.
func (g *geminiService) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if len(text) > maxEmbeddingInput {
			text = text[:maxEmbeddingInput]
		}
		contents = append(contents, genai.Text(text)...)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding result does not match input count %d", len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		g.logger.Error("gemini request failed", "err", err)
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		g.logger.Warn("gemini response has no text", "candidates", len(resp.Candidates))
		return "", fmt.Errorf("no text content in response")
	}

	g.logger.Debug("gemini response received", "length", len(text))
	return text, nil
}
