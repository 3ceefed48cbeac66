package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

// Embeddings is the pair of vectors stored per candidate and computed per query.
type Embeddings struct {
	Experience []float32
	Skills     []float32
}

// QueryEmbedder turns a free-text query into the two query vectors.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) (Embeddings, error)
}

// ExtractorService turns CV text into structured fields and embeddings.
type ExtractorService interface {
	QueryEmbedder
	ExtractFields(ctx context.Context, cvText string) (*models.CandidateInput, json.RawMessage, error)
	EmbedCandidate(ctx context.Context, in *models.CandidateInput, cvText string) (Embeddings, error)
}

const (
	extractionTemperature = 0.1
	cvChunkSize           = 2000
	cvChunkOverlap        = 200
	maxCVChunks           = 8
)

type extractorService struct {
	llm        LLMService
	prompts    *PromptBuilder
	chunker    TextChunker
	dimension  int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

type ExtractorOption func(*extractorService)

func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *extractorService) {
		e.logger = logger.With("component", "extractor")
	}
}

func WithRetries(maxRetries int, delay time.Duration) ExtractorOption {
	return func(e *extractorService) {
		e.maxRetries = maxRetries
		e.retryDelay = delay
	}
}

func NewExtractorService(llm LLMService, dimension int, opts ...ExtractorOption) ExtractorService {
	e := &extractorService{
		llm:        llm,
		prompts:    NewPromptBuilder(),
		chunker:    NewTextChunker(),
		dimension:  dimension,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		logger:     slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFields asks the model for the candidate's structured fields and
// validates them. The raw JSON is returned for auditing.
func (e *extractorService) ExtractFields(ctx context.Context, cvText string) (*models.CandidateInput, json.RawMessage, error) {
	prompt := e.prompts.BuildExtractionPrompt(cvText)
	e.logger.Debug("extracting fields", "prompt_length", len(prompt))

	var (
		input models.CandidateInput
		raw   string
	)
	err := RetryWithBackoff(ctx, func() error {
		response, err := e.llm.GenerateText(ctx, prompt, extractionTemperature)
		if err != nil {
			return err
		}
		raw = extractJSON(response)
		input = models.CandidateInput{}
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			repaired := repairJSON(raw)
			if err2 := json.Unmarshal([]byte(repaired), &input); err2 != nil {
				return fmt.Errorf("failed to unmarshal extraction: %w", err)
			}
			raw = repaired
		}
		return nil
	}, e.maxRetries, e.retryDelay)
	if err != nil {
		return nil, nil, external(ServiceFieldExtraction, err)
	}

	if err := input.Validate(); err != nil {
		return nil, nil, external(ServiceFieldExtraction, err)
	}

	return &input, json.RawMessage(raw), nil
}

// EmbedCandidate computes the experience and skills vectors in one batch.
// Without any work history the experience vector is the mean of the CV
// text chunks.
func (e *extractorService) EmbedCandidate(ctx context.Context, in *models.CandidateInput, cvText string) (Embeddings, error) {
	skillsText := e.prompts.BuildSkillsText(in)
	experienceTexts := []string{e.prompts.BuildExperienceText(in)}
	if strings.TrimSpace(experienceTexts[0]) == "" {
		experienceTexts = e.chunker.ChunkText(cvText, cvChunkSize, cvChunkOverlap)
		if len(experienceTexts) > maxCVChunks {
			experienceTexts = experienceTexts[:maxCVChunks]
		}
		if len(experienceTexts) == 0 {
			experienceTexts = []string{in.FullName}
		}
	}

	vectors, err := e.embed(ctx, append([]string{skillsText}, experienceTexts...))
	if err != nil {
		return Embeddings{}, err
	}

	return Embeddings{
		Skills:     vectors[0],
		Experience: meanVector(vectors[1:]),
	}, nil
}

func (e *extractorService) EmbedQuery(ctx context.Context, query string) (Embeddings, error) {
	experienceText, skillsText := e.prompts.BuildQueryTexts(query)
	vectors, err := e.embed(ctx, []string{experienceText, skillsText})
	if err != nil {
		return Embeddings{}, err
	}
	return Embeddings{Experience: vectors[0], Skills: vectors[1]}, nil
}

func (e *extractorService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = e.llm.GenerateEmbeddings(ctx, texts)
		return err
	}, e.maxRetries, e.retryDelay)
	if err != nil {
		return nil, external(ServiceEmbedding, err)
	}

	if len(vectors) != len(texts) {
		return nil, external(ServiceEmbedding, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}
	for _, v := range vectors {
		if e.dimension > 0 && len(v) != e.dimension {
			return nil, external(ServiceEmbedding, fmt.Errorf("embedding has %d dimensions, expected %d", len(v), e.dimension))
		}
	}
	return vectors, nil
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 1 {
		return vectors[0]
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	mean := make([]float32, len(sum))
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vectors)))
	}
	return mean
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// repairJSON fixes the mistakes models most often make in otherwise valid JSON.
func repairJSON(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("“", `"`, "”", `"`).Replace(s)
	return s
}
