package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
)

// CandidateService manages stored candidates outside of ingestion.
type CandidateService interface {
	Get(ctx context.Context, id uint) (*models.Candidate, error)
	List(ctx context.Context, page Page) ([]models.Candidate, error)
	Update(ctx context.Context, id uint, in *models.CandidateInput) (*models.Candidate, error)
	Delete(ctx context.Context, id uint) error
	Similar(ctx context.Context, id uint, limit int) ([]models.SimilarCandidate, error)
	Reembed(ctx context.Context, id uint) error
}

type candidateService struct {
	candidates repositories.CandidateRepository
	extractor  ExtractorService
	index      VectorIndex
	logger     *slog.Logger
}

// NewCandidateService builds the service. index may be nil when Qdrant is
// not configured.
func NewCandidateService(
	candidates repositories.CandidateRepository,
	extractor ExtractorService,
	index VectorIndex,
	logger *slog.Logger,
) CandidateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &candidateService{
		candidates: candidates,
		extractor:  extractor,
		index:      index,
		logger:     logger.With("component", "candidates"),
	}
}

func (s *candidateService) Get(ctx context.Context, id uint) (*models.Candidate, error) {
	c, err := s.candidates.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return c, nil
}

func (s *candidateService) List(ctx context.Context, page Page) ([]models.Candidate, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	candidates, err := s.candidates.List(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, storeError(err)
	}
	return candidates, nil
}

// Update replaces the candidate's fields, owned records and skill links,
// then recomputes its embeddings.
func (s *candidateService) Update(ctx context.Context, id uint, in *models.CandidateInput) (*models.Candidate, error) {
	if err := in.Validate(); err != nil {
		var fe *models.FieldError
		if errors.As(err, &fe) {
			return nil, &ValidationError{Field: fe.Field, Message: fe.Message}
		}
		return nil, newValidationError("candidate", "%v", err)
	}

	existing, err := s.candidates.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	updated := in.ToCandidate()
	if owner, err := s.candidates.FindByEmail(ctx, updated.Email); err == nil && owner.ID != id {
		return nil, ErrDuplicateEmail
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, storeError(err)
	}

	cvText := ""
	if existing.CVText != nil {
		cvText = *existing.CVText
	}
	emb, err := s.extractor.EmbedCandidate(ctx, in, cvText)
	if err != nil {
		return nil, err
	}

	updated.CVFileID = existing.CVFileID
	updated.CVText = existing.CVText
	updated.RawExtraction = existing.RawExtraction
	setEmbeddings(&updated, emb)

	if err := s.candidates.Replace(ctx, id, &updated, in.SkillNames()); err != nil {
		return nil, storeError(err)
	}
	mirror(ctx, s.index, s.logger, &updated, emb)

	return s.Get(ctx, id)
}

// Delete removes the candidate with its owned records. Shared skills stay.
func (s *candidateService) Delete(ctx context.Context, id uint) error {
	if err := s.candidates.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	if s.index != nil {
		if err := s.index.DeleteCandidate(ctx, id); err != nil {
			s.logger.Warn("failed to remove candidate from vector index", "candidate", id, "err", err)
		}
	}
	s.logger.Info("candidate deleted", "candidate", id)
	return nil
}

// Similar returns the candidates closest to id in the vector index.
func (s *candidateService) Similar(ctx context.Context, id uint, limit int) ([]models.SimilarCandidate, error) {
	if s.index == nil {
		return nil, ErrVectorIndexDisabled
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, newValidationError("limit", "must be between 1 and %d, got %d", MaxPageLimit, limit)
	}

	c, err := s.candidates.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if c.ExperienceEmbedding == nil || c.SkillsEmbedding == nil {
		return []models.SimilarCandidate{}, nil
	}

	similar, err := s.index.SimilarCandidates(ctx, id, Embeddings{
		Experience: c.ExperienceEmbedding.Slice(),
		Skills:     c.SkillsEmbedding.Slice(),
	}, limit)
	if err != nil {
		return nil, external(ServiceVectorIndex, err)
	}
	return similar, nil
}

// Reembed recomputes and stores the embeddings of a candidate from its
// stored record, for example after the embedding model changed.
func (s *candidateService) Reembed(ctx context.Context, id uint) error {
	c, err := s.candidates.FindByID(ctx, id)
	if err != nil {
		return storeError(err)
	}

	in := c.ToInput()
	cvText := ""
	if c.CVText != nil {
		cvText = *c.CVText
	}

	emb, err := s.extractor.EmbedCandidate(ctx, &in, cvText)
	if err != nil {
		return err
	}
	if err := s.candidates.UpdateEmbeddings(ctx, id, emb.Experience, emb.Skills); err != nil {
		return storeError(err)
	}
	mirror(ctx, s.index, s.logger, c, emb)
	return nil
}
