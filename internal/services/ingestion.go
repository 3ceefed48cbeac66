package services

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
)

// IngestionService turns an uploaded CV file into a stored candidate.
type IngestionService interface {
	IngestCV(ctx context.Context, filename string, content []byte) (*models.UploadResponse, error)
}

type ingestionService struct {
	candidates  repositories.CandidateRepository
	documents   repositories.DocumentRepository
	storage     StorageService
	parser      PDFParserService
	extractor   ExtractorService
	index       VectorIndex
	maxFileSize int64
	logger      *slog.Logger
}

type IngestionOption func(*ingestionService)

func WithIngestionLogger(logger *slog.Logger) IngestionOption {
	return func(s *ingestionService) {
		s.logger = logger.With("component", "ingestion")
	}
}

// WithVectorIndex mirrors every ingested candidate into index.
func WithVectorIndex(index VectorIndex) IngestionOption {
	return func(s *ingestionService) {
		s.index = index
	}
}

// WithDocumentLog records every upload and its outcome.
func WithDocumentLog(documents repositories.DocumentRepository) IngestionOption {
	return func(s *ingestionService) {
		s.documents = documents
	}
}

func NewIngestionService(
	candidates repositories.CandidateRepository,
	storage StorageService,
	parser PDFParserService,
	extractor ExtractorService,
	maxFileSize int64,
	opts ...IngestionOption,
) IngestionService {
	s := &ingestionService{
		candidates:  candidates,
		storage:     storage,
		parser:      parser,
		extractor:   extractor,
		maxFileSize: maxFileSize,
		logger:      slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateUpload checks the name, size and header of an uploaded CV.
func ValidateUpload(filename string, content []byte, maxFileSize int64) error {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".pdf" {
		return newValidationError("file", "only PDF files are accepted, got %q", ext)
	}
	if len(content) == 0 {
		return newValidationError("file", "file is empty")
	}
	if maxFileSize > 0 && int64(len(content)) > maxFileSize {
		return newValidationError("file", "file exceeds the %d byte limit", maxFileSize)
	}
	if !IsPDF(content) {
		return newValidationError("file", "file is not a valid PDF document")
	}
	return nil
}

// IngestCV stores the file, extracts and embeds the candidate, and creates
// it. A CV whose email already belongs to a candidate replaces that
// candidate's data.
func (s *ingestionService) IngestCV(ctx context.Context, filename string, content []byte) (*models.UploadResponse, error) {
	if err := ValidateUpload(filename, content, s.maxFileSize); err != nil {
		return nil, err
	}

	storageID, err := s.storage.Save(ctx, filename, content)
	if err != nil {
		return nil, external(ServiceFileStore, err)
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         filepath.Base(storageID),
		OriginalFileName: filename,
		FileType:         "cv",
		StorageID:        storageID,
		Size:             int64(len(content)),
		Status:           models.DocumentStored,
	}
	if s.documents != nil {
		if err := s.documents.Create(ctx, doc); err != nil {
			s.discard(ctx, storageID)
			return nil, external(ServiceStore, err)
		}
	}

	candidate, replaced, err := s.process(ctx, storageID, content)
	if err != nil {
		s.markFailed(ctx, doc, err)
		s.discard(ctx, storageID)
		return nil, err
	}

	if s.documents != nil {
		if err := s.documents.MarkProcessed(ctx, doc.ID, candidate.ID); err != nil {
			s.logger.Warn("failed to mark document processed", "document", doc.ID, "err", err)
		}
	}

	s.logger.Info("cv ingested", "file", filename, "candidate", candidate.ID, "replaced", replaced)

	return &models.UploadResponse{
		DocumentID:   doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: filename,
		Replaced:     replaced,
		Candidate:    candidate,
	}, nil
}

func (s *ingestionService) process(ctx context.Context, storageID string, content []byte) (*models.Candidate, bool, error) {
	text, err := s.parser.ExtractText(content)
	if err != nil {
		return nil, false, external(ServiceTextExtraction, err)
	}

	input, raw, err := s.extractor.ExtractFields(ctx, text)
	if err != nil {
		return nil, false, err
	}

	emb, err := s.extractor.EmbedCandidate(ctx, input, text)
	if err != nil {
		return nil, false, err
	}

	candidate := input.ToCandidate()
	candidate.CVFileID = &storageID
	candidate.CVText = &text
	candidate.RawExtraction = datatypes.JSON(raw)
	setEmbeddings(&candidate, emb)

	replaced, err := s.save(ctx, &candidate, input.SkillNames())
	if err != nil {
		return nil, false, err
	}

	mirror(ctx, s.index, s.logger, &candidate, emb)
	return &candidate, replaced, nil
}

func (s *ingestionService) save(ctx context.Context, candidate *models.Candidate, skills []string) (bool, error) {
	existing, err := s.candidates.FindByEmail(ctx, candidate.Email)
	switch {
	case err == nil:
		return true, storeError(s.candidates.Replace(ctx, existing.ID, candidate, skills))
	case !errors.Is(err, repositories.ErrNotFound):
		return false, external(ServiceStore, err)
	}

	err = s.candidates.Create(ctx, candidate, skills)
	if errors.Is(err, repositories.ErrDuplicateEmail) {
		// Another upload created the same email in the meantime.
		existing, findErr := s.candidates.FindByEmail(ctx, candidate.Email)
		if findErr != nil {
			return false, external(ServiceStore, findErr)
		}
		candidate.ID = 0
		return true, storeError(s.candidates.Replace(ctx, existing.ID, candidate, skills))
	}
	return false, storeError(err)
}

func (s *ingestionService) markFailed(ctx context.Context, doc *models.Document, cause error) {
	if s.documents == nil {
		return
	}
	if err := s.documents.MarkFailed(ctx, doc.ID, cause.Error()); err != nil {
		s.logger.Warn("failed to mark document failed", "document", doc.ID, "err", err)
	}
}

// discard removes the stored file of an upload that produced no candidate.
func (s *ingestionService) discard(ctx context.Context, storageID string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), storageID); err != nil {
		s.logger.Warn("failed to remove stored file", "storage_id", storageID, "err", err)
	}
}

func setEmbeddings(c *models.Candidate, emb Embeddings) {
	experience := pgvector.NewVector(emb.Experience)
	skills := pgvector.NewVector(emb.Skills)
	c.ExperienceEmbedding = &experience
	c.SkillsEmbedding = &skills
}

// mirror copies a candidate into the vector index. Index failures are
// logged and otherwise ignored.
func mirror(ctx context.Context, index VectorIndex, logger *slog.Logger, c *models.Candidate, emb Embeddings) {
	if index == nil {
		return
	}
	if err := index.UpsertCandidate(ctx, c, emb); err != nil {
		logger.Warn("failed to mirror candidate into vector index", "candidate", c.ID, "err", err)
	}
}

// storeError maps repository errors onto the service error kinds.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return ErrDuplicateEmail
	default:
		return external(ServiceStore, err)
	}
}
