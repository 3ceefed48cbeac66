package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
)

type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (m *memFiles) Save(_ context.Context, originalName string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	id := fmt.Sprintf("cv_%d_%s", len(m.files)+1, originalName)
	m.files[id] = content
	return id, nil
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

// lineParser treats everything after the PDF header line as the text.
type lineParser struct{}

func (lineParser) ExtractText(content []byte) (string, error) {
	text := string(content)
	if strings.Contains(text, "corrupt") {
		return "", errors.New("malformed xref table")
	}
	_, body, _ := strings.Cut(text, "\n")
	return body, nil
}

// lineExtractor reads "name\nemail\nskill,skill" CV texts.
type lineExtractor struct {
	embedErr error
}

func (lineExtractor) EmbedQuery(context.Context, string) (Embeddings, error) {
	return Embeddings{Experience: []float32{1}, Skills: []float32{1}}, nil
}

func (lineExtractor) ExtractFields(_ context.Context, cvText string) (*models.CandidateInput, json.RawMessage, error) {
	lines := strings.Split(strings.TrimSpace(cvText), "\n")
	in := &models.CandidateInput{FullName: lines[0]}
	if len(lines) > 1 {
		in.Email = lines[1]
	}
	if len(lines) > 2 {
		in.Skills = strings.Split(lines[2], ",")
	}
	if err := in.Validate(); err != nil {
		return nil, nil, external(ServiceFieldExtraction, err)
	}
	raw, _ := json.Marshal(in)
	return in, raw, nil
}

func (e lineExtractor) EmbedCandidate(context.Context, *models.CandidateInput, string) (Embeddings, error) {
	if e.embedErr != nil {
		return Embeddings{}, external(ServiceEmbedding, e.embedErr)
	}
	return Embeddings{Experience: []float32{1, 0}, Skills: []float32{0, 1}}, nil
}

type memDocuments struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]*models.Document
	createErr error
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: make(map[uuid.UUID]*models.Document)}
}

func (m *memDocuments) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocuments) FindByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return d, nil
}

func (m *memDocuments) MarkProcessed(_ context.Context, id uuid.UUID, candidateID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id].Status = models.DocumentProcessed
	m.docs[id].CandidateID = &candidateID
	return nil
}

func (m *memDocuments) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id].Status = models.DocumentFailed
	m.docs[id].ErrorMessage = &msg
	return nil
}

type recordingIndex struct {
	mu       sync.Mutex
	upserted []uint
	deleted  []uint
	err      error
}

func (r *recordingIndex) InitCollection(context.Context) error { return nil }

func (r *recordingIndex) UpsertCandidate(_ context.Context, c *models.Candidate, _ Embeddings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, c.ID)
	return r.err
}

func (r *recordingIndex) SimilarCandidates(_ context.Context, id uint, _ Embeddings, limit int) ([]models.SimilarCandidate, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []models.SimilarCandidate{{CandidateID: id + 1, Score: 0.9}}[:min(limit, 1)], nil
}

func (r *recordingIndex) DeleteCandidate(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return r.err
}

func pdfFile(body string) []byte {
	return []byte("%PDF-1.4\n" + body)
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		wantErr  bool
	}{
		{"valid", "cv.pdf", pdfFile("Ada"), false},
		{"upper case extension", "CV.PDF", pdfFile("Ada"), false},
		{"wrong extension", "cv.docx", pdfFile("Ada"), true},
		{"empty", "cv.pdf", nil, true},
		{"too large", "cv.pdf", pdfFile(strings.Repeat("x", 100)), true},
		{"not a pdf", "cv.pdf", []byte("hello"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.content, 64)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestIngestCV(t *testing.T) {
	store := newMemStore()
	files := &memFiles{}
	docs := newMemDocuments()
	index := &recordingIndex{}
	s := NewIngestionService(store, files, lineParser{}, lineExtractor{}, 1<<20,
		WithDocumentLog(docs), WithVectorIndex(index))

	resp, err := s.IngestCV(context.Background(), "ada.pdf", pdfFile("Ada Lovelace\nada@example.com\nGo,SQL"))
	require.NoError(t, err)
	assert.False(t, resp.Replaced)
	assert.Equal(t, "ada.pdf", resp.OriginalName)
	require.NotNil(t, resp.Candidate)
	assert.Equal(t, "Ada Lovelace", resp.Candidate.FullName)
	require.NotNil(t, resp.Candidate.ExperienceEmbedding)
	assert.Equal(t, []float32{1, 0}, resp.Candidate.ExperienceEmbedding.Slice())
	assert.Len(t, files.files, 1)
	assert.Equal(t, []uint{resp.Candidate.ID}, index.upserted)

	doc, err := docs.FindByID(context.Background(), uuid.MustParse(resp.DocumentID))
	require.NoError(t, err)
	assert.Equal(t, models.DocumentProcessed, doc.Status)

	again, err := s.IngestCV(context.Background(), "ada-v2.pdf", pdfFile("Ada King\nada@example.com\nRust"))
	require.NoError(t, err)
	assert.True(t, again.Replaced, "same email replaces the candidate")
	assert.Equal(t, resp.Candidate.ID, again.Candidate.ID)

	stored, err := store.FindByID(context.Background(), resp.Candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada King", stored.FullName)
	require.Len(t, stored.Skills, 1)
	assert.Equal(t, "Rust", stored.Skills[0].Name)
}

func TestIngestCVFailures(t *testing.T) {
	tests := []struct {
		name        string
		files       *memFiles
		extractor   ExtractorService
		content     []byte
		wantService string
	}{
		{"unreadable pdf", &memFiles{}, lineExtractor{}, pdfFile("corrupt"), ServiceTextExtraction},
		{"no email", &memFiles{}, lineExtractor{}, pdfFile("Ada"), ServiceFieldExtraction},
		{"embedding failure", &memFiles{}, lineExtractor{embedErr: errors.New("timeout")}, pdfFile("Ada\nada@example.com"), ServiceEmbedding},
		{"file store failure", &memFiles{err: errors.New("disk full")}, lineExtractor{}, pdfFile("Ada\nada@example.com"), ServiceFileStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			docs := newMemDocuments()
			s := NewIngestionService(store, tt.files, lineParser{}, tt.extractor, 1<<20, WithDocumentLog(docs))

			_, err := s.IngestCV(context.Background(), "cv.pdf", tt.content)
			var ext *ExternalServiceError
			require.ErrorAs(t, err, &ext)
			assert.Equal(t, tt.wantService, ext.Service)
			assert.Empty(t, store.candidates)
			assert.Empty(t, tt.files.files, "the stored file is removed")

			for _, doc := range docs.docs {
				assert.Equal(t, models.DocumentFailed, doc.Status)
			}
		})
	}
}

func TestIngestCVDocumentLogFailureRemovesFile(t *testing.T) {
	files := &memFiles{}
	docs := newMemDocuments()
	docs.createErr = errors.New("connection reset")
	s := NewIngestionService(newMemStore(), files, lineParser{}, lineExtractor{}, 1<<20, WithDocumentLog(docs))

	_, err := s.IngestCV(context.Background(), "cv.pdf", pdfFile("Ada\nada@example.com"))
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, ServiceStore, ext.Service)
	assert.Empty(t, files.files)
}

func TestIngestCVIndexFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	index := &recordingIndex{err: errors.New("qdrant unavailable")}
	s := NewIngestionService(store, &memFiles{}, lineParser{}, lineExtractor{}, 1<<20, WithVectorIndex(index))

	resp, err := s.IngestCV(context.Background(), "cv.pdf", pdfFile("Ada\nada@example.com"))
	require.NoError(t, err)
	assert.NotZero(t, resp.Candidate.ID)
	assert.NotEqual(t, uuid.Nil.String(), resp.DocumentID)
}

func TestBatchProcessorPartialSuccess(t *testing.T) {
	store := newMemStore()
	ingestion := NewIngestionService(store, &memFiles{}, lineParser{}, lineExtractor{}, 1<<20)
	batch := NewBatchProcessor(ingestion, 2, nil)

	resp := batch.Process(context.Background(), []UploadFile{
		{Filename: "one.pdf", Content: pdfFile("One\none@example.com")},
		{Filename: "two.pdf", Content: pdfFile("corrupt")},
		{Filename: "three.pdf", Content: pdfFile("Three\nthree@example.com")},
		{Filename: "four.pdf", ReadErr: errors.New("connection reset")},
		{Filename: "five.txt", Content: []byte("plain text")},
	})

	require.Len(t, resp.SuccessfulUploads, 2)
	assert.Equal(t, "one.pdf", resp.SuccessfulUploads[0].OriginalName)
	assert.Equal(t, "three.pdf", resp.SuccessfulUploads[1].OriginalName)

	require.Len(t, resp.FailedUploads, 3)
	assert.Equal(t, "two.pdf", resp.FailedUploads[0].Filename)
	assert.Equal(t, "four.pdf", resp.FailedUploads[1].Filename)
	assert.Equal(t, "connection reset", resp.FailedUploads[1].Error)
	assert.Equal(t, "five.txt", resp.FailedUploads[2].Filename)
	assert.Len(t, store.candidates, 2)
}

type panickingIngestion struct{}

func (panickingIngestion) IngestCV(context.Context, string, []byte) (*models.UploadResponse, error) {
	panic("boom")
}

func TestBatchProcessorRecoversFromPanics(t *testing.T) {
	resp := NewBatchProcessor(panickingIngestion{}, 1, nil).Process(context.Background(), []UploadFile{
		{Filename: "a.pdf", Content: pdfFile("x")},
		{Filename: "b.pdf", Content: pdfFile("y")},
	})
	assert.Empty(t, resp.SuccessfulUploads)
	assert.Len(t, resp.FailedUploads, 2)
}

func TestBatchProcessorEmpty(t *testing.T) {
	resp := NewBatchProcessor(panickingIngestion{}, 3, nil).Process(context.Background(), nil)
	assert.NotNil(t, resp.SuccessfulUploads)
	assert.NotNil(t, resp.FailedUploads)
	assert.Empty(t, resp.FailedUploads)
}
