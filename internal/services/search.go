package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
)

// DefaultSimilarityThreshold is the minimum mean cosine similarity a
// candidate needs to appear in semantic results.
const DefaultSimilarityThreshold = 0.8

// SearchService answers structural and semantic candidate searches.
type SearchService interface {
	FilterCandidates(ctx context.Context, criteria Criteria, page Page) ([]models.Candidate, error)
	SemanticSearch(ctx context.Context, query string, criteria Criteria, page Page) ([]models.RankedCandidate, error)
	Skills(ctx context.Context, limit int) ([]string, error)
	Locations(ctx context.Context, limit int) ([]string, error)
	Hydrate(ctx context.Context, ids []uint) ([]models.Candidate, error)
	Close()
}

type searchService struct {
	store      repositories.SearchRepository
	candidates repositories.CandidateRepository
	embedder   QueryEmbedder
	pool       *ants.Pool
	poolSize   int
	threshold  float64
	foldCase   bool
	now        func() time.Time
	logger     *slog.Logger
}

type SearchOption func(*searchService)

func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(s *searchService) {
		s.logger = logger.With("component", "search")
	}
}

// WithThreshold sets the semantic similarity cut-off. Scores equal to the
// threshold are kept.
func WithThreshold(threshold float64) SearchOption {
	return func(s *searchService) {
		s.threshold = threshold
	}
}

// WithCaseFolding makes required-skill and degree matching case-insensitive.
func WithCaseFolding(enabled bool) SearchOption {
	return func(s *searchService) {
		s.foldCase = enabled
	}
}

func WithPoolSize(size int) SearchOption {
	return func(s *searchService) {
		s.poolSize = size
	}
}

func WithClock(now func() time.Time) SearchOption {
	return func(s *searchService) {
		s.now = now
	}
}

func NewSearchService(
	store repositories.SearchRepository,
	candidates repositories.CandidateRepository,
	embedder QueryEmbedder,
	opts ...SearchOption,
) (SearchService, error) {
	s := &searchService{
		store:      store,
		candidates: candidates,
		embedder:   embedder,
		poolSize:   8,
		threshold:  DefaultSimilarityThreshold,
		now:        time.Now,
		logger:     slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search pool: %w", err)
	}
	s.pool = pool

	return s, nil
}

func (s *searchService) Close() {
	s.pool.Release()
}

// FilterCandidates returns the page of candidates satisfying every active
// criterion, ordered by ascending id.
func (s *searchService) FilterCandidates(ctx context.Context, criteria Criteria, page Page) ([]models.Candidate, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := newFilterRun(criteria.Filters(s.foldCase, s.now))
	runTasks(s.pool, run.tasks(ctx, s.store, cancel))

	eligible, err := run.eligible()
	if err != nil {
		return nil, err
	}

	var ids []uint
	switch {
	case eligible.All:
		ids, err = s.store.CandidateIDs(ctx, page.Offset, page.Limit)
		if err != nil {
			return nil, external(ServiceStore, err)
		}
	case eligible.Empty():
		return []models.Candidate{}, nil
	default:
		ids = paginate(eligible.IDs.Sorted(), page.Offset, page.Limit)
	}

	s.logger.Debug("filter search", "filters", len(run.filters), "page_ids", len(ids))
	return s.Hydrate(ctx, ids)
}

type scoredID struct {
	id    uint
	score float64
}

// SemanticSearch ranks the filtered candidates by the mean of their
// experience and skills similarity to query. Candidates below the threshold
// or without both embeddings are left out; ties go to the lower id.
func (s *searchService) SemanticSearch(ctx context.Context, query string, criteria Criteria, page Page) ([]models.RankedCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newValidationError("query", "must not be empty")
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	filterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		queryEmb Embeddings
		embErr   error
	)
	run := newFilterRun(criteria.Filters(s.foldCase, s.now))
	tasks := append(run.tasks(filterCtx, s.store, cancel), func() {
		queryEmb, embErr = s.embedder.EmbedQuery(filterCtx, query)
	})
	runTasks(s.pool, tasks)

	eligible, err := run.eligible()
	if err != nil {
		return nil, err
	}
	if eligible.Empty() {
		return []models.RankedCandidate{}, nil
	}
	if embErr != nil {
		return nil, external(ServiceEmbedding, embErr)
	}

	var pool []uint
	if !eligible.All {
		pool = eligible.IDs.Sorted()
	}

	var scored []scoredID
	err = s.store.ScanEmbeddings(ctx, pool, func(rows []models.EmbeddingRow) error {
		for _, row := range rows {
			if row.ExperienceEmbedding == nil || row.SkillsEmbedding == nil {
				continue
			}
			experience, skills := row.ExperienceEmbedding.Slice(), row.SkillsEmbedding.Slice()
			if len(experience) == 0 || len(skills) == 0 {
				continue
			}
			score := dualScore(queryEmb.Experience, queryEmb.Skills, experience, skills)
			if score >= s.threshold {
				scored = append(scored, scoredID{id: row.ID, score: score})
			}
		}
		return nil
	})
	if err != nil {
		return nil, external(ServiceStore, err)
	}

	rankScored(scored)
	window := paginate(scored, page.Offset, page.Limit)

	ids := make([]uint, len(window))
	scores := make(map[uint]float64, len(window))
	for i, sc := range window {
		ids[i] = sc.id
		scores[sc.id] = sc.score
	}

	s.logger.Debug("semantic search", "above_threshold", len(scored), "page_ids", len(ids))

	candidates, err := s.Hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	ranked := make([]models.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = models.RankedCandidate{Candidate: c, SimilarityScore: scores[c.ID]}
	}
	return ranked, nil
}

func rankScored(scored []scoredID) {
	slices.SortFunc(scored, func(a, b scoredID) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
}

// Hydrate loads full records for ids in one batched read and returns them
// in the order given. Ids that no longer exist are dropped.
func (s *searchService) Hydrate(ctx context.Context, ids []uint) ([]models.Candidate, error) {
	if len(ids) == 0 {
		return []models.Candidate{}, nil
	}

	rows, err := s.candidates.FindByIDs(ctx, ids)
	if err != nil {
		return nil, external(ServiceStore, err)
	}

	byID := make(map[uint]models.Candidate, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}

	out := make([]models.Candidate, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			s.logger.Debug("candidate vanished before hydration", "id", id)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Skills lists known skill names in ascending order.
func (s *searchService) Skills(ctx context.Context, limit int) ([]string, error) {
	if err := validateListingLimit(limit); err != nil {
		return nil, err
	}
	names, err := s.store.SkillNames(ctx)
	if err != nil {
		return nil, external(ServiceStore, err)
	}
	return sortedDistinct(names, limit), nil
}

// Locations lists the distinct non-empty candidate locations in ascending order.
func (s *searchService) Locations(ctx context.Context, limit int) ([]string, error) {
	if err := validateListingLimit(limit); err != nil {
		return nil, err
	}
	values, err := s.store.LocationValues(ctx)
	if err != nil {
		return nil, external(ServiceStore, err)
	}
	return sortedDistinct(values, limit), nil
}

func sortedDistinct(values []string, limit int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// IsNotFound reports whether err means the candidate does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, repositories.ErrNotFound)
}
