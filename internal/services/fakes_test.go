package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
)

var errStoreDown = errors.New("connection refused")

// memStore keeps candidates in memory and answers both repository
// interfaces the search service reads from.
type memStore struct {
	mu         sync.Mutex
	candidates map[uint]*models.Candidate
	skills     []models.Skill
	links      []models.CandidateSkill

	failWorkPeriods bool
	scans           atomic.Int32
	hydrations      atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{candidates: make(map[uint]*models.Candidate)}
}

func (m *memStore) add(c *models.Candidate, skills ...string) *models.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(c, skills...)
}

func (m *memStore) addLocked(c *models.Candidate, skills ...string) *models.Candidate {
	m.candidates[c.ID] = c
	for _, name := range skills {
		id := m.skillID(name)
		m.links = append(m.links, models.CandidateSkill{CandidateID: c.ID, SkillID: id})
		c.Skills = append(c.Skills, m.skills[id-1])
	}
	return c
}

func (m *memStore) skillID(name string) uint {
	key := models.NormalizeSkillName(name)
	for _, s := range m.skills {
		if s.NormalizedName == key {
			return s.ID
		}
	}
	id := uint(len(m.skills) + 1)
	m.skills = append(m.skills, models.Skill{ID: id, Name: name, NormalizedName: key})
	return id
}

func (m *memStore) sortedIDs() []uint {
	ids := make([]uint, 0, len(m.candidates))
	for id := range m.candidates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *memStore) LocationRows(_ context.Context, substring string) ([]models.LocationRow, error) {
	var rows []models.LocationRow
	for _, id := range m.sortedIDs() {
		c := m.candidates[id]
		if c.Location != nil && strings.Contains(strings.ToLower(*c.Location), strings.ToLower(substring)) {
			rows = append(rows, models.LocationRow{ID: id, Location: c.Location})
		}
	}
	return rows, nil
}

func (m *memStore) EducationRows(_ context.Context, degree string, foldCase bool) ([]models.EducationRow, error) {
	var rows []models.EducationRow
	for _, id := range m.sortedIDs() {
		for _, e := range m.candidates[id].Education {
			if e.Degree == degree || (foldCase && strings.EqualFold(e.Degree, degree)) {
				rows = append(rows, models.EducationRow{CandidateID: id, Degree: e.Degree})
			}
		}
	}
	return rows, nil
}

func (m *memStore) SkillsByNames(_ context.Context, names []string, foldCase bool) ([]models.Skill, error) {
	var out []models.Skill
	for _, s := range m.skills {
		for _, n := range names {
			if s.Name == n || (foldCase && s.NormalizedName == models.NormalizeSkillName(n)) {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) CandidateSkillRows(_ context.Context, skillIDs []uint) ([]models.CandidateSkill, error) {
	var out []models.CandidateSkill
	for _, l := range m.links {
		if slices.Contains(skillIDs, l.SkillID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) WorkPeriodRows(ctx context.Context) ([]models.WorkPeriodRow, error) {
	if m.failWorkPeriods {
		return nil, errStoreDown
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []models.WorkPeriodRow
	for _, id := range m.sortedIDs() {
		for _, w := range m.candidates[id].WorkExperience {
			rows = append(rows, models.WorkPeriodRow{
				CandidateID:    id,
				StartDate:      w.StartDate,
				EndDate:        w.EndDate,
				EndDateInvalid: w.EndDateInvalid,
			})
		}
	}
	return rows, nil
}

func (m *memStore) CandidateIDs(_ context.Context, offset, limit int) ([]uint, error) {
	return paginate(m.sortedIDs(), offset, limit), nil
}

func (m *memStore) ScanEmbeddings(_ context.Context, ids []uint, fn func([]models.EmbeddingRow) error) error {
	m.scans.Add(1)
	if ids == nil {
		ids = m.sortedIDs()
	}
	var rows []models.EmbeddingRow
	for _, id := range ids {
		if c, ok := m.candidates[id]; ok {
			rows = append(rows, models.EmbeddingRow{
				ID:                  id,
				ExperienceEmbedding: c.ExperienceEmbedding,
				SkillsEmbedding:     c.SkillsEmbedding,
			})
		}
	}
	return fn(rows)
}

func (m *memStore) SkillNames(context.Context) ([]string, error) {
	names := make([]string, len(m.skills))
	for i, s := range m.skills {
		names[i] = s.Name
	}
	return names, nil
}

func (m *memStore) LocationValues(context.Context) ([]string, error) {
	var out []string
	for _, c := range m.candidates {
		if c.Location != nil {
			out = append(out, *c.Location)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, c *models.Candidate, skills []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var maxID uint
	for id, existing := range m.candidates {
		if existing.Email == c.Email {
			return repositories.ErrDuplicateEmail
		}
		maxID = max(maxID, id)
	}
	c.ID = maxID + 1
	m.addLocked(c, skills...)
	return nil
}

func (m *memStore) Replace(_ context.Context, id uint, c *models.Candidate, skills []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidates[id]; !ok {
		return repositories.ErrNotFound
	}
	m.links = slices.DeleteFunc(m.links, func(l models.CandidateSkill) bool { return l.CandidateID == id })
	c.ID = id
	c.Skills = nil
	m.addLocked(c, skills...)
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidates[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.candidates, id)
	m.links = slices.DeleteFunc(m.links, func(l models.CandidateSkill) bool { return l.CandidateID == id })
	return nil
}

func (m *memStore) FindByID(_ context.Context, id uint) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (m *memStore) FindByIDs(_ context.Context, ids []uint) ([]models.Candidate, error) {
	m.hydrations.Add(1)
	var out []models.Candidate
	// Reverse order so callers cannot rely on the store preserving it.
	for i := len(ids) - 1; i >= 0; i-- {
		if c, ok := m.candidates[ids[i]]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidates {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memStore) List(_ context.Context, offset, limit int) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, id := range paginate(m.sortedIDs(), offset, limit) {
		out = append(out, *m.candidates[id])
	}
	return out, nil
}

func (m *memStore) UpdateEmbeddings(_ context.Context, id uint, experience, skills []float32) error {
	c, ok := m.candidates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.ExperienceEmbedding = vec(experience...)
	c.SkillsEmbedding = vec(skills...)
	return nil
}

type stubEmbedder struct {
	emb   Embeddings
	err   error
	calls atomic.Int32
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) (Embeddings, error) {
	s.calls.Add(1)
	return s.emb, s.err
}

func vec(v ...float32) *pgvector.Vector {
	p := pgvector.NewVector(v)
	return &p
}

func strPtr(s string) *string {
	return &s
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func candidate(id uint, opts ...func(*models.Candidate)) *models.Candidate {
	c := &models.Candidate{
		ID:       id,
		FullName: "Candidate",
		Email:    strings.Repeat("x", int(id)) + "@example.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func located(loc string) func(*models.Candidate) {
	return func(c *models.Candidate) { c.Location = strPtr(loc) }
}

func withDegree(degree string) func(*models.Candidate) {
	return func(c *models.Candidate) {
		c.Education = append(c.Education, models.Education{CandidateID: c.ID, Institution: "Uni", Degree: degree})
	}
}

func worked(start, end *time.Time) func(*models.Candidate) {
	return func(c *models.Candidate) {
		c.WorkExperience = append(c.WorkExperience, models.WorkExperience{
			CandidateID: c.ID, Company: "Acme", Position: "Engineer", StartDate: start, EndDate: end,
		})
	}
}

func embedded(experience, skills []float32) func(*models.Candidate) {
	return func(c *models.Candidate) {
		c.ExperienceEmbedding = vec(experience...)
		c.SkillsEmbedding = vec(skills...)
	}
}
