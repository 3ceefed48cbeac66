package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

func seededProfiles(t *testing.T, index VectorIndex) (*memStore, CandidateService) {
	t.Helper()
	store := newMemStore()
	ada := candidate(1, located("London"), embedded([]float32{1, 0}, []float32{0, 1}))
	ada.FullName = "Ada"
	ada.Email = "ada@example.com"
	store.add(ada, "Go")
	bob := candidate(2)
	bob.Email = "bob@example.com"
	store.add(bob)
	return store, NewCandidateService(store, lineExtractor{}, index, nil)
}

func TestCandidateServiceGet(t *testing.T) {
	_, s := seededProfiles(t, nil)

	c, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.FullName)

	_, err = s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCandidateServiceList(t *testing.T) {
	_, s := seededProfiles(t, nil)

	got, err := s.List(context.Background(), Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids(got))

	_, err = s.List(context.Background(), Page{Limit: 500})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestCandidateServiceUpdate(t *testing.T) {
	index := &recordingIndex{}
	store, s := seededProfiles(t, index)
	ctx := context.Background()

	updated, err := s.Update(ctx, 1, &models.CandidateInput{
		FullName: "Ada King",
		Email:    "ada@example.com",
		Skills:   []string{"Rust", "Go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.FullName)
	assert.Len(t, updated.Skills, 2)
	assert.Equal(t, []float32{1, 0}, updated.ExperienceEmbedding.Slice())
	assert.Equal(t, []uint{1}, index.upserted)

	stored, _ := store.FindByID(ctx, 1)
	assert.Equal(t, "Ada King", stored.FullName)

	t.Run("invalid input", func(t *testing.T) {
		_, err := s.Update(ctx, 1, &models.CandidateInput{FullName: "Ada"})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "email", validation.Field)
	})

	t.Run("email owned by someone else", func(t *testing.T) {
		_, err := s.Update(ctx, 1, &models.CandidateInput{FullName: "Ada", Email: "bob@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		_, err := s.Update(ctx, 99, &models.CandidateInput{FullName: "Zed", Email: "zed@example.com"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCandidateServiceDelete(t *testing.T) {
	index := &recordingIndex{}
	store, s := seededProfiles(t, index)

	require.NoError(t, s.Delete(context.Background(), 1))
	assert.Equal(t, []uint{1}, index.deleted)
	assert.NotContains(t, store.candidates, uint(1))

	names, err := store.SkillNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, names, "skills outlive their candidates")

	assert.ErrorIs(t, s.Delete(context.Background(), 1), ErrNotFound)
}

func TestCandidateServiceSimilar(t *testing.T) {
	t.Run("index disabled", func(t *testing.T) {
		_, s := seededProfiles(t, nil)
		_, err := s.Similar(context.Background(), 1, 5)
		assert.ErrorIs(t, err, ErrVectorIndexDisabled)
	})

	t.Run("with index", func(t *testing.T) {
		_, s := seededProfiles(t, &recordingIndex{})
		got, err := s.Similar(context.Background(), 1, 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint(2), got[0].CandidateID)
	})

	t.Run("candidate without embeddings", func(t *testing.T) {
		_, s := seededProfiles(t, &recordingIndex{})
		got, err := s.Similar(context.Background(), 2, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bad limit", func(t *testing.T) {
		_, s := seededProfiles(t, &recordingIndex{})
		_, err := s.Similar(context.Background(), 1, 0)
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestCandidateServiceReembed(t *testing.T) {
	store, s := seededProfiles(t, nil)

	require.NoError(t, s.Reembed(context.Background(), 2))
	bob, err := store.FindByID(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, bob.SkillsEmbedding)
	assert.Equal(t, []float32{0, 1}, bob.SkillsEmbedding.Slice())

	assert.ErrorIs(t, s.Reembed(context.Background(), 7), ErrNotFound)
}
