package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

const sampleExtraction = "```json\n" + `{
  "full_name": "Ada Lovelace",
  "email": "ada@example.com",
  "location": "London",
  "education": [{"institution": "University of London", "degree": "BSc"}],
  "work_experience": [{"company": "Analytical Engines", "position": "Engineer", "start_date": "2020-01", "end_date": "present"}],
  "skills": ["Go", "PostgreSQL"],
}` + "\n```"

func newTestExtractor(llm LLMService, dimension int) ExtractorService {
	return NewExtractorService(llm, dimension, WithRetries(1, 0))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Here you go: {\"a\":{\"b\":2}} hope it helps", `{"a":{"b":2}}`},
		{"no object", "  nothing here ", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	assert.JSONEq(t, `{"a":[1,2],"b":"x"}`, repairJSON(`{"a":[1,2,],"b":"x",}`))
	assert.JSONEq(t, `{"a":"b"}`, repairJSON(`{“a”:“b”}`))
}

func TestMeanVector(t *testing.T) {
	assert.Equal(t, []float32{1, 2}, meanVector([][]float32{{1, 2}}))
	assert.Equal(t, []float32{2, 3}, meanVector([][]float32{{1, 2}, {3, 4}}))
}

func TestExtractFields(t *testing.T) {
	llm := &fakeLLM{responses: []string{sampleExtraction}}
	e := newTestExtractor(llm, 4)

	in, raw, err := e.ExtractFields(context.Background(), "Ada Lovelace\nEngineer")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", in.FullName)
	assert.Equal(t, "ada@example.com", in.Email)
	require.Len(t, in.WorkExperience, 1)
	assert.Equal(t, "Analytical Engines", in.WorkExperience[0].Company)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, in.Skills)
	assert.Contains(t, string(raw), `"full_name"`)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Ada Lovelace\nEngineer")
}

func TestExtractFieldsFailures(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{"provider error", &fakeLLM{genErr: errors.New("503 from provider")}},
		{"not json", &fakeLLM{responses: []string{"I cannot read this CV."}}},
		{"missing email", &fakeLLM{responses: []string{`{"full_name": "Ada"}`}}},
		{"invalid email", &fakeLLM{responses: []string{`{"full_name": "Ada", "email": "not-an-email"}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestExtractor(tt.llm, 4).ExtractFields(context.Background(), "cv")
			var ext *ExternalServiceError
			require.ErrorAs(t, err, &ext)
			assert.Equal(t, ServiceFieldExtraction, ext.Service)
		})
	}
}

func TestEmbedCandidate(t *testing.T) {
	llm := &fakeLLM{dimension: 4}
	e := newTestExtractor(llm, 4)
	in := &models.CandidateInput{
		FullName: "Ada",
		Email:    "ada@example.com",
		Skills:   []string{"Go"},
		WorkExperience: []models.WorkExperienceInput{
			{Company: "Acme", Position: "Engineer"},
		},
	}

	emb, err := e.EmbedCandidate(context.Background(), in, "ignored")
	require.NoError(t, err)
	assert.Len(t, emb.Experience, 4)
	assert.Len(t, emb.Skills, 4)
	require.Len(t, llm.embedCalls, 1, "both texts go in one batch")
	assert.Len(t, llm.embedCalls[0], 2)
}

func TestEmbedCandidateWithoutHistoryUsesCVText(t *testing.T) {
	llm := &fakeLLM{dimension: 3}
	e := newTestExtractor(llm, 3)
	in := &models.CandidateInput{FullName: "Ada", Email: "ada@example.com"}

	cvText := "First paragraph about the candidate.\n\nSecond paragraph with more detail."
	emb, err := e.EmbedCandidate(context.Background(), in, cvText)
	require.NoError(t, err)
	assert.Len(t, emb.Experience, 3)
	require.Len(t, llm.embedCalls, 1)
	assert.Contains(t, llm.embedCalls[0][1], "First paragraph")
}

func TestEmbedQuery(t *testing.T) {
	llm := &fakeLLM{dimension: 2}
	e := newTestExtractor(llm, 2)

	emb, err := e.EmbedQuery(context.Background(), "  senior go developer ")
	require.NoError(t, err)
	require.Len(t, llm.embedCalls, 1)
	assert.Equal(t, []string{"senior go developer", "Skills: senior go developer"}, llm.embedCalls[0])
	assert.NotEqual(t, emb.Experience, emb.Skills)
}

func TestEmbedDimensionMismatch(t *testing.T) {
	e := newTestExtractor(&fakeLLM{dimension: 3}, 768)

	_, err := e.EmbedQuery(context.Background(), "go")
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, ServiceEmbedding, ext.Service)
	assert.Contains(t, err.Error(), "768")
}

func TestEmbedProviderFailure(t *testing.T) {
	e := newTestExtractor(&fakeLLM{embedErr: errors.New("rate limited")}, 0)

	_, err := e.EmbedQuery(context.Background(), "go")
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, ServiceEmbedding, ext.Service)
}
