package services

import (
	"context"
	"strings"
	"sync"
)

// fakeLLM returns canned generations and embeds each text as a vector
// derived from its length.
type fakeLLM struct {
	mu         sync.Mutex
	responses  []string
	genErr     error
	embedErr   error
	dimension  int
	prompts    []string
	embedCalls [][]string
}

func (f *fakeLLM) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.genErr != nil {
		return "", f.genErr
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

func (f *fakeLLM) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls = append(f.embedCalls, texts)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dimension)
		for j := range v {
			v[j] = float32(len(t)%7+j) + 1
		}
		if strings.HasPrefix(t, "Skills:") {
			v[0] = -v[0]
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeLLM) EmbeddingModel() string {
	return "fake-embedding"
}
