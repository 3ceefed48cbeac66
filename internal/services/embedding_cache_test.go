package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *EmbeddingCache {
	t.Helper()
	cache, err := OpenEmbeddingCache("", time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	cache := openTestCache(t)

	_, ok := cache.Get("model-a", "hello")
	assert.False(t, ok)

	want := []float32{0.25, -1.5, 3e-7}
	require.NoError(t, cache.Put("model-a", "hello", want))

	got, ok := cache.Get("model-a", "hello")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = cache.Get("model-b", "hello")
	assert.False(t, ok, "keys are scoped by model")
}

func TestCacheKeyIsStable(t *testing.T) {
	assert.Equal(t, cacheKey("m", "text"), cacheKey("m", "text"))
	assert.NotEqual(t, cacheKey("m", "text"), cacheKey("mt", "ext"))
	assert.Len(t, cacheKey("m", "text"), len("emb:")+64)
}

func TestDecodeVectorRejectsTruncatedValues(t *testing.T) {
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
	assert.Equal(t, []float32{1.5}, decodeVector(encodeVector([]float32{1.5})))
}

func TestCachedLLMServiceEmbedsMissesOnly(t *testing.T) {
	llm := &fakeLLM{dimension: 2}
	cached := WithEmbeddingCache(llm, openTestCache(t))
	ctx := context.Background()

	first, err := cached.GenerateEmbeddings(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)

	second, err := cached.GenerateEmbeddings(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)

	require.Len(t, llm.embedCalls, 2)
	assert.Equal(t, []string{"gamma"}, llm.embedCalls[1])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])

	_, err = cached.GenerateEmbeddings(ctx, []string{"alpha"})
	require.NoError(t, err)
	assert.Len(t, llm.embedCalls, 2, "fully cached batches skip the provider")
}
