package services

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/go-crypt/x/blake2b"
)

// EmbeddingCache stores embeddings keyed by model and text in Badger.
type EmbeddingCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenEmbeddingCache opens the cache at dir. An empty dir opens an
// in-memory cache.
func OpenEmbeddingCache(dir string, ttl time.Duration, logger *slog.Logger) (*EmbeddingCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedding-cache")

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	return &EmbeddingCache{db: db, ttl: ttl, logger: logger}, nil
}

func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return []byte("emb:" + hex.EncodeToString(h.Sum(nil)))
}

// Get returns the cached vector for text, or false when absent.
func (c *EmbeddingCache) Get(model, text string) ([]float32, bool) {
	var vector []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(model, text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vector = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("cache read failed", "err", err)
		}
		return nil, false
	}
	return vector, vector != nil
}

func (c *EmbeddingCache) Put(model, text string, vector []float32) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(model, text), encodeVector(vector))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}

type cachedLLMService struct {
	LLMService
	cache *EmbeddingCache
}

// WithEmbeddingCache wraps provider so repeated texts are embedded once.
func WithEmbeddingCache(provider LLMService, cache *EmbeddingCache) LLMService {
	return &cachedLLMService{LLMService: provider, cache: cache}
}

func (s *cachedLLMService) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	model := s.EmbeddingModel()
	vectors := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := s.cache.Get(model, text); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := s.LLMService.GenerateEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(fresh))
	}
	for j, v := range fresh {
		vectors[missingIdx[j]] = v
		if err := s.cache.Put(model, missing[j], v); err != nil {
			s.cache.logger.Warn("cache write failed", "err", err)
		}
	}
	return vectors, nil
}
