package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

const (
	vectorExperience = "experience"
	vectorSkills     = "skills"
)

// VectorIndex mirrors candidate embeddings into Qdrant for nearest-neighbour
// lookups. The relational store stays the source of truth.
type VectorIndex interface {
	InitCollection(ctx context.Context) error
	UpsertCandidate(ctx context.Context, candidate *models.Candidate, emb Embeddings) error
	SimilarCandidates(ctx context.Context, candidateID uint, emb Embeddings, limit int) ([]models.SimilarCandidate, error)
	DeleteCandidate(ctx context.Context, candidateID uint) error
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	logger         *slog.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize int, logger *slog.Logger) (VectorIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// The Go client speaks gRPC, which listens on 6334 by default.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
		logger:         logger.With("component", "qdrant"),
	}, nil
}

// InitCollection creates the collection with one named vector per embedding.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Debug("collection already exists", "collection", q.collectionName)
		return nil
	}

	params := func() *qdrant.VectorParams {
		return &qdrant.VectorParams{Size: q.vectorSize, Distance: qdrant.Distance_Cosine}
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorExperience: params(),
			vectorSkills:     params(),
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("collection created", "collection", q.collectionName)
	return nil
}

func (q *qdrantService) UpsertCandidate(ctx context.Context, candidate *models.Candidate, emb Embeddings) error {
	payload := map[string]interface{}{
		"candidate_id": int64(candidate.ID),
		"full_name":    candidate.FullName,
	}
	if candidate.Location != nil {
		payload["location"] = *candidate.Location
	}

	point := &qdrant.PointStruct{
		Id: qdrant.NewIDNum(uint64(candidate.ID)),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorExperience: qdrant.NewVector(emb.Experience...),
			vectorSkills:     qdrant.NewVector(emb.Skills...),
		}),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SimilarCandidates ranks other candidates by the mean of their experience
// and skills similarity to emb.
func (q *qdrantService) SimilarCandidates(ctx context.Context, candidateID uint, emb Embeddings, limit int) ([]models.SimilarCandidate, error) {
	exclude := &qdrant.Filter{
		MustNot: []*qdrant.Condition{
			qdrant.NewHasID(qdrant.NewIDNum(uint64(candidateID))),
		},
	}

	scores := make(map[uint]*models.SimilarCandidate)
	for _, named := range []struct {
		name   string
		vector []float32
	}{
		{vectorExperience, emb.Experience},
		{vectorSkills, emb.Skills},
	} {
		points, err := q.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: q.collectionName,
			Query:          qdrant.NewQuery(named.vector...),
			Using:          qdrant.PtrOf(named.name),
			Filter:         exclude,
			Limit:          qdrant.PtrOf(uint64(limit * 3)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search: %w", err)
		}

		for _, point := range points {
			id := uint(point.GetId().GetNum())
			hit, ok := scores[id]
			if !ok {
				hit = &models.SimilarCandidate{CandidateID: id}
				if name, ok := point.Payload["full_name"]; ok {
					hit.FullName = name.GetStringValue()
				}
				scores[id] = hit
			}
			hit.Score += float64(point.Score) / 2
		}
	}

	results := make([]models.SimilarCandidate, 0, len(scores))
	for _, hit := range scores {
		results = append(results, *hit)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CandidateID < results[j].CandidateID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (q *qdrantService) DeleteCandidate(ctx context.Context, candidateID uint) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDNum(uint64(candidateID))),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}

	return nil
}
