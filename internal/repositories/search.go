package repositories

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

// SearchRepository exposes the single-collection reads the search filters
// are built from. Each method touches one table with a simple predicate;
// combining rows across tables is left to the caller.
type SearchRepository interface {
	LocationRows(ctx context.Context, substring string) ([]models.LocationRow, error)
	EducationRows(ctx context.Context, degree string, foldCase bool) ([]models.EducationRow, error)
	SkillsByNames(ctx context.Context, names []string, foldCase bool) ([]models.Skill, error)
	CandidateSkillRows(ctx context.Context, skillIDs []uint) ([]models.CandidateSkill, error)
	WorkPeriodRows(ctx context.Context) ([]models.WorkPeriodRow, error)
	CandidateIDs(ctx context.Context, offset, limit int) ([]uint, error)
	ScanEmbeddings(ctx context.Context, ids []uint, fn func([]models.EmbeddingRow) error) error
	SkillNames(ctx context.Context) ([]string, error)
	LocationValues(ctx context.Context) ([]string, error)
}

type searchRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db, batchSize: 500}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *searchRepository) LocationRows(ctx context.Context, substring string) ([]models.LocationRow, error) {
	var rows []models.LocationRow
	err := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Select("id", "location").
		Where("location ILIKE ?", "%"+likeEscaper.Replace(substring)+"%").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate locations: %w", err)
	}
	return rows, nil
}

func (r *searchRepository) EducationRows(ctx context.Context, degree string, foldCase bool) ([]models.EducationRow, error) {
	q := r.db.WithContext(ctx).Model(&models.Education{}).Select("candidate_id", "degree")
	if foldCase {
		q = q.Where("LOWER(degree) = ?", strings.ToLower(degree))
	} else {
		q = q.Where("degree = ?", degree)
	}

	var rows []models.EducationRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read education: %w", err)
	}
	return rows, nil
}

func (r *searchRepository) SkillsByNames(ctx context.Context, names []string, foldCase bool) ([]models.Skill, error) {
	q := r.db.WithContext(ctx).Select("id", "name", "normalized_name")
	if foldCase {
		keys := make([]string, len(names))
		for i, n := range names {
			keys[i] = models.NormalizeSkillName(n)
		}
		q = q.Where("normalized_name IN ?", keys)
	} else {
		q = q.Where("name IN ?", names)
	}

	var skills []models.Skill
	if err := q.Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("failed to read skills: %w", err)
	}
	return skills, nil
}

func (r *searchRepository) CandidateSkillRows(ctx context.Context, skillIDs []uint) ([]models.CandidateSkill, error) {
	var links []models.CandidateSkill
	err := r.db.WithContext(ctx).
		Where("skill_id IN ?", skillIDs).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate skills: %w", err)
	}
	return links, nil
}

func (r *searchRepository) WorkPeriodRows(ctx context.Context) ([]models.WorkPeriodRow, error) {
	var rows []models.WorkPeriodRow
	err := r.db.WithContext(ctx).
		Model(&models.WorkExperience{}).
		Select("candidate_id", "start_date", "end_date", "end_date_invalid").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read work experience: %w", err)
	}
	return rows, nil
}

func (r *searchRepository) CandidateIDs(ctx context.Context, offset, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate ids: %w", err)
	}
	return ids, nil
}

// ScanEmbeddings streams the stored embeddings of ids in batches. A nil ids
// slice scans every candidate.
func (r *searchRepository) ScanEmbeddings(ctx context.Context, ids []uint, fn func([]models.EmbeddingRow) error) error {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.Candidate{}).
			Select("id", "experience_embedding", "skills_embedding")
	}

	if ids == nil {
		var lastID uint
		for {
			var batch []models.EmbeddingRow
			err := base().Where("id > ?", lastID).Order("id ASC").Limit(r.batchSize).Scan(&batch).Error
			if err != nil {
				return fmt.Errorf("failed to scan embeddings: %w", err)
			}
			if len(batch) == 0 {
				return nil
			}
			if err := fn(batch); err != nil {
				return err
			}
			if len(batch) < r.batchSize {
				return nil
			}
			lastID = batch[len(batch)-1].ID
		}
	}

	for start := 0; start < len(ids); start += r.batchSize {
		end := min(start+r.batchSize, len(ids))
		var batch []models.EmbeddingRow
		if err := base().Where("id IN ?", ids[start:end]).Scan(&batch).Error; err != nil {
			return fmt.Errorf("failed to read embeddings: %w", err)
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (r *searchRepository) SkillNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Skill{}).
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read skill names: %w", err)
	}
	return names, nil
}

func (r *searchRepository) LocationValues(ctx context.Context) ([]string, error) {
	var locations []string
	err := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("location IS NOT NULL").
		Pluck("location", &locations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}
	return locations, nil
}
