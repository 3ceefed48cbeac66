package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

// CandidateRepository owns candidate writes and hydration reads.
type CandidateRepository interface {
	Create(ctx context.Context, candidate *models.Candidate, skills []string) error
	Replace(ctx context.Context, id uint, candidate *models.Candidate, skills []string) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Candidate, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Candidate, error)
	FindByEmail(ctx context.Context, email string) (*models.Candidate, error)
	List(ctx context.Context, offset, limit int) ([]models.Candidate, error)
	UpdateEmbeddings(ctx context.Context, id uint, experience, skills []float32) error
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

var candidateAssociations = []string{"Education", "WorkExperience", "Skills", "Projects", "Certifications"}

func (r *candidateRepository) preloaded(ctx context.Context) *gorm.DB {
	tx := r.db.WithContext(ctx)
	for _, assoc := range candidateAssociations {
		tx = tx.Preload(assoc)
	}
	return tx
}

// Create inserts the candidate, its owned children and its skill links in
// one transaction.
func (r *candidateRepository) Create(ctx context.Context, candidate *models.Candidate, skills []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Skills").Create(candidate).Error; err != nil {
			return translate(err, "failed to create candidate")
		}
		resolved, err := linkSkills(tx, candidate.ID, skills)
		if err != nil {
			return err
		}
		candidate.Skills = resolved
		return nil
	})
	return err
}

// Replace overwrites the candidate's scalar fields and replaces every owned
// child collection and skill link. Skill rows themselves survive.
func (r *candidateRepository) Replace(ctx context.Context, id uint, candidate *models.Candidate, skills []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Candidate
		if err := tx.Select("id", "created_at").First(&existing, id).Error; err != nil {
			return translate(err, "failed to find candidate")
		}

		updates := map[string]interface{}{
			"full_name":      candidate.FullName,
			"email":          candidate.Email,
			"phone":          candidate.Phone,
			"location":       candidate.Location,
			"cv_file_id":     candidate.CVFileID,
			"cv_text":        candidate.CVText,
			"raw_extraction": candidate.RawExtraction,
		}
		if candidate.ExperienceEmbedding != nil {
			updates["experience_embedding"] = candidate.ExperienceEmbedding
		}
		if candidate.SkillsEmbedding != nil {
			updates["skills_embedding"] = candidate.SkillsEmbedding
		}
		if err := tx.Model(&models.Candidate{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return translate(err, "failed to update candidate")
		}

		if err := deleteOwned(tx, id); err != nil {
			return err
		}

		candidate.ID = id
		candidate.CreatedAt = existing.CreatedAt
		if err := createOwned(tx, candidate); err != nil {
			return err
		}

		resolved, err := linkSkills(tx, id, skills)
		if err != nil {
			return err
		}
		candidate.Skills = resolved
		return nil
	})
}

// Delete removes the candidate and everything it owns.
func (r *candidateRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteOwned(tx, id); err != nil {
			return err
		}
		result := tx.Delete(&models.Candidate{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete candidate: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *candidateRepository) FindByID(ctx context.Context, id uint) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.preloaded(ctx).First(&candidate, id).Error; err != nil {
		return nil, translate(err, "failed to find candidate")
	}
	return &candidate, nil
}

// FindByIDs loads full records for ids with one query per collection. The
// result order is unspecified and missing ids are skipped.
func (r *candidateRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Candidate, error) {
	if len(ids) == 0 {
		return []models.Candidate{}, nil
	}
	var candidates []models.Candidate
	if err := r.preloaded(ctx).Where("id IN ?", ids).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) FindByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&candidate).Error; err != nil {
		return nil, translate(err, "failed to find candidate")
	}
	return &candidate, nil
}

func (r *candidateRepository) List(ctx context.Context, offset, limit int) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := r.preloaded(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) UpdateEmbeddings(ctx context.Context, id uint, experience, skills []float32) error {
	result := r.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"experience_embedding": pgvector.NewVector(experience),
			"skills_embedding":     pgvector.NewVector(skills),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update embeddings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func createOwned(tx *gorm.DB, c *models.Candidate) error {
	for i := range c.Education {
		c.Education[i].ID = 0
		c.Education[i].CandidateID = c.ID
	}
	for i := range c.WorkExperience {
		c.WorkExperience[i].ID = 0
		c.WorkExperience[i].CandidateID = c.ID
	}
	for i := range c.Projects {
		c.Projects[i].ID = 0
		c.Projects[i].CandidateID = c.ID
	}
	for i := range c.Certifications {
		c.Certifications[i].ID = 0
		c.Certifications[i].CandidateID = c.ID
	}

	if len(c.Education) > 0 {
		if err := tx.Create(&c.Education).Error; err != nil {
			return fmt.Errorf("failed to create education: %w", err)
		}
	}
	if len(c.WorkExperience) > 0 {
		if err := tx.Create(&c.WorkExperience).Error; err != nil {
			return fmt.Errorf("failed to create work experience: %w", err)
		}
	}
	if len(c.Projects) > 0 {
		if err := tx.Create(&c.Projects).Error; err != nil {
			return fmt.Errorf("failed to create projects: %w", err)
		}
	}
	if len(c.Certifications) > 0 {
		if err := tx.Create(&c.Certifications).Error; err != nil {
			return fmt.Errorf("failed to create certifications: %w", err)
		}
	}
	return nil
}

func deleteOwned(tx *gorm.DB, candidateID uint) error {
	owned := []interface{}{
		&models.CandidateSkill{},
		&models.Education{},
		&models.WorkExperience{},
		&models.Project{},
		&models.Certification{},
	}
	for _, model := range owned {
		if err := tx.Where("candidate_id = ?", candidateID).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to delete candidate children: %w", err)
		}
	}
	return nil
}

// linkSkills resolves names to skill rows, creating the missing ones, and
// links them to the candidate. Existing links are left untouched.
func linkSkills(tx *gorm.DB, candidateID uint, names []string) ([]models.Skill, error) {
	if len(names) == 0 {
		return nil, nil
	}

	byKey := make(map[string]models.Skill, len(names))
	keys := make([]string, 0, len(names))
	for _, name := range names {
		key := models.NormalizeSkillName(name)
		if key == "" {
			continue
		}
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = models.Skill{Name: name, NormalizedName: key}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	fresh := make([]models.Skill, 0, len(keys))
	for _, key := range keys {
		fresh = append(fresh, byKey[key])
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_name"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create skills: %w", err)
	}

	var skills []models.Skill
	if err := tx.Where("normalized_name IN ?", keys).Order("name ASC").Find(&skills).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve skills: %w", err)
	}

	links := make([]models.CandidateSkill, 0, len(skills))
	for _, s := range skills {
		links = append(links, models.CandidateSkill{CandidateID: candidateID, SkillID: s.ID})
	}
	err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to link skills: %w", err)
	}

	return skills, nil
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
