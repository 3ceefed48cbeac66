package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Candidate is the aggregate root of an ingested CV. Owned children are
// deleted with it; skills are shared and only the links are removed.
type Candidate struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	FullName            string           `gorm:"type:text;not null" json:"full_name"`
	Email               string           `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Phone               *string          `gorm:"type:text" json:"phone,omitempty"`
	Location            *string          `gorm:"type:text;index" json:"location,omitempty"`
	CVFileID            *string          `gorm:"type:text" json:"cv_file_id,omitempty"`
	CVText              *string          `gorm:"type:text" json:"-"`
	ExperienceEmbedding *pgvector.Vector `gorm:"type:vector" json:"-"`
	SkillsEmbedding     *pgvector.Vector `gorm:"type:vector" json:"-"`
	RawExtraction       datatypes.JSON   `gorm:"type:jsonb" json:"-"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`

	// Relations
	Education      []Education      `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE" json:"education"`
	WorkExperience []WorkExperience `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE" json:"work_experience"`
	Skills         []Skill          `gorm:"many2many:candidate_skills;constraint:OnDelete:CASCADE" json:"skills"`
	Projects       []Project        `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE" json:"projects"`
	Certifications []Certification  `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE" json:"certifications"`
}

func (Candidate) TableName() string {
	return "candidates"
}

type Education struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CandidateID  uint       `gorm:"not null;index" json:"candidate_id"`
	Institution  string     `gorm:"type:text;not null" json:"institution"`
	Degree       string     `gorm:"type:text;not null;index" json:"degree"`
	FieldOfStudy *string    `gorm:"type:text" json:"field_of_study,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Education) TableName() string {
	return "education"
}

type WorkExperience struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CandidateID    uint           `gorm:"not null;index" json:"candidate_id"`
	Company        string         `gorm:"type:text;not null" json:"company"`
	Position       string         `gorm:"type:text;not null" json:"position"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	EndDateInvalid bool           `gorm:"not null;default:false" json:"end_date_invalid,omitempty"` // end given but unparseable
	Description    *string        `gorm:"type:text" json:"description,omitempty"`
	Achievements   pq.StringArray `gorm:"type:text[]" json:"achievements"`
	Location       *string        `gorm:"type:text" json:"location,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (WorkExperience) TableName() string {
	return "work_experience"
}

// Skill names are unique after case folding; Name keeps the first spelling seen.
type Skill struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Name           string           `gorm:"type:text;not null" json:"name"`
	NormalizedName string           `gorm:"type:text;not null;uniqueIndex" json:"-"`
	Category       *string          `gorm:"type:text" json:"category,omitempty"`
	Embedding      *pgvector.Vector `gorm:"type:vector" json:"-"`
	CreatedAt      time.Time        `json:"-"`
}

func (Skill) TableName() string {
	return "skills"
}

// CandidateSkill is the junction row. The composite key makes a duplicated
// link impossible.
type CandidateSkill struct {
	CandidateID uint      `gorm:"primaryKey" json:"candidate_id"`
	SkillID     uint      `gorm:"primaryKey;index" json:"skill_id"`
	CreatedAt   time.Time `json:"-"`
}

func (CandidateSkill) TableName() string {
	return "candidate_skills"
}

type Project struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CandidateID  uint           `gorm:"not null;index" json:"candidate_id"`
	Name         string         `gorm:"type:text;not null" json:"name"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	StartDate    *time.Time     `json:"start_date,omitempty"`
	EndDate      *time.Time     `json:"end_date,omitempty"`
	Technologies pq.StringArray `gorm:"type:text[]" json:"technologies"`
	URL          *string        `gorm:"type:text" json:"url,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (Project) TableName() string {
	return "projects"
}

type Certification struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CandidateID   uint       `gorm:"not null;index" json:"candidate_id"`
	Name          string     `gorm:"type:text;not null" json:"name"`
	Issuer        string     `gorm:"type:text" json:"issuer"`
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	CredentialID  *string    `gorm:"type:text" json:"credential_id,omitempty"`
	CredentialURL *string    `gorm:"type:text" json:"credential_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (Certification) TableName() string {
	return "certifications"
}

// Row projections read by the search filters. Each maps to a single table.

type LocationRow struct {
	ID       uint
	Location *string
}

type EducationRow struct {
	CandidateID uint
	Degree      string
}

type WorkPeriodRow struct {
	CandidateID    uint
	StartDate      *time.Time
	EndDate        *time.Time
	EndDateInvalid bool
}

type EmbeddingRow struct {
	ID                  uint
	ExperienceEmbedding *pgvector.Vector
	SkillsEmbedding     *pgvector.Vector
}
