package models

import (
	"fmt"
	"net/mail"
	"strings"
)

// CandidateInput is the structured record produced by field extraction and
// accepted by the candidate update endpoint. Dates are free-form strings and
// are parsed leniently when the record is converted.
type CandidateInput struct {
	FullName       string               `json:"full_name"`
	Email          string               `json:"email"`
	Phone          *string              `json:"phone"`
	Location       *string              `json:"location"`
	Education      []EducationInput     `json:"education"`
	WorkExperience []WorkExperienceInput `json:"work_experience"`
	Skills         []string             `json:"skills"`
	Projects       []ProjectInput       `json:"projects"`
	Certifications []CertificationInput `json:"certifications"`
}

type EducationInput struct {
	Institution  string  `json:"institution"`
	Degree       string  `json:"degree"`
	FieldOfStudy *string `json:"field_of_study"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Description  *string `json:"description"`
}

type WorkExperienceInput struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Description  *string  `json:"description"`
	Achievements []string `json:"achievements"`
	Location     *string  `json:"location"`
}

type ProjectInput struct {
	Name         string   `json:"name"`
	Description  *string  `json:"description"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Technologies []string `json:"technologies"`
	URL          *string  `json:"url"`
}

type CertificationInput struct {
	Name          string  `json:"name"`
	Issuer        string  `json:"issuer"`
	IssueDate     string  `json:"issue_date"`
	ExpiryDate    string  `json:"expiry_date"`
	CredentialID  *string `json:"credential_id"`
	CredentialURL *string `json:"credential_url"`
}

// FieldError describes one invalid field of a CandidateInput.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the fields the data model requires. The first problem found
// is returned.
func (in *CandidateInput) Validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return &FieldError{Field: "full_name", Message: "is required"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &FieldError{Field: "email", Message: "is required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &FieldError{Field: "email", Message: "is not a valid address"}
	}
	for i, ed := range in.Education {
		if strings.TrimSpace(ed.Institution) == "" || strings.TrimSpace(ed.Degree) == "" {
			return &FieldError{Field: fmt.Sprintf("education[%d]", i), Message: "institution and degree are required"}
		}
	}
	for i, we := range in.WorkExperience {
		if strings.TrimSpace(we.Company) == "" || strings.TrimSpace(we.Position) == "" {
			return &FieldError{Field: fmt.Sprintf("work_experience[%d]", i), Message: "company and position are required"}
		}
	}
	for i, p := range in.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return &FieldError{Field: fmt.Sprintf("projects[%d]", i), Message: "name is required"}
		}
	}
	for i, c := range in.Certifications {
		if strings.TrimSpace(c.Name) == "" {
			return &FieldError{Field: fmt.Sprintf("certifications[%d]", i), Message: "name is required"}
		}
	}
	return nil
}
