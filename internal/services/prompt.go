package services

import (
	"fmt"
	"strings"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildExtractionPrompt asks the model to turn raw CV text into a
// CandidateInput JSON document.
func (pb *PromptBuilder) BuildExtractionPrompt(cvText string) string {
	return fmt.Sprintf(`You are an expert HR assistant that extracts structured data from CVs.

CANDIDATE CV:
%s

Extract the candidate's information and return it in the following JSON format:
{
  "full_name": "<string>",
  "email": "<string>",
  "phone": "<string or null>",
  "location": "<city, country or null>",
  "education": [
    {"institution": "<string>", "degree": "<string>", "field_of_study": "<string or null>",
     "start_date": "<YYYY-MM-DD or null>", "end_date": "<YYYY-MM-DD or null>", "description": "<string or null>"}
  ],
  "work_experience": [
    {"company": "<string>", "position": "<string>", "start_date": "<YYYY-MM-DD or null>",
     "end_date": "<YYYY-MM-DD, or null if current>", "description": "<string or null>",
     "achievements": ["<string>"], "location": "<string or null>"}
  ],
  "skills": ["<string>"],
  "projects": [
    {"name": "<string>", "description": "<string or null>", "start_date": "<YYYY-MM-DD or null>",
     "end_date": "<YYYY-MM-DD or null>", "technologies": ["<string>"], "url": "<string or null>"}
  ],
  "certifications": [
    {"name": "<string>", "issuer": "<string>", "issue_date": "<YYYY-MM-DD or null>",
     "expiry_date": "<YYYY-MM-DD or null>", "credential_id": "<string or null>", "credential_url": "<string or null>"}
  ]
}

Rules:
- Use null when a value is not present in the CV. Never invent placeholder dates.
- When only a month or year is known use the first day of that period.
- List each skill once using its common name (e.g. "Python", "PostgreSQL").
- Return ONLY the JSON object.`, cvText)
}

// BuildExperienceText is the text embedded as a candidate's experience vector.
func (pb *PromptBuilder) BuildExperienceText(in *models.CandidateInput) string {
	var parts []string
	for _, we := range in.WorkExperience {
		line := fmt.Sprintf("%s at %s", we.Position, we.Company)
		if we.Description != nil && *we.Description != "" {
			line += ": " + *we.Description
		}
		if len(we.Achievements) > 0 {
			line += " Achievements: " + strings.Join(we.Achievements, "; ")
		}
		parts = append(parts, line)
	}
	for _, p := range in.Projects {
		line := "Project " + p.Name
		if p.Description != nil && *p.Description != "" {
			line += ": " + *p.Description
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

// BuildSkillsText is the text embedded as a candidate's skills vector.
func (pb *PromptBuilder) BuildSkillsText(in *models.CandidateInput) string {
	skills := in.SkillNames()
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		seen[models.NormalizeSkillName(s)] = true
	}
	for _, p := range in.Projects {
		for _, tech := range p.Technologies {
			if key := models.NormalizeSkillName(tech); key != "" && !seen[key] {
				seen[key] = true
				skills = append(skills, strings.TrimSpace(tech))
			}
		}
	}

	text := "Skills: " + strings.Join(skills, ", ")
	var certs []string
	for _, c := range in.Certifications {
		certs = append(certs, c.Name)
	}
	if len(certs) > 0 {
		text += "\nCertifications: " + strings.Join(certs, ", ")
	}
	return text
}

// BuildQueryTexts returns the experience and skills texts for a search query.
func (pb *PromptBuilder) BuildQueryTexts(query string) (string, string) {
	query = strings.TrimSpace(query)
	return query, "Skills: " + query
}
