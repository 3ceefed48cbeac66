package models

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lib/pq"
)

var openEndedDates = map[string]bool{
	"":        true,
	"present": true,
	"current": true,
	"now":     true,
	"ongoing": true,
	"null":    true,
	"none":    true,
	"n/a":     true,
}

// UnknownDate stands for a date that was present but could not be parsed.
const UnknownDate = "unknown"

var dateLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

// ParseDate reads a date as written by the extractor. Placeholders such as
// "YYYY-MM-DD", open-ended markers and anything unparseable yield nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if openEndedDates[strings.ToLower(s)] {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return plausible(t)
		}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return plausible(t)
}

// ParseEndDate parses the end of a period. ok is false when s is neither a
// date nor an open-ended marker, so an unknown end is not read as ongoing.
func ParseEndDate(s string) (t *time.Time, ok bool) {
	t = ParseDate(s)
	return t, t != nil || openEndedDates[strings.ToLower(strings.TrimSpace(s))]
}

func plausible(t time.Time) *time.Time {
	if t.Year() < 1900 || t.Year() > 2200 {
		return nil
	}
	t = t.UTC()
	return &t
}

// NormalizeSkillName is the case-folded form used for skill identity.
func NormalizeSkillName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// SkillNames returns the distinct, trimmed skill names of the input in their
// original order. Names equal after case folding collapse to the first.
func (in *CandidateInput) SkillNames() []string {
	seen := make(map[string]bool, len(in.Skills))
	names := make([]string, 0, len(in.Skills))
	for _, raw := range in.Skills {
		name := strings.Join(strings.Fields(raw), " ")
		key := NormalizeSkillName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// ToCandidate builds the candidate row and its owned children. Skills are
// resolved separately because they are shared between candidates.
func (in *CandidateInput) ToCandidate() Candidate {
	c := Candidate{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    trimmed(in.Phone),
		Location: trimmed(in.Location),
	}

	for _, ed := range in.Education {
		c.Education = append(c.Education, Education{
			Institution:  strings.TrimSpace(ed.Institution),
			Degree:       strings.TrimSpace(ed.Degree),
			FieldOfStudy: trimmed(ed.FieldOfStudy),
			StartDate:    ParseDate(ed.StartDate),
			EndDate:      ParseDate(ed.EndDate),
			Description:  trimmed(ed.Description),
		})
	}
	for _, we := range in.WorkExperience {
		end, ok := ParseEndDate(we.EndDate)
		c.WorkExperience = append(c.WorkExperience, WorkExperience{
			Company:        strings.TrimSpace(we.Company),
			Position:       strings.TrimSpace(we.Position),
			StartDate:      ParseDate(we.StartDate),
			EndDate:        end,
			EndDateInvalid: !ok,
			Description:    trimmed(we.Description),
			Achievements:   pq.StringArray(nonEmpty(we.Achievements)),
			Location:       trimmed(we.Location),
		})
	}
	for _, p := range in.Projects {
		c.Projects = append(c.Projects, Project{
			Name:         strings.TrimSpace(p.Name),
			Description:  trimmed(p.Description),
			StartDate:    ParseDate(p.StartDate),
			EndDate:      ParseDate(p.EndDate),
			Technologies: pq.StringArray(nonEmpty(p.Technologies)),
			URL:          trimmed(p.URL),
		})
	}
	for _, cert := range in.Certifications {
		c.Certifications = append(c.Certifications, Certification{
			Name:          strings.TrimSpace(cert.Name),
			Issuer:        strings.TrimSpace(cert.Issuer),
			IssueDate:     ParseDate(cert.IssueDate),
			ExpiryDate:    ParseDate(cert.ExpiryDate),
			CredentialID:  trimmed(cert.CredentialID),
			CredentialURL: trimmed(cert.CredentialURL),
		})
	}

	return c
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ToInput rebuilds the structured record of a stored candidate.
func (c *Candidate) ToInput() CandidateInput {
	in := CandidateInput{
		FullName: c.FullName,
		Email:    c.Email,
		Phone:    c.Phone,
		Location: c.Location,
	}
	for _, ed := range c.Education {
		in.Education = append(in.Education, EducationInput{
			Institution:  ed.Institution,
			Degree:       ed.Degree,
			FieldOfStudy: ed.FieldOfStudy,
			StartDate:    formatDate(ed.StartDate),
			EndDate:      formatDate(ed.EndDate),
			Description:  ed.Description,
		})
	}
	for _, we := range c.WorkExperience {
		end := formatDate(we.EndDate)
		if we.EndDateInvalid {
			end = UnknownDate
		}
		in.WorkExperience = append(in.WorkExperience, WorkExperienceInput{
			Company:      we.Company,
			Position:     we.Position,
			StartDate:    formatDate(we.StartDate),
			EndDate:      end,
			Description:  we.Description,
			Achievements: []string(we.Achievements),
			Location:     we.Location,
		})
	}
	for _, s := range c.Skills {
		in.Skills = append(in.Skills, s.Name)
	}
	for _, p := range c.Projects {
		in.Projects = append(in.Projects, ProjectInput{
			Name:         p.Name,
			Description:  p.Description,
			StartDate:    formatDate(p.StartDate),
			EndDate:      formatDate(p.EndDate),
			Technologies: []string(p.Technologies),
			URL:          p.URL,
		})
	}
	for _, cert := range c.Certifications {
		in.Certifications = append(in.Certifications, CertificationInput{
			Name:          cert.Name,
			Issuer:        cert.Issuer,
			IssueDate:     formatDate(cert.IssueDate),
			ExpiryDate:    formatDate(cert.ExpiryDate),
			CredentialID:  cert.CredentialID,
			CredentialURL: cert.CredentialURL,
		})
	}
	return in
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
