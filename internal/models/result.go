package models

// FilterRequest is the body of the structural search endpoint.
type FilterRequest struct {
	Skills             []string `json:"skills"`
	Location           string   `json:"location"`
	MinExperienceYears *float64 `json:"min_experience_years"`
	EducationLevel     string   `json:"education_level"`
}

// SemanticSearchRequest is the body of the semantic search endpoint.
type SemanticSearchRequest struct {
	Query              string   `json:"query"`
	RequiredSkills     []string `json:"required_skills"`
	Location           string   `json:"location"`
	MinExperienceYears *float64 `json:"min_experience_years"`
	EducationLevel     string   `json:"education_level"`
}

// RankedCandidate is a hydrated candidate with its semantic score.
type RankedCandidate struct {
	Candidate
	SimilarityScore float64 `json:"similarity_score"`
}

// SimilarCandidate is a hit from the vector index.
type SimilarCandidate struct {
	CandidateID uint    `json:"candidate_id"`
	FullName    string  `json:"full_name"`
	Score       float64 `json:"score"`
}

type UploadResponse struct {
	DocumentID   string     `json:"document_id"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"original_name"`
	Replaced     bool       `json:"replaced"`
	Candidate    *Candidate `json:"candidate"`
}

type FailedUpload struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type BatchUploadResponse struct {
	SuccessfulUploads []UploadResponse `json:"successful_uploads"`
	FailedUploads     []FailedUpload   `json:"failed_uploads"`
}
