package services

import "math"

// CosineSimilarity returns the cosine of the angle between a and b,
// accumulated in float64. Vectors of different length or with a zero norm
// score 0 so they never pass a positive threshold.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// dualScore is the mean of the experience and skills similarities.
func dualScore(queryExperience, querySkills, experience, skills []float32) float64 {
	return (CosineSimilarity(queryExperience, experience) + CosineSimilarity(querySkills, skills)) / 2
}
