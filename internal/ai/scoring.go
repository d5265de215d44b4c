package ai

// Performance categories reported in feedback.
const (
	CategoryExcellent        = "Excellent"
	CategoryGood             = "Good"
	CategoryAverage          = "Average"
	CategoryBelowAverage     = "Below Average"
	CategoryNeedsImprovement = "Needs Improvement"
)

// Categorize maps a 0-100 score onto a performance category.
func Categorize(score int) string {
	switch {
	case score >= 90:
		return CategoryExcellent
	case score >= 75:
		return CategoryGood
	case score >= 60:
		return CategoryAverage
	case score >= 40:
		return CategoryBelowAverage
	default:
		return CategoryNeedsImprovement
	}
}

// AdjustedScore nudges the model score by two points per strength and minus
// one per improvement area, clamped to 0-100.
func AdjustedScore(score int, strengths, improvements []string) int {
	return clampScore(score + 2*len(strengths) - len(improvements))
}

// Recommendations turns improvement areas into next-step suggestions.
func Recommendations(improvements []string) []string {
	out := make([]string, 0, len(improvements))
	for _, area := range improvements {
		out = append(out, "Focus on improving: "+area)
	}
	return out
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
