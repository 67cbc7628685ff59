package pipeline

import (
	"strings"

	"studypath-backend/internal/models"
)

// Style categories in scoring order. Ties go to the earlier category.
var styleCategories = []string{"One_Shot", "Course", "Practical", "Interview_Prep", "Conceptual", "Advice"}

var styleKeywords = map[string][]string{
	"One_Shot":       {"crash course", "in one video", "summary of", "cheat sheet", "entire topic", "fast track", "recap", "one shot"},
	"Course":         {"full course", "zero to hero", "curriculum", "bootcamp", "complete series", "all lectures", "from scratch", "playlist covers"},
	"Practical":      {"code", "implementation", "hands-on", "build", "project", "demo", "typing", "function", "terminal", "tutorial"},
	"Interview_Prep": {"leetcode", "solution", "problem", "complexity", "google", "amazon", "interview", "approach", "optimizing"},
	"Conceptual":     {"theory", "concept", "under the hood", "architecture", "diagram", "whiteboard", "why it works", "visualize"},
	"Advice":         {"roadmap", "mistakes", "salary", "jobs", "resume", "career", "guide to", "resources"},
}

var difficultyKeywords = map[string][]string{
	"Beginner": {"intro", "introduction", "basic", "basics", "beginner", "beginners", "what is", "101", "getting started", "foundation"},
	"Advanced": {"advanced", "internal", "architecture", "under the hood", "optimization", "system design", "master", "expert", "complex", "low level", "scaling"},
}

const (
	titleWeight = 10
	introWeight = 5
	bodyWeight  = 1

	introChars = 500
)

// DetermineTags classifies a video's style, granularity, difficulty and
// engagement tier from its metadata and transcript.
func DetermineTags(meta *models.VideoMeta, fullTranscript string) models.ContentTags {
	style, granularity := determineStyle(meta.Title, fullTranscript, meta.DurationSeconds)
	return models.ContentTags{
		Difficulty:  determineDifficulty(meta.Title, meta.Description),
		Style:       style,
		Granularity: granularity,
		Engagement:  determineEngagement(meta.Views, meta.Likes),
	}
}

// determineStyle scores each category with three weighted signals: keyword in
// title (10), keyword in the first 500 transcript chars (5), and raw keyword
// occurrences across the whole transcript (1 each). Zero across the board
// falls back to duration heuristics.
func determineStyle(title, fullTranscript string, durationSeconds int) (style, granularity string) {
	titleLower := strings.ToLower(title)
	transcriptLower := strings.ToLower(fullTranscript)
	introLower := transcriptLower
	if len(introLower) > introChars {
		introLower = introLower[:introChars]
	}

	bestStyle := ""
	bestScore := 0
	for _, category := range styleCategories {
		score := 0
		for _, w := range styleKeywords[category] {
			if strings.Contains(titleLower, w) {
				score += titleWeight
			}
			if strings.Contains(introLower, w) {
				score += introWeight
			}
			score += strings.Count(transcriptLower, w) * bodyWeight
		}
		if score > bestScore {
			bestScore = score
			bestStyle = category
		}
	}

	if bestScore == 0 {
		switch {
		case durationSeconds < 300:
			return "Quick_Summary", "Specific"
		case durationSeconds > 3600:
			return "Course", "Broad"
		default:
			return "Conceptual", "Specific"
		}
	}

	granularity = "Specific"
	if bestStyle == "Course" || bestStyle == "Advice" {
		granularity = "Broad"
	}
	return bestStyle, granularity
}

// determineDifficulty scans the title first, then the description. Beginner
// keywords take priority within each field; first hit wins.
func determineDifficulty(title, description string) string {
	for _, field := range []string{strings.ToLower(title), strings.ToLower(description)} {
		for _, level := range []string{"Beginner", "Advanced"} {
			for _, w := range difficultyKeywords[level] {
				if strings.Contains(field, w) {
					return level
				}
			}
		}
	}
	return "Intermediate"
}

func determineEngagement(views, likes int64) string {
	if views == 0 {
		return "Unknown"
	}
	if views > 500_000 {
		return "Popular"
	}
	likeRatio := float64(likes) / float64(views)
	if views < 50_000 && likeRatio > 0.04 {
		return "Hidden_Gem"
	}
	return "Standard"
}
