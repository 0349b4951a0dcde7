package search

import (
	"strings"

	"github.com/markdave123-py/Memora/internal/models"
)

// Terms lowercases and tokenizes a query for keyword matching.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// keywordScore weights case-insensitive substring hits per query term:
// title 3, summary 2, any tag 1. The total is normalized by 10 and capped
// at 1 so keyword and semantic scores share a scale.
func keywordScore(doc *models.Document, terms []string) float64 {
	title := strings.ToLower(doc.Title)
	summary := strings.ToLower(doc.Summary)

	points := 0.0
	for _, term := range terms {
		if strings.Contains(title, term) {
			points += 3
		}
		if strings.Contains(summary, term) {
			points += 2
		}
		for _, tag := range doc.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				points++
				break
			}
		}
	}

	score := points / 10
	if score > 1 {
		score = 1
	}
	return score
}
