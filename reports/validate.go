package reports

import (
	"strings"
	"unicode/utf8"

	"marketwatch/models"
)

var (
	validRecommendations = map[string]bool{"buy": true, "hold": true, "sell": true}
	validRiskLevels      = map[string]bool{"low": true, "medium": true, "high": true}
	validStatuses        = map[string]bool{
		models.StatusDraft:     true,
		models.StatusPublished: true,
		models.StatusArchived:  true,
	}
)

// validateReport checks the field constraints shared by create and update.
// It returns one message per offending field; an empty map means the report
// is acceptable.
func validateReport(r *models.Report) map[string]string {
	fields := map[string]string{}

	if n := utf8.RuneCountInString(r.Title); n < 10 || n > 100 {
		fields["title"] = "Title must be between 10 and 100 characters"
	}
	if n := utf8.RuneCountInString(r.Summary); n < 30 || n > 500 {
		fields["summary"] = "Summary must be between 30 and 500 characters"
	}
	if utf8.RuneCountInString(r.Content) < 100 {
		fields["content"] = "Content must be at least 100 characters"
	}
	if r.Industry == "" {
		fields["industry"] = "A report must belong to an industry"
	}
	if len(r.Tags) == 0 {
		fields["tags"] = "A report must have at least one tag"
	}
	if !validRecommendations[r.Recommendation] {
		fields["recommendation"] = "Recommendation must be one of: buy, hold, sell"
	}
	if !validRiskLevels[r.RiskLevel] {
		fields["riskLevel"] = "Risk level must be one of: low, medium, high"
	}
	if !validStatuses[r.Status] {
		fields["status"] = "Status must be one of: draft, published, archived"
	}

	return fields
}

// splitTags parses the comma-separated tags form field.
func splitTags(tagsString string) []string {
	var tags []string
	for _, tag := range strings.Split(tagsString, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
