package services

import (
	"strings"

	"alfredoptarigan/talent-intake/internal/models"
)

// FindDuplicate returns the reason a parsed candidate collides with a known
// one, or "" when it does not. Email wins over name. Blank fields never match.
func FindDuplicate(parsed models.ParsedCandidate, known []models.Candidate) string {
	email := normalizeKey(parsed.Email)
	if email != "" {
		for _, c := range known {
			if normalizeKey(c.Email) == email {
				return models.DuplicateReasonEmail
			}
		}
	}

	name := normalizeKey(parsed.FullName)
	if name != "" {
		for _, c := range known {
			if normalizeKey(c.FullName) == name {
				return models.DuplicateReasonName
			}
		}
	}

	return ""
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
