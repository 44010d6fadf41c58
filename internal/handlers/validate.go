package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for document fields.
const (
	maxTitleLen       = 300
	maxPageContentLen = 100_000
	maxQuoteLen       = 2_000
	maxCommentLen     = 10_000
)

// validateTitle checks a document title and returns the first error found.
func validateTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	return ""
}

// validatePageContent checks a page body.
func validatePageContent(content string) string {
	if utf8.RuneCountInString(content) > maxPageContentLen {
		return "Page content is too long (max 100,000 characters)."
	}
	return ""
}

// validateAnnotation checks annotation inputs.
func validateAnnotation(quote, comment string) string {
	if strings.TrimSpace(comment) == "" {
		return "Comment is required."
	}
	if utf8.RuneCountInString(quote) > maxQuoteLen {
		return "Quote is too long (max 2,000 characters)."
	}
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return "Comment is too long (max 10,000 characters)."
	}
	return ""
}
