package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/madhura1396/rocbot/internal/models"
)

// DefaultContextChars caps the body excerpt taken from each source
const DefaultContextChars = 2000

// AssembleContext renders ranked results as numbered source blocks in ranking order.
// Each body is truncated to maxChars runes; results without a document are skipped.
func AssembleContext(results []models.RankedResult, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}

	var b strings.Builder
	index := 0
	for _, result := range results {
		doc := result.Document
		if doc == nil {
			continue
		}
		index++
		fmt.Fprintf(&b, "\n--- Source %d: %s (%s) ---\n", index, doc.Title, doc.Source)
		fmt.Fprintf(&b, "URL: %s\n", doc.URL)
		b.WriteString(truncateContent(doc.ContentFull, maxChars))
		b.WriteString("\n\n")
	}
	return b.String()
}

// BuildCitations maps ranked results to citations in ranking order
func BuildCitations(results []models.RankedResult) []models.Citation {
	citations := make([]models.Citation, 0, len(results))
	for _, result := range results {
		if result.Document == nil {
			continue
		}
		citations = append(citations, models.Citation{
			Title:    result.Document.Title,
			URL:      result.Document.URL,
			Source:   result.Document.Source,
			Category: result.Document.Category,
		})
	}
	return citations
}

// truncateContent keeps the first maxChars runes of content
func truncateContent(content string, maxChars int) string {
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	count := 0
	for i := range content {
		if count == maxChars {
			return content[:i]
		}
		count++
	}
	return content
}
