package rag

import (
	"fmt"
	"net/url"
	"strings"

	"pdf-rag/internal/models"
)

// AssemblePrompt joins the retrieved chunks with blank lines and appends the query.
func AssemblePrompt(chunks []string, query string) string {
	return fmt.Sprintf(models.PromptTemplate, strings.Join(chunks, models.ContextSeparator), query)
}

// BuildCitations maps each match to a link on the file-serving endpoint,
// keeping match order.
func BuildCitations(baseURL string, matches []models.Match) []models.Citation {
	citations := make([]models.Citation, len(matches))
	for i, m := range matches {
		citations[i] = models.Citation{
			URL:   fmt.Sprintf("%s/pdf/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(m.Source)),
			Title: m.Source,
		}
	}
	return citations
}
