package parser

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// ExtractText returns the plain text of every page of a PDF, in page order,
// each page followed by a newline. Pages without extractable text contribute
// an empty string.
func ExtractText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", models.ErrUnreadablePDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUnreadablePDF, err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if !page.V.IsNull() {
			pageText, err := page.GetPlainText(nil)
			if err != nil {
				log.Warn().Err(err).Int("page", i).Msg("No extractable text on page")
			} else {
				sb.WriteString(pageText)
			}
		}
		sb.WriteString("\n")
	}

	log.Debug().Int("pages", numPages).Int("chars", sb.Len()).Msg("Extracted PDF text")
	return sb.String(), nil
}

// ExtractFile reads a PDF from disk and extracts its text
func ExtractFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return ExtractText(data)
}
