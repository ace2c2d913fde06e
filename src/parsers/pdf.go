package parsers

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/username/notafolio/backend/src/logger"
)

// PDFTextExtractor extracts plain text from PDF documents, one string
// per page. Layout information is discarded; the note parser works on
// line-oriented text only.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

func (e *PDFTextExtractor) ExtractPages(r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF document: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF document has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			logger.L.Debug("Skipping null PDF page", "page", i)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no text could be extracted from PDF document")
	}
	return pages, nil
}
