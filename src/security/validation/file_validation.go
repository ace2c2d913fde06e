package validation

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/username/notafolio/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true, // generic fallback, magic bytes decide
}

// pdfMagic is the signature every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	normalized := strings.ToLower(strings.Split(contentType, ";")[0])
	if !AllowedClientContentTypes[strings.TrimSpace(normalized)] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for note upload", contentType)
	}
	return nil
}

// ValidatePDFMagicBytes checks the actual file content signature. The
// client-declared type is advisory; this is the check that counts.
func ValidatePDFMagicBytes(file io.ReadSeeker) error {
	if file == nil {
		return fmt.Errorf("file is nil")
	}

	buffer := make([]byte, len(pdfMagic))
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the parser can read the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n < len(pdfMagic) || !bytes.Equal(buffer[:len(pdfMagic)], pdfMagic) {
		logger.L.Warn("Uploaded file does not carry a PDF signature")
		return fmt.Errorf("file content is not a PDF document")
	}
	return nil
}
