package chat

import (
	"bytes"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// FormatPDF is the only attachment format the interface accepts.
	FormatPDF = "pdf"

	// MaxDocumentBytes caps a single attachment at 4 MiB.
	MaxDocumentBytes = 4 << 20

	maxNameLength = 256
)

var (
	ErrDocumentEmpty       = errors.New("document is empty")
	ErrDocumentTooLarge    = errors.New("document exceeds the 4 MiB limit")
	ErrUnsupportedDocument = errors.New("only PDF documents are supported")
)

// Document is one attachment embedded in a user turn. Name is the sanitized
// identifier sent to the provider; DisplayName keeps the filename the user
// picked. Data holds the raw bytes (base64 on the JSON wire).
type Document struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Format      string `json:"format"`
	Data        []byte `json:"data"`
}

var pdfMagic = []byte("%PDF-")

// NewDocument validates a picked file and builds the attachment. Violations
// reject the selection without touching any conversation state.
func NewDocument(filename string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrDocumentEmpty
	}
	if len(data) > MaxDocumentBytes {
		return nil, ErrDocumentTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrUnsupportedDocument
	}

	return &Document{
		Name:        SanitizeName(filename),
		DisplayName: filepath.Base(filename),
		Format:      FormatPDF,
		Data:        data,
	}, nil
}

var (
	pdfSuffix        = regexp.MustCompile(`(?i)\.pdf$`)
	invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9 \-()\[\]]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	dashRuns         = regexp.MustCompile(`-+`)
)

// SanitizeName turns an arbitrary filename into a constrained identifier that
// is safe for provider naming rules. The transformation is idempotent, never
// yields an empty string and never exceeds 256 characters. It is applied both
// when a file is attached and again when prior turns are re-serialized for
// the next request.
func SanitizeName(name string) string {
	s := pdfSuffix.ReplaceAllString(name, "")
	s = invalidNameChars.ReplaceAllString(s, "-")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxNameLength {
		// The string is pure ASCII at this point, so byte slicing is safe.
		s = strings.Trim(s[:maxNameLength], "-")
	}
	if s == "" {
		return "document"
	}
	return s
}
