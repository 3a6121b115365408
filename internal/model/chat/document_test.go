package chat

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSanitizeNameFixedCase(t *testing.T) {
	got := SanitizeName("Report (Final)!.pdf")
	if got != "Report-(Final)" {
		t.Fatalf("unexpected sanitized name: got %q want %q", got, "Report-(Final)")
	}
}

func TestSanitizeNameIdempotent(t *testing.T) {
	inputs := []string{
		"Report (Final)!.pdf",
		"résumé.pdf",
		"  weird__name!!.PDF ",
		"....",
		"",
		"a.pdf.pdf",
		"!!!.pdf",
		"already-clean",
		strings.Repeat("x", 300) + ".pdf",
		strings.Repeat("a-", 200) + ".pdf",
		"汉字文件名.pdf",
	}

	for _, input := range inputs {
		once := SanitizeName(input)
		twice := SanitizeName(once)
		if once != twice {
			t.Errorf("sanitize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestSanitizeNameBounds(t *testing.T) {
	inputs := []string{
		"",
		"!!!",
		"...pdf",
		strings.Repeat("b", 1000),
		strings.Repeat("-", 400),
	}

	for _, input := range inputs {
		got := SanitizeName(input)
		if got == "" {
			t.Errorf("sanitize produced empty string for %q", input)
		}
		if len(got) > 256 {
			t.Errorf("sanitize produced %d characters for %q", len(got), input)
		}
	}
}

func TestSanitizeNameEmptyFallback(t *testing.T) {
	if got := SanitizeName("!!!.pdf"); got != "document" {
		t.Fatalf("expected fallback name, got %q", got)
	}
}

func pdfBytes(size int) []byte {
	data := []byte("%PDF-1.4\n")
	if size > len(data) {
		data = append(data, bytes.Repeat([]byte{'a'}, size-len(data))...)
	}
	return data
}

func TestNewDocumentAcceptsPDF(t *testing.T) {
	doc, err := NewDocument("My Report!.pdf", pdfBytes(64))
	if err != nil {
		t.Fatalf("NewDocument err: %v", err)
	}

	if doc.Name != "My-Report" {
		t.Fatalf("unexpected sanitized name: %q", doc.Name)
	}
	if doc.DisplayName != "My Report!.pdf" {
		t.Fatalf("unexpected display name: %q", doc.DisplayName)
	}
	if doc.Format != FormatPDF {
		t.Fatalf("unexpected format: %q", doc.Format)
	}
}

func TestNewDocumentRejectsOversize(t *testing.T) {
	if _, err := NewDocument("big.pdf", pdfBytes(MaxDocumentBytes+1)); !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}
}

func TestNewDocumentRejectsNonPDF(t *testing.T) {
	if _, err := NewDocument("notes.pdf", []byte("plain text")); !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestNewDocumentRejectsEmpty(t *testing.T) {
	if _, err := NewDocument("empty.pdf", nil); !errors.Is(err, ErrDocumentEmpty) {
		t.Fatalf("expected ErrDocumentEmpty, got %v", err)
	}
}
