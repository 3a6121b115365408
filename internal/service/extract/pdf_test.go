package extract

import "testing"

func TestPDFTextRejectsGarbage(t *testing.T) {
	if _, err := PDFText([]byte("definitely not a pdf")); err == nil {
		t.Fatal("expected an error for non-PDF input")
	}
}

func TestPDFTextRejectsEmptyInput(t *testing.T) {
	if _, err := PDFText(nil); err == nil {
		t.Fatal("expected an error for empty input")
	}
}
