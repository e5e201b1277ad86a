package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/tieubaoca/embedding-be/types"
)

type fakeRecognizer struct {
	text  string
	calls int
}

func (f *fakeRecognizer) RecognizeImage(imageData []byte, language string) string {
	f.calls++
	return f.text
}

type fakePage struct {
	text    string
	textErr error
	imgErr  error
}

type fakeSource struct {
	pages  []fakePage
	closed bool
}

func (f *fakeSource) NumPage() int { return len(f.pages) }

func (f *fakeSource) Text(n int) (string, error) {
	return f.pages[n].text, f.pages[n].textErr
}

func (f *fakeSource) ImagePNG(n int, dpi float64) ([]byte, error) {
	if f.pages[n].imgErr != nil {
		return nil, f.pages[n].imgErr
	}
	return []byte("png"), nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func newTestDocumentService(src *fakeSource, recognizer TextRecognizer) *DocumentService {
	s := NewDocumentService(recognizer, "auto")
	s.openDocument = func(content []byte) (pageSource, error) {
		return src, nil
	}
	return s
}

func TestExtractPDFWithPagesMixedContent(t *testing.T) {
	nativeText := strings.Repeat("native page text with plenty of characters. ", 3)
	src := &fakeSource{pages: []fakePage{
		{text: nativeText},
		{text: "  "},
		{text: nativeText},
	}}
	recognizer := &fakeRecognizer{text: "recognized scanned content of the middle page"}
	s := newTestDocumentService(src, recognizer)

	fullText, pages, err := s.ExtractPDFWithPages([]byte("pdf"))
	if err != nil {
		t.Fatalf("ExtractPDFWithPages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}

	if pages[0].OCRUsed || pages[2].OCRUsed {
		t.Error("native pages must not be marked as OCR")
	}
	if !pages[1].OCRUsed {
		t.Error("blank page should have been OCRed")
	}
	if recognizer.calls != 1 {
		t.Errorf("recognizer called %d times, want 1", recognizer.calls)
	}
	if pages[1].Text != "recognized scanned content of the middle page" {
		t.Errorf("page 2 text = %q", pages[1].Text)
	}

	for i, page := range pages {
		if page.PageNumber != i+1 {
			t.Errorf("page %d has number %d", i, page.PageNumber)
		}
		if got := fullText[page.CharStart:page.CharEnd]; got != page.Text {
			t.Errorf("page %d span resolves to %q, want %q", i, got, page.Text)
		}
	}
	for i := 1; i < len(pages); i++ {
		if pages[i].CharStart != pages[i-1].CharEnd+len(types.PageSeparator) {
			t.Errorf("page %d start %d does not follow previous end %d",
				i, pages[i].CharStart, pages[i-1].CharEnd)
		}
	}
	if !src.closed {
		t.Error("document source was not closed")
	}
}

func TestExtractPDFWithPagesAllEmpty(t *testing.T) {
	src := &fakeSource{pages: []fakePage{{text: ""}, {text: " "}}}
	s := newTestDocumentService(src, &fakeRecognizer{text: ""})

	_, _, err := s.ExtractPDFWithPages([]byte("pdf"))
	if !errors.Is(err, types.ErrNoTextExtracted) {
		t.Errorf("err = %v, want ErrNoTextExtracted", err)
	}
}

func TestExtractPDFWithPagesRenderFailureKeepsNativeText(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{text: "tiny", imgErr: errors.New("render failed")},
	}}
	s := newTestDocumentService(src, &fakeRecognizer{text: "unused"})

	fullText, pages, err := s.ExtractPDFWithPages([]byte("pdf"))
	if err != nil {
		t.Fatalf("ExtractPDFWithPages: %v", err)
	}
	if fullText != "tiny" {
		t.Errorf("fullText = %q, want the native text", fullText)
	}
	if !pages[0].OCRUsed {
		t.Error("sparse page must stay marked as scanned even when rendering fails")
	}
}

func TestExtractPDFWithPagesEmptyOCRKeepsScannedFlag(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{text: "tiny"},
	}}
	s := newTestDocumentService(src, &fakeRecognizer{text: ""})

	fullText, pages, err := s.ExtractPDFWithPages([]byte("pdf"))
	if err != nil {
		t.Fatalf("ExtractPDFWithPages: %v", err)
	}
	if fullText != "tiny" {
		t.Errorf("fullText = %q, want the native text kept", fullText)
	}
	if !pages[0].OCRUsed {
		t.Error("sparse page must stay marked as scanned even when OCR finds nothing")
	}
}

func TestExtractTextPlainFiles(t *testing.T) {
	s := NewDocumentService(&fakeRecognizer{}, "auto")

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"plain text", "notes.txt", []byte("hello"), "hello"},
		{"markdown", "readme.md", []byte("# title"), "# title"},
		{"python source", "script.py", []byte("print(1)"), "print(1)"},
		{"invalid utf8 dropped", "notes.txt", []byte{'h', 'i', 0xff}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ExtractText(tt.content, tt.filename)
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextJSON(t *testing.T) {
	s := NewDocumentService(&fakeRecognizer{}, "auto")

	got, err := s.ExtractText([]byte(`{"b":1,"a":"x"}`), "data.json")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	want := "{\n  \"a\": \"x\",\n  \"b\": 1\n}"
	if got != want {
		t.Errorf("ExtractText = %q, want %q", got, want)
	}
}

func TestExtractTextInvalidJSON(t *testing.T) {
	s := NewDocumentService(&fakeRecognizer{}, "auto")

	_, err := s.ExtractText([]byte("{not json"), "data.json")
	if !errors.Is(err, types.ErrExtractionFailure) {
		t.Errorf("err = %v, want ErrExtractionFailure", err)
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	s := NewDocumentService(&fakeRecognizer{}, "auto")

	_, err := s.ExtractText([]byte("binary"), "archive.zip")
	if !errors.Is(err, types.ErrUnsupportedFileType) {
		t.Errorf("err = %v, want ErrUnsupportedFileType", err)
	}
}

func TestExtractTextImageUsesOCR(t *testing.T) {
	recognizer := &fakeRecognizer{text: "  line one  \n\n line two \n"}
	s := NewDocumentService(recognizer, "auto")

	got, err := s.ExtractText([]byte("png bytes"), "scan.png")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "line one\nline two" {
		t.Errorf("ExtractText = %q, want cleaned OCR output", got)
	}
}

func TestExtractTextImageEmptyOCR(t *testing.T) {
	s := NewDocumentService(&fakeRecognizer{text: "   "}, "auto")

	_, err := s.ExtractText([]byte("png bytes"), "scan.jpg")
	if !errors.Is(err, types.ErrNoTextExtracted) {
		t.Errorf("err = %v, want ErrNoTextExtracted", err)
	}
}

func TestCleanOCRText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  hello  \n\n  world \n", "hello\nworld"},
		{"single", "single"},
		{"\n\n\n", ""},
	}
	for _, tt := range tests {
		if got := CleanOCRText(tt.in); got != tt.want {
			t.Errorf("CleanOCRText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
