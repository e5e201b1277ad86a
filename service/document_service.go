package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/tieubaoca/embedding-be/types"
	"github.com/tieubaoca/embedding-be/utils"
)

const (
	// minNativeTextLength is the trimmed length below which a PDF
	// page's embedded text is considered missing and the page is
	// rasterized for OCR.
	minNativeTextLength = 50
	// ocrRenderDPI renders PDF pages at twice the native 72 DPI
	// before OCR.
	ocrRenderDPI = 144
)

// pageSource abstracts the PDF backend so extraction logic can be
// tested without a MuPDF build.
type pageSource interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	ImagePNG(pageNumber int, dpi float64) ([]byte, error)
	Close() error
}

type fitzSource struct {
	doc *fitz.Document
}

func (f *fitzSource) NumPage() int { return f.doc.NumPage() }

func (f *fitzSource) Text(pageNumber int) (string, error) {
	return f.doc.Text(pageNumber)
}

func (f *fitzSource) ImagePNG(pageNumber int, dpi float64) ([]byte, error) {
	img, err := f.doc.ImageDPI(pageNumber, dpi)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *fitzSource) Close() error { return f.doc.Close() }

func openFitz(content []byte) (pageSource, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, err
	}
	return &fitzSource{doc: doc}, nil
}

// DocumentService turns raw file bytes into text, tracking per-page
// spans for PDFs.
type DocumentService struct {
	ocr          TextRecognizer
	ocrLanguage  string
	openDocument func(content []byte) (pageSource, error)
}

func NewDocumentService(ocr TextRecognizer, ocrLanguage string) *DocumentService {
	return &DocumentService{
		ocr:          ocr,
		ocrLanguage:  ocrLanguage,
		openDocument: openFitz,
	}
}

// ExtractText extracts text from a file, routing on the MIME type
// derived from the filename.
func (s *DocumentService) ExtractText(content []byte, filename string) (string, error) {
	mimeType := utils.MIMETypeFromFilename(filename)
	switch mimeType {
	case "application/pdf":
		text, _, err := s.ExtractPDFWithPages(content)
		return text, err
	case "image/png", "image/jpeg":
		text := CleanOCRText(s.ocr.RecognizeImage(content, s.ocrLanguage))
		if text == "" {
			return "", types.ErrNoTextExtracted
		}
		return text, nil
	case "text/plain", "text/markdown", "text/x-python":
		// Keep whatever decodes, drop invalid sequences.
		return strings.ToValidUTF8(string(content), ""), nil
	case "application/json":
		var parsed any
		if err := json.Unmarshal(content, &parsed); err != nil {
			return "", fmt.Errorf("%w: invalid json: %v", types.ErrExtractionFailure, err)
		}
		pretty, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return "", fmt.Errorf("%w: %v", types.ErrExtractionFailure, err)
		}
		return string(pretty), nil
	case "":
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedFileType, filename)
	default:
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedFileType, mimeType)
	}
}

// ExtractPDFWithPages extracts every page of a PDF, falling back to
// OCR on pages with little or no embedded text. It returns the page
// texts joined with PageSeparator and a PageRecord per page whose
// offsets index into that joined string.
func (s *DocumentService) ExtractPDFWithPages(content []byte) (string, []types.PageRecord, error) {
	doc, err := s.openDocument(content)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", types.ErrExtractionFailure, err)
	}
	defer doc.Close()

	var builder strings.Builder
	pages := make([]types.PageRecord, 0, doc.NumPage())

	for i := 0; i < doc.NumPage(); i++ {
		pageText, ocrUsed := s.extractPage(doc, i)

		if i > 0 {
			builder.WriteString(types.PageSeparator)
		}
		start := builder.Len()
		builder.WriteString(pageText)

		pages = append(pages, types.PageRecord{
			PageNumber: i + 1,
			Text:       pageText,
			CharStart:  start,
			CharEnd:    builder.Len(),
			OCRUsed:    ocrUsed,
		})
	}

	fullText := builder.String()
	if strings.TrimSpace(fullText) == "" {
		return "", nil, types.ErrNoTextExtracted
	}
	return fullText, pages, nil
}

// extractPage returns the page text and whether the page was
// classified as scanned. A page with less than minNativeTextLength of
// embedded text is scanned no matter what OCR ends up producing, so
// the flag survives OCR failures. Failures yield the native text (or
// an empty page) instead of an error, so one bad scan does not abort
// the document.
func (s *DocumentService) extractPage(doc pageSource, pageNumber int) (string, bool) {
	native, err := doc.Text(pageNumber)
	if err == nil && len(strings.TrimSpace(native)) >= minNativeTextLength {
		return native, false
	}

	imageData, imgErr := doc.ImagePNG(pageNumber, ocrRenderDPI)
	if imgErr != nil {
		if err == nil {
			return native, true
		}
		return "", true
	}
	recognized := CleanOCRText(s.ocr.RecognizeImage(imageData, "auto"))
	if recognized == "" && err == nil {
		return native, true
	}
	return recognized, true
}

// SinglePageRecord wraps non-paginated text in a one-page record so
// images and plain text flow through the same chunking path as PDFs.
func SinglePageRecord(text string) []types.PageRecord {
	return []types.PageRecord{{
		PageNumber: 1,
		Text:       text,
		CharStart:  0,
		CharEnd:    len(text),
	}}
}

// CleanOCRText trims every line and drops blank ones.
func CleanOCRText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
