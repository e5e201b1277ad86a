package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TextRecognizer extracts text from an encoded image. Implementations
// must treat unreadable images as empty results rather than hard
// failures, so a single bad page never aborts a whole document.
type TextRecognizer interface {
	RecognizeImage(imageData []byte, language string) string
}

// OCRService runs Tesseract over page images. Each recognition uses a
// fresh client because gosseract clients are not safe for concurrent
// use across the worker pool.
type OCRService struct {
	enhance bool
}

func NewOCRService(enhance bool) *OCRService {
	return &OCRService{enhance: enhance}
}

// tesseractLanguages maps the pipeline's language hints onto Tesseract
// traineddata names. Unknown hints fall back to auto.
func tesseractLanguages(language string) string {
	switch language {
	case "vi":
		return "vie"
	case "en", "code":
		return "eng"
	default:
		return "eng+vie"
	}
}

// RecognizeImage OCRs the image, and when the first pass looks poor,
// retries on an enhanced copy and keeps the longer result. Every
// failure path returns an empty string.
func (s *OCRService) RecognizeImage(imageData []byte, language string) string {
	first, err := s.runTesseract(imageData, language)
	if err != nil {
		log.Printf("ocr failed: %v", err)
		return ""
	}

	if !s.enhance || !isPoorOCRResult(first) {
		return first
	}

	enhanced, err := encodeEnhanced(imageData)
	if err != nil {
		log.Printf("image enhancement failed, keeping first ocr pass: %v", err)
		return first
	}
	second, err := s.runTesseract(enhanced, language)
	if err != nil {
		log.Printf("ocr retry failed, keeping first pass: %v", err)
		return first
	}
	return betterOCRResult(first, second)
}

// betterOCRResult keeps the retry only when it produced strictly more
// output. Lengths are compared raw, ties keep the first pass.
func betterOCRResult(first, second string) string {
	if len(second) > len(first) {
		return second
	}
	return first
}

func (s *OCRService) runTesseract(imageData []byte, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(tesseractLanguages(language), "+")...); err != nil {
		return "", fmt.Errorf("failed to set ocr language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}
	return text, nil
}

func encodeEnhanced(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, enhanceImage(img)); err != nil {
		return nil, fmt.Errorf("failed to encode enhanced image: %w", err)
	}
	return buf.Bytes(), nil
}

// isPoorOCRResult flags output that is too short or dominated by
// stray single-character tokens, both typical of a failed pass on a
// low-quality scan.
func isPoorOCRResult(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 10 {
		return true
	}
	tokens := strings.Fields(trimmed)
	if len(tokens) == 0 {
		return true
	}
	single := 0
	for _, token := range tokens {
		if len([]rune(token)) == 1 {
			single++
		}
	}
	return float64(single)/float64(len(tokens)) > 0.5
}
