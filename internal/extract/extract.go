// Package extract pulls plain text out of attachment content: the text layer
// of PDFs, a vision-model transcription of images and plain text as is.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupported is returned for content types text cannot be extracted from.
	ErrUnsupported = errors.New("extract: unsupported content type")

	// ErrNoText is returned when a supported document yields no text.
	ErrNoText = errors.New("extract: no text found")
)

// imagePrompt asks the vision model for a faithful transcription.
const imagePrompt = "この画像は不動産の販売図面です。画像内の文字をすべて、レイアウトにこだわらずそのまま書き起こしてください。説明や要約は不要です。"

// maxTextBytes bounds the text handed to later stages.
const maxTextBytes = 64 * 1024

// ImageReader transcribes text from an image.
type ImageReader interface {
	DescribeImage(ctx context.Context, prompt, mimeType string, image []byte) (string, error)
}

// Extractor extracts text from attachment bytes.
type Extractor struct {
	vision ImageReader
}

// NewExtractor creates an Extractor. vision may be nil, in which case images
// are unsupported.
func NewExtractor(vision ImageReader) *Extractor {
	return &Extractor{vision: vision}
}

// ExtractText returns the text content of data. The kind is decided from
// mimeType, falling back to the filename extension.
func (e *Extractor) ExtractText(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoText
	}

	var (
		text string
		err  error
	)
	switch Kind(filename, mimeType) {
	case KindPDF:
		text, err = pdfText(data)
	case KindImage:
		if e.vision == nil {
			return "", fmt.Errorf("%w: no vision model configured for %s", ErrUnsupported, filename)
		}
		text, err = e.vision.DescribeImage(ctx, imagePrompt, imageMime(filename, mimeType), data)
	case KindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupported, filename)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupported, filename, mimeType)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return truncate(text, maxTextBytes), nil
}

// ContentKind classifies attachment content.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindPDF
	KindImage
	KindText
)

// Kind classifies content by MIME type, then by filename extension.
func Kind(filename, mimeType string) ContentKind {
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch {
	case mimeType == "application/pdf":
		return KindPDF
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case mimeType == "text/plain":
		return KindText
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return KindImage
	case ".txt":
		return KindText
	}
	return KindUnknown
}

func imageMime(filename, mimeType string) string {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return mimeType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "image/jpeg"
}

// pdfText reads the PDF text layer. The parser panics on some malformed
// inputs; that is reported as an error.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
