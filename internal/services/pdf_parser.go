package services

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// PDFParserService extracts plain text from PDF documents.
type PDFParserService interface {
	ExtractText(content []byte) (string, error)
}

type pdfParserService struct {
	fallback func(content []byte) (string, error)
	logger   *slog.Logger
}

// NewPDFParserService parses with the pure Go reader and falls back to
// docconv (pdftotext) for documents it cannot read.
func NewPDFParserService(logger *slog.Logger) PDFParserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &pdfParserService{
		fallback: convertWithDocconv,
		logger:   logger.With("component", "pdf-parser"),
	}
}

// IsPDF reports whether content starts with the PDF header.
func IsPDF(content []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(content, "\x00\t\r\n "), pdfMagic)
}

func (p *pdfParserService) ExtractText(content []byte) (string, error) {
	if !IsPDF(content) {
		return "", fmt.Errorf("content is not a PDF document")
	}

	text, err := readPlainText(content)
	if err == nil && strings.TrimSpace(text) != "" {
		return CleanText(text), nil
	}
	if err != nil {
		p.logger.Debug("pdf reader failed, trying docconv", "err", err)
	}

	text, fbErr := p.fallback(content)
	if fbErr != nil {
		if err != nil {
			return "", fmt.Errorf("failed to open PDF: %w", err)
		}
		return "", fmt.Errorf("failed to convert PDF: %w", fbErr)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}
	return CleanText(text), nil
}

func readPlainText(content []byte) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

func convertWithDocconv(content []byte) (string, error) {
	text, _, err := docconv.ConvertPDF(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	return text, nil
}

// CleanText trims every line and collapses runs of blank lines into one
// paragraph break.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = true
			continue
		}
		if blank && len(cleaned) > 0 {
			cleaned = append(cleaned, "")
		}
		blank = false
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}
