package stage

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Pager renders staged PDFs one page at a time for the review preview.
type Pager struct {
	logger *zap.Logger
}

// NewPager creates a new pager
func NewPager(logger *zap.Logger) *Pager {
	return &Pager{logger: logger}
}

// PageCount returns the number of pages in a PDF document.
func (p *Pager) PageCount(document []byte) (int, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return 0, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// RenderPage renders one zero-based page of a PDF document as PNG.
func (p *Pager) RenderPage(document []byte, page int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range, document has %d pages", page, doc.NumPage())
	}

	img, err := doc.Image(page)
	if err != nil {
		p.logger.Warn("Failed to render page",
			zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
	}

	return buf.Bytes(), nil
}
