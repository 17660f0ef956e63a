package services

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// pdfBaseDPI is the resolution of one PDF user-space unit per inch.
const pdfBaseDPI = 72.0

// PageRasterizer renders PDF pages to bitmaps.
type PageRasterizer interface {
	RasterizeFirstPage(data []byte, scale float64) (image.Image, error)
}

type fitzRasterizer struct{}

func NewPageRasterizer() PageRasterizer {
	return &fitzRasterizer{}
}

// RasterizeFirstPage implements PageRasterizer.
func (r *fitzRasterizer) RasterizeFirstPage(data []byte, scale float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	if scale <= 0 {
		scale = 1
	}

	img, err := doc.ImageDPI(0, pdfBaseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render first page: %w", err)
	}

	return img, nil
}
