package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"alfredoptarigan/talent-intake/internal/config"
)

const mimeJPEG = "image/jpeg"

var ErrInvalidFaceBox = errors.New("face box must have exactly 4 coordinates")

// ImageTransformer bounds upload payloads before they reach the model and
// cuts portraits out of CV sources.
type ImageTransformer interface {
	Resize(data []byte, mimeType string) ([]byte, string, error)
	CropPortrait(data []byte, mimeType string, faceBox []float64) ([]byte, error)
}

type imageTransformer struct {
	cfg        config.ImageConfig
	rasterizer PageRasterizer
}

func NewImageTransformer(cfg config.ImageConfig, rasterizer PageRasterizer) ImageTransformer {
	return &imageTransformer{
		cfg:        cfg,
		rasterizer: rasterizer,
	}
}

// Resize implements ImageTransformer. Non-image payloads are returned as is.
func (t *imageTransformer) Resize(data []byte, mimeType string) ([]byte, string, error) {
	if !IsDecodableImage(mimeType) {
		return data, mimeType, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := scaledSize(bounds.Dx(), bounds.Dy(), t.cfg.MaxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	fillWhite(dst)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	out, err := encodeJPEG(dst, t.cfg.JPEGQuality)
	if err != nil {
		return nil, "", err
	}

	return out, mimeJPEG, nil
}

// CropPortrait implements ImageTransformer. The crop is taken from the
// original source, never from the resized payload.
func (t *imageTransformer) CropPortrait(data []byte, mimeType string, faceBox []float64) ([]byte, error) {
	if len(faceBox) != 4 {
		return nil, ErrInvalidFaceBox
	}

	src, err := t.decodeSource(data, mimeType)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	rect := PortraitRect(bounds.Dx(), bounds.Dy(), faceBox, t.cfg.PortraitTopPadding, t.cfg.PortraitBottomPadding)
	rect = rect.Add(bounds.Min)

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	fillWhite(dst)
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Over)

	return encodeJPEG(dst, t.cfg.PortraitJPEGQuality)
}

func (t *imageTransformer) decodeSource(data []byte, mimeType string) (image.Image, error) {
	if IsPDF(mimeType) {
		if t.rasterizer == nil {
			return nil, errors.New("no PDF rasterizer configured")
		}
		img, err := t.rasterizer.RasterizeFirstPage(data, t.cfg.PDFRenderScale)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize PDF: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// PortraitRect converts a normalized face box into a square crop rectangle
// of a width x height source. Room is added above the face for hair and
// below it for shoulders; the square is centred on the face horizontally.
// The result always lies inside the source: it is shifted first and only
// shrunk when the source is smaller than the square.
func PortraitRect(width, height int, faceBox []float64, topPad, bottomPad float64) image.Rectangle {
	yMin, xMin, yMax, xMax := faceBox[0], faceBox[1], faceBox[2], faceBox[3]
	if yMax < yMin {
		yMin, yMax = yMax, yMin
	}
	if xMax < xMin {
		xMin, xMax = xMax, xMin
	}

	W, H := float64(width), float64(height)
	faceY := yMin / config.FaceBoxScale * H
	faceX := xMin / config.FaceBoxScale * W
	faceH := (yMax - yMin) / config.FaceBoxScale * H
	faceW := (xMax - xMin) / config.FaceBoxScale * W

	top := faceH * topPad
	side := faceH + top + faceH*bottomPad
	x := faceX + faceW/2 - side/2
	y := faceY - top

	size := int(math.Round(side))
	if size < 1 {
		size = 1
	}
	size = min(size, width, height)

	left := clampInt(int(math.Round(x)), 0, width-size)
	upper := clampInt(int(math.Round(y)), 0, height-size)

	return image.Rect(left, upper, left+size, upper+size)
}

// decodableImageTypes lists the image formats with a registered decoder.
var decodableImageTypes = map[string]bool{
	"image/jpeg":     true,
	"image/jpg":      true,
	"image/pjpeg":    true,
	"image/png":      true,
	"image/gif":      true,
	"image/webp":     true,
	"image/bmp":      true,
	"image/x-ms-bmp": true,
	"image/tiff":     true,
}

// IsDecodableImage reports whether the payload is an image format Resize and
// CropPortrait can decode. Parameters such as charset are ignored.
func IsDecodableImage(mimeType string) bool {
	mt, _, _ := strings.Cut(mimeType, ";")
	return decodableImageTypes[strings.ToLower(strings.TrimSpace(mt))]
}

// IsSupportedUpload reports whether a file of this type can go through the
// pipeline.
func IsSupportedUpload(mimeType string) bool {
	return IsPDF(mimeType) || IsDecodableImage(mimeType)
}

func IsPDF(mimeType string) bool {
	return strings.Contains(strings.ToLower(mimeType), "pdf")
}

func scaledSize(w, h, maxDim int) (int, int) {
	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return w, h
	}

	scale := float64(maxDim) / float64(longest)
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return nw, nh
}

func fillWhite(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
