// Package images crops product photos out of page rasters and normalizes
// user-supplied photos into square thumbnails.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// PageQuality is the JPEG quality of page rasters and crops
	PageQuality = 80
	// ThumbnailQuality is the JPEG quality of standardized photos
	ThumbnailQuality = 85
	// ThumbnailSize is the edge length of standardized photos
	ThumbnailSize = 300
)

// EncodeJPEG encodes img at the given quality
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop cuts the region described by box out of an encoded page image.
// box is [ymin, xmin, ymax, xmax] normalized to 0-1; values are clamped to that
// range. It returns nil when the box does not have four values, when the
// clamped region has no area, or when the page cannot be decoded.
func Crop(page []byte, box []float64) []byte {
	if len(box) != 4 {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(page))
	if err != nil {
		slog.Warn("Unable to decode page for cropping", "err", err)
		return nil
	}

	rect, ok := pixelRect(img.Bounds(), box)
	if !ok {
		slog.Debug("Skipping empty bounding box", "box", box)
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)

	data, err := EncodeJPEG(dst, PageQuality)
	if err != nil {
		slog.Warn("Unable to encode crop", "err", err)
		return nil
	}
	return data
}

func pixelRect(bounds image.Rectangle, box []float64) (image.Rectangle, bool) {
	ymin, xmin, ymax, xmax := clamp01(box[0]), clamp01(box[1]), clamp01(box[2]), clamp01(box[3])
	if xmin >= xmax || ymin >= ymax {
		return image.Rectangle{}, false
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	rect := image.Rect(
		bounds.Min.X+int(math.Round(xmin*w)),
		bounds.Min.Y+int(math.Round(ymin*h)),
		bounds.Min.X+int(math.Round(xmax*w)),
		bounds.Min.Y+int(math.Round(ymax*h)),
	).Intersect(bounds)

	return rect, !rect.Empty()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Standardize turns an arbitrary photo into a ThumbnailSize square JPEG:
// center-cropped, scaled and flattened onto white. Undecodable input yields nil.
func Standardize(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Unable to decode photo", "err", err)
		return nil
	}

	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	if side == 0 {
		return nil
	}
	sx := b.Min.X + (b.Dx()-side)/2
	sy := b.Min.Y + (b.Dy()-side)/2
	src := image.Rect(sx, sy, sx+side, sy+side)

	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailSize, ThumbnailSize))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

	out, err := EncodeJPEG(dst, ThumbnailQuality)
	if err != nil {
		slog.Warn("Unable to encode thumbnail", "err", err)
		return nil
	}
	return out
}
