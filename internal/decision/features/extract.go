// Package features turns an encoded document image into a FeatureVector.
package features

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
)

const (
	// DefaultSize is the canonical square resolution features are measured at.
	DefaultSize = 224
	// DefaultMaxPixels caps the declared dimensions of an input image.
	DefaultMaxPixels = 50_000_000

	cannyLow       = 100
	cannyHigh      = 200
	glareThreshold = 240
	histogramBins  = 16
	entropyEpsilon = 1e-10
)

// Extract measures data at the default resolution.
func Extract(data []byte) (models.FeatureVector, error) {
	return ExtractWithSize(data, DefaultSize)
}

// ExtractWithSize measures data at size×size with the default pixel cap.
func ExtractWithSize(data []byte, size int) (models.FeatureVector, error) {
	return ExtractWithLimits(data, size, DefaultMaxPixels)
}

// ExtractWithLimits decodes data, converts it to grayscale, resizes it to
// size×size and measures it. Undecodable input, and input whose header
// declares more than maxPixels pixels, returns a decode error.
func ExtractWithLimits(data []byte, size, maxPixels int) (models.FeatureVector, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	gray, err := decodeGray(data, maxPixels)
	if err != nil {
		return models.FeatureVector{}, err
	}

	b := gray.Bounds()
	aspect := float64(b.Dx()) / float64(b.Dy())

	resized := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), gray, b, draw.Src, nil)

	g := newGrid(resized)
	fv := models.FeatureVector{AspectRatio: aspect}

	fv.BrightnessMean, fv.BrightnessStd = meanStd(g.pix)
	lo, hi := minMax(g.pix)
	fv.Contrast = hi - lo
	fv.EdgeDensity = density(canny(g, cannyLow, cannyHigh))

	_, lapStd := meanStd(laplacian(g))
	fv.BlurScore = lapStd * lapStd
	fv.ForensicNoise = lapStd

	fv.TextDensity = textDensity(resized.Pix)
	fv.HistogramEntropy = histogramEntropy(resized.Pix)
	fv.GlareIndex = glareIndex(resized.Pix)

	return fv, nil
}

func decodeGray(data []byte, maxPixels int) (*image.Gray, error) {
	if len(data) == 0 {
		return nil, apperrors.NewDecodeError(fmt.Errorf("empty image buffer"))
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperrors.NewDecodeError(fmt.Errorf("image has no pixels"))
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, apperrors.NewDecodeError(fmt.Errorf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, maxPixels))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError(err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.NewDecodeError(fmt.Errorf("image has no pixels"))
	}

	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)

	return orient(gray, orientation(data)), nil
}

// orientation reads the EXIF orientation tag, defaulting to 1.
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient applies an EXIF orientation so the grid is upright.
func orient(src *image.Gray, o int) *image.Gray {
	if o == 1 {
		return src
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}
	dst := image.NewGray(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var nx, ny int
			switch o {
			case 2:
				nx, ny = w-1-x, y
			case 3:
				nx, ny = w-1-x, h-1-y
			case 4:
				nx, ny = x, h-1-y
			case 5:
				nx, ny = y, x
			case 6:
				nx, ny = h-1-y, x
			case 7:
				nx, ny = h-1-y, w-1-x
			case 8:
				nx, ny = y, w-1-x
			}
			dst.Pix[ny*dst.Stride+nx] = src.Pix[y*src.Stride+x]
		}
	}
	return dst
}

func meanStd(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	var sq float64
	for _, x := range v {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(v)))
}

func minMax(v []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func density(mask []bool) float64 {
	if len(mask) == 0 {
		return 0
	}
	n := 0
	for _, on := range mask {
		if on {
			n++
		}
	}
	return float64(n) / float64(len(mask))
}

// textDensity is the share of pixels at or below the Otsu threshold, i.e.
// the foreground of an inverse binary threshold.
func textDensity(pix []uint8) float64 {
	t := otsu(pix)
	n := 0
	for _, p := range pix {
		if int(p) <= t {
			n++
		}
	}
	return float64(n) / float64(len(pix))
}

func histogramEntropy(pix []uint8) float64 {
	var hist [histogramBins]float64
	for _, p := range pix {
		hist[int(p)*histogramBins/256]++
	}
	total := float64(len(pix))
	var entropy float64
	for _, c := range hist {
		p := c / total
		entropy -= p * math.Log2(p+entropyEpsilon)
	}
	return entropy
}

func glareIndex(pix []uint8) float64 {
	n := 0
	for _, p := range pix {
		if p > glareThreshold {
			n++
		}
	}
	return float64(n) / float64(len(pix))
}
