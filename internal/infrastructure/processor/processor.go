package processor

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"

	// Register webp so uploads in webp decode alongside the formats
	// imaging registers itself.
	_ "golang.org/x/image/webp"
)

// ImageProcessor normalizes uploaded photos: auto-orients, bounds the
// longest edge to the configured maximum without ever upscaling, and
// re-encodes as JPEG at a fixed quality. Inputs whose detected format is
// outside the allow-list are rejected per item.
type ImageProcessor struct {
	maxDimension   int
	quality        int
	allowedFormats map[string]bool
}

func NewImageProcessor(cfg *config.UploadConfig) *ImageProcessor {
	maxDim := cfg.MaxDimension
	quality := cfg.OutputQuality
	if maxDim <= 0 {
		zlog.Logger.Warn().Int("max_dimension", maxDim).Msg("invalid max dimension, using default")
		maxDim = 1920
	}
	if quality <= 0 || quality > 100 {
		zlog.Logger.Warn().Int("output_quality", quality).Msg("invalid output quality, using default")
		quality = 85
	}

	allowed := make(map[string]bool, len(cfg.SupportedFormats))
	for _, f := range cfg.SupportedFormats {
		f = strings.ToLower(strings.TrimPrefix(f, "."))
		if f == "jpg" {
			f = "jpeg"
		}
		allowed[f] = true
	}

	zlog.Logger.Info().
		Int("max_dimension", maxDim).
		Int("output_quality", quality).
		Strs("supported_formats", cfg.SupportedFormats).
		Msg("ImageProcessor initialized")

	return &ImageProcessor{maxDimension: maxDim, quality: quality, allowedFormats: allowed}
}

func (p *ImageProcessor) Transform(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrTransformFailed, err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to detect image format")
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrTransformFailed, err)
	}
	if len(p.allowedFormats) > 0 && !p.allowedFormats[format] {
		zlog.Logger.Warn().Str("format", format).Msg("unsupported image format")
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrTransformFailed, format)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode image")
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrTransformFailed, err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("%w: decoded image is empty", domain.ErrTransformFailed)
	}

	// Fit only shrinks; images already inside the bound pass through.
	if img.Bounds().Dx() > p.maxDimension || img.Bounds().Dy() > p.maxDimension {
		img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode image")
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrTransformFailed, err)
	}

	zlog.Logger.Info().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Int("bytes", buf.Len()).
		Msg("image normalized")

	return buf.Bytes(), nil
}
