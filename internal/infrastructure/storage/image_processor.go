package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	VariantOriginal  = "original"
	VariantThumbnail = "thumbnail"
)

type ImageProcessor struct {
	MaxSize       int64 // bytes
	MaxDimension  int
	ThumbnailSize int
}

func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{
		MaxSize:       5 * 1024 * 1024,
		MaxDimension:  1600,
		ThumbnailSize: 300,
	}
}

// ValidateImage accepts JPEG and PNG up to MaxSize
func (p *ImageProcessor) ValidateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("image is empty")
	}
	if int64(len(data)) > p.MaxSize {
		return fmt.Errorf("image exceeds %dMB", p.MaxSize/(1024*1024))
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("not an image: %w", err)
	}
	switch format {
	case "jpeg", "png":
		return nil
	default:
		return fmt.Errorf("image format %s not allowed (only jpeg/png)", format)
	}
}

// ProcessImage re-encodes the upload as JPEG (dropping EXIF) and renders a
// thumbnail. Keys of the result are VariantOriginal and VariantThumbnail.
func (p *ImageProcessor) ProcessImage(data []byte) (map[string][]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}

	sizes := map[string]int{
		VariantOriginal:  p.MaxDimension,
		VariantThumbnail: p.ThumbnailSize,
	}

	variants := make(map[string][]byte, len(sizes))
	for name, size := range sizes {
		resized := imaging.Fit(img, size, size, imaging.Lanczos)
		b := new(bytes.Buffer)
		if err := jpeg.Encode(b, resized, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("cannot encode %s: %w", name, err)
		}
		variants[name] = b.Bytes()
	}
	return variants, nil
}
