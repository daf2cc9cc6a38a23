package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageProcessor_Validate(t *testing.T) {
	p := NewImageProcessor()

	assert.NoError(t, p.ValidateImage(pngBytes(t, 10, 10)))
	assert.Error(t, p.ValidateImage(nil))
	assert.Error(t, p.ValidateImage([]byte("definitely not an image")))

	p.MaxSize = 16
	assert.Error(t, p.ValidateImage(pngBytes(t, 10, 10)))
}

func TestImageProcessor_ProcessBuildsThumbnail(t *testing.T) {
	p := NewImageProcessor()

	variants, err := p.ProcessImage(pngBytes(t, 800, 400))
	require.NoError(t, err)
	require.Contains(t, variants, VariantOriginal)
	require.Contains(t, variants, VariantThumbnail)

	thumb, format, err := image.DecodeConfig(bytes.NewReader(variants[VariantThumbnail]))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 300, thumb.Width)
	assert.Equal(t, 150, thumb.Height)
}
