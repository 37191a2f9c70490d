package services

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, width, height int, asPNG bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 60, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if asPNG {
		require.NoError(t, png.Encode(&buf, img))
	} else {
		require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	}
	return buf.Bytes()
}

func TestProcessImageScalesDownLargeImages(t *testing.T) {
	data := encodeTestImage(t, 800, 400, false)

	processed, err := ProcessImage(data, 200, 85)
	require.NoError(t, err)

	assert.Equal(t, 800, processed.OriginalWidth)
	assert.Equal(t, 400, processed.OriginalHeight)
	assert.Equal(t, 200, processed.Width)
	assert.Equal(t, 100, processed.Height)
	assert.InDelta(t, 0.25, processed.ScaleFactor, 0.001)
	assert.Equal(t, 85, processed.Quality)

	decoded, format, err := image.Decode(bytes.NewReader(processed.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, decoded.Bounds().Dx())
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	data := encodeTestImage(t, 100, 50, false)

	processed, err := ProcessImage(data, 200, 85)
	require.NoError(t, err)

	assert.Equal(t, 100, processed.Width)
	assert.Equal(t, 50, processed.Height)
	assert.Equal(t, 1.0, processed.ScaleFactor)
}

func TestProcessImageConvertsPNGToJPEG(t *testing.T) {
	data := encodeTestImage(t, 64, 64, true)

	processed, err := ProcessImage(data, 200, 85)
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(processed.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, err := ProcessImage([]byte("not an image at all"), 200, 85)
	assert.Error(t, err)
}
