package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ProcessedImage is the normalized JPEG derived from an upload, plus the
// processing facts recorded alongside the extracted attributes.
type ProcessedImage struct {
	Data           []byte
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
	ScaleFactor    float64
	Quality        int
}

// ProcessImage decodes an upload in any supported format, scales it down so
// the longest side is at most maxDim, and re-encodes as JPEG. Images already
// within bounds are re-encoded without resampling.
func ProcessImage(data []byte, maxDim, quality int) (*ProcessedImage, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, fmt.Errorf("decode image: empty %v image", format)
	}

	scale := 1.0
	w, h := origW, origH
	if longest := max(origW, origH); maxDim > 0 && longest > maxDim {
		scale = float64(maxDim) / float64(longest)
		w = int(float64(origW) * scale)
		h = int(float64(origH) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	out := src
	if scale != 1.0 {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &ProcessedImage{
		Data:           buf.Bytes(),
		OriginalWidth:  origW,
		OriginalHeight: origH,
		Width:          w,
		Height:         h,
		ScaleFactor:    scale,
		Quality:        quality,
	}, nil
}
