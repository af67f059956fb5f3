// File: internal/screen/encode.go
package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	"golang.org/x/image/draw"
)

// Image wraps the frame pixels in an *image.RGBA without copying.
func (f *ScreenFrame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pixels,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameFromImage converts any image into an RGBA ScreenFrame.
func FrameFromImage(img image.Image, display DisplayInfo) *ScreenFrame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &ScreenFrame{
		Display:    display,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Stride:     rgba.Stride,
		Pixels:     rgba.Pix,
		CapturedAt: time.Now(),
	}
}

// EncodePNG encodes the frame as PNG. When maxDimension is positive and the
// frame is larger, it is downsampled so its longest side equals maxDimension.
func EncodePNG(frame *ScreenFrame, maxDimension int) ([]byte, error) {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("cannot encode empty frame")
	}
	if frame.Stride < frame.Width*4 || len(frame.Pixels) < frame.Stride*(frame.Height-1)+frame.Width*4 {
		return nil, fmt.Errorf("frame buffer too small for %dx%d (stride %d, %d bytes)",
			frame.Width, frame.Height, frame.Stride, len(frame.Pixels))
	}

	var img image.Image = frame.Image()
	if longest := max(frame.Width, frame.Height); maxDimension > 0 && longest > maxDimension {
		w := max(frame.Width*maxDimension/longest, 1)
		h := max(frame.Height*maxDimension/longest, 1)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
