package imaging

import (
	"fmt"
	"image"
	"io"

	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Decode decodes an image from r. JPEG, PNG and WebP decoders are
// registered.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeConfig reads only the image header.
func DecodeConfig(r io.Reader) (image.Config, string, error) {
	return image.DecodeConfig(r)
}

// ToRGBA converts any image to *image.RGBA with a zero-based origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

// Scale resamples img to w×h with bilinear interpolation.
func Scale(img image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return out
}

// Luminance extracts a [0,1] luminance grid using Rec. 601 weights.
func Luminance(img *image.RGBA) *Grid {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := NewGrid(w, h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			out.Data[y*w+x] = (0.299*r + 0.587*g + 0.114*b) / 255.0
		}
	}
	return out
}

// Channels splits an RGBA image into three [0,1] grids.
func Channels(img *image.RGBA) (r, g, b *Grid) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	r, g, b = NewGrid(w, h), NewGrid(w, h), NewGrid(w, h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r.Data[y*w+x] = float64(row[x*4]) / 255.0
			g.Data[y*w+x] = float64(row[x*4+1]) / 255.0
			b.Data[y*w+x] = float64(row[x*4+2]) / 255.0
		}
	}
	return r, g, b
}

// Compose rebuilds an RGBA image from three [0,1] channel grids,
// clipping out-of-range values.
func Compose(r, g, b *Grid) *image.RGBA {
	w, h := r.W, r.H
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4] = clampByte(r.Data[y*w+x])
			out.Pix[y*out.Stride+x*4+1] = clampByte(g.Data[y*w+x])
			out.Pix[y*out.Stride+x*4+2] = clampByte(b.Data[y*w+x])
			out.Pix[y*out.Stride+x*4+3] = 255
		}
	}
	return out
}

// ColorAt returns the [0,1] RGB triple at (x, y).
func ColorAt(img *image.RGBA, x, y int) [3]float64 {
	i := y*img.Stride + x*4
	return [3]float64{
		float64(img.Pix[i]) / 255.0,
		float64(img.Pix[i+1]) / 255.0,
		float64(img.Pix[i+2]) / 255.0,
	}
}

func clampByte(v float64) uint8 {
	v *= 255.0
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
