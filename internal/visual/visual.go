// Package visual renders sample batches to PNG grids and animated GIFs.
//
// Samples are laid out the way the data package produces them: channels ×
// size × size per frame, values in [-1, 1]. One channel renders as gray,
// three as RGB; any other channel count shows the first channel only.
package visual

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/serialization"
	"golang.org/x/image/draw"
)

// Padding is the gap in pixels between grid tiles.
const Padding = 2

// ErrNotImage is returned for batches whose layout has no square frames.
var ErrNotImage = errors.New("visual: batch is not an image layout")

// denorm maps [-1, 1] to [0, 255], clamping outliers.
func denorm(v float32) uint8 {
	x := (v + 1) / 2 * 255
	switch {
	case x <= 0 || math.IsNaN(float64(x)):
		return 0
	case x >= 255:
		return 255
	default:
		return uint8(x + 0.5)
	}
}

// Grid tiles frame f of every sample of b, nrow tiles per row. A
// non-positive nrow fits every sample on one row.
func Grid(b data.Batch, frame, nrow int) (*image.RGBA, error) {
	l := b.Layout
	if l.Size <= 0 || l.Channels <= 0 || l.Dim != l.Channels*l.Size*l.Size {
		return nil, ErrNotImage
	}
	if frame < 0 || frame >= l.Frames {
		return nil, fmt.Errorf("visual: frame %d of %d", frame, l.Frames)
	}
	if nrow <= 0 || nrow > b.Size {
		nrow = max(b.Size, 1)
	}
	rows := (b.Size + nrow - 1) / nrow
	cell := l.Size + Padding
	img := image.NewRGBA(image.Rect(0, 0, nrow*cell+Padding, rows*cell+Padding))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	plane := l.Size * l.Size
	for i := range b.Size {
		pixels := b.Frame(i, frame)
		x0 := Padding + (i%nrow)*cell
		y0 := Padding + (i/nrow)*cell
		for y := range l.Size {
			for x := range l.Size {
				p := y*l.Size + x
				c := color.RGBA{A: 255}
				if l.Channels == 3 {
					c.R, c.G, c.B = denorm(pixels[p]), denorm(pixels[plane+p]), denorm(pixels[2*plane+p])
				} else {
					v := denorm(pixels[p])
					c.R, c.G, c.B = v, v, v
				}
				img.SetRGBA(x0+x, y0+y, c)
			}
		}
	}
	return img, nil
}

// Frames renders one grid per frame of b.
func Frames(b data.Batch, nrow int) ([]*image.RGBA, error) {
	out := make([]*image.RGBA, 0, b.Layout.Frames)
	for f := range b.Layout.Frames {
		img, err := Grid(b, f, nrow)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// Upscale enlarges img by an integer factor with nearest-neighbour sampling.
func Upscale(img *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}

// SavePNG writes img to path atomically, creating the directory.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return serialization.AtomicWrite(path, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

// SaveGIF writes frames as a looping animation, delay in 100ths of a second
// per frame.
func SaveGIF(path string, frames []*image.RGBA, delay int) error {
	if len(frames) == 0 {
		return errors.New("visual: no frames")
	}
	anim := &gif.GIF{}
	for _, f := range frames {
		p := image.NewPaletted(f.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(p, f.Bounds(), f, f.Bounds().Min)
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return serialization.AtomicWrite(path, func(w io.Writer) error {
		return gif.EncodeAll(w, anim)
	})
}
