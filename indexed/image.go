// Package indexed encodes full-color rasters as palette-indexed bitmaps at
// 1, 4 or 8 bits per pixel.
package indexed

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

var _ color.Color = RGB{}

func (c RGB) RGBA() (uint32, uint32, uint32, uint32) {
	r := uint32(c.R)
	g := uint32(c.G)
	b := uint32(c.B)
	return r | r<<8, g | g<<8, b | b<<8, 0xffff
}

func (c RGB) key() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func rgbFromKey(k uint32) RGB {
	return RGB{R: uint8(k >> 16), G: uint8(k >> 8), B: uint8(k)}
}

// RGBModel converts any color to RGB, dropping alpha without compositing.
var RGBModel = color.ModelFunc(func(c color.Color) color.Color {
	if rc, ok := c.(RGB); ok {
		return rc
	}
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: nc.R, G: nc.G, B: nc.B}
})

// Palette is an ordered list of distinct colors addressed by index.
type Palette []RGB

// ColorPalette returns p as a standard library palette.
func (p Palette) ColorPalette() color.Palette {
	pal := make(color.Palette, len(p))
	for i, c := range p {
		pal[i] = c
	}
	return pal
}

// PaletteFrom converts a standard library palette, rejecting duplicates.
func PaletteFrom(cp color.Palette) (Palette, error) {
	seen := make(map[uint32]int, len(cp))
	pal := make(Palette, len(cp))
	for i, c := range cp {
		pal[i] = RGBModel.Convert(c).(RGB)
		if j, dup := seen[pal[i].key()]; dup {
			return nil, fmt.Errorf("%w: palette entries %d and %d are both %v", ErrInvalidInput, j, i, pal[i])
		}
		seen[pal[i].key()] = i
	}
	return pal, nil
}

// PixelBuffer holds Width*Height RGBA samples, 8 bits per channel, row-major
// with no padding between rows.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 4*width*height),
	}
}

// FromImage copies img into a new PixelBuffer. Alpha is kept but ignored by
// the encoder; flatten transparent images first.
func FromImage(img image.Image) *PixelBuffer {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return &PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: nrgba.Pix[:4*b.Dx()*b.Dy()]}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

func (p *PixelBuffer) validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil pixel buffer", ErrInvalidInput)
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: image has no pixels (%dx%d)", ErrInvalidInput, p.Width, p.Height)
	case p.Width > math.MaxInt/4/p.Height:
		return fmt.Errorf("%w: image too large (%dx%d)", ErrInvalidInput, p.Width, p.Height)
	case len(p.Pix) < 4*p.Width*p.Height:
		return fmt.Errorf("%w: pixel data holds %d bytes, %dx%d needs %d",
			ErrInvalidInput, len(p.Pix), p.Width, p.Height, 4*p.Width*p.Height)
	}
	return nil
}

// At returns the color at (x, y) with alpha dropped.
func (p *PixelBuffer) At(x, y int) RGB {
	i := 4 * (y*p.Width + x)
	s := p.Pix[i : i+3 : i+3]
	return RGB{R: s[0], G: s[1], B: s[2]}
}

func (p *PixelBuffer) Set(x, y int, c color.Color) {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	i := 4 * (y*p.Width + x)
	s := p.Pix[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = nc.R, nc.G, nc.B, nc.A
}

// IndexBuffer is a Width*Height grid of palette indices, row-major.
type IndexBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func (b *IndexBuffer) At(x, y int) uint8 {
	return b.Pix[y*b.Width+x]
}
