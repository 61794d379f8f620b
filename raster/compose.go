package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// StitchVertically stacks pages top to bottom, left aligned. The result is
// as wide as the widest page; uncovered areas stay transparent.
func StitchVertically(pages []image.Image) *image.NRGBA {
	var width, height int
	for _, p := range pages {
		b := p.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
	}

	dest := image.NewNRGBA(image.Rect(0, 0, width, height))
	y := 0
	for _, p := range pages {
		b := p.Bounds()
		r := image.Rect(0, y, b.Dx(), y+b.Dy())
		draw.Draw(dest, r, p, b.Min, draw.Src)
		y += b.Dy()
	}
	return dest
}

// FlattenAlpha composites img over an opaque background. A nil background
// is white; the alpha of any other background is ignored.
func FlattenAlpha(img image.Image, background color.Color) *image.NRGBA {
	bg := color.NRGBA{0xff, 0xff, 0xff, 0xff}
	if background != nil {
		bg = color.NRGBAModel.Convert(background).(color.NRGBA)
		bg.A = 0xff
	}

	b := img.Bounds()
	dest := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dest, dest.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dest, dest.Bounds(), img, b.Min, draw.Over)
	return dest
}
