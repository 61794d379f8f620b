package mangle

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

// fit describes how a source rectangle maps onto the output canvas.
type fit struct {
	src    image.Rectangle // part of the source that is scaled
	canvas image.Rectangle // output size
	dst    image.Rectangle // where src lands inside canvas
}

// fitBox computes the mapping of a src sized image onto a width x height
// box. A zero dimension keeps the source one. With crop the source is
// trimmed to the box aspect ratio. Without crop the box shrinks to the
// scaled image unless pad is set, in which case the image is centered.
func fitBox(src image.Rectangle, width, height int, crop, pad bool) fit {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	dw, dh := float64(width), float64(height)
	if width == 0 {
		dw = sw
	}
	if height == 0 {
		dh = sh
	}

	f := fit{
		src:    src,
		canvas: image.Rect(0, 0, int(dw), int(dh)),
		dst:    image.Rect(0, 0, int(dw), int(dh)),
	}
	srcAR, dstAR := sw/sh, dw/dh

	switch {
	case srcAR == dstAR:
	case crop && srcAR < dstAR:
		trim := int(math.Round((sh - sw/dstAR) / 2))
		f.src.Min.Y += trim
		f.src.Max.Y -= trim
	case crop:
		trim := int(math.Round((sw - sh*dstAR) / 2))
		f.src.Min.X += trim
		f.src.Max.X -= trim
	case srcAR < dstAR:
		w := dh * srcAR
		if !pad {
			f.canvas.Max.X = int(math.Round(w))
			f.dst.Max.X = f.canvas.Max.X
		} else if dw > w {
			margin := int(math.Round((dw - w) / 2))
			f.dst.Min.X += margin
			f.dst.Max.X -= margin
		}
	default:
		h := dw / srcAR
		if !pad {
			f.canvas.Max.Y = int(math.Round(h))
			f.dst.Max.Y = f.canvas.Max.Y
		} else if dh > h {
			margin := int(math.Round((dh - h) / 2))
			f.dst.Min.Y += margin
			f.dst.Max.Y -= margin
		}
	}
	return f
}

// resize scales img into the box with CatmullRom. Padding, if any, is
// painted with fill; a nil fill disables padding.
func resize(logger *slog.Logger, img image.Image, width, height int, crop bool, fill color.Color) image.Image {
	f := fitBox(img.Bounds(), width, height, crop, fill != nil)
	if f.src == img.Bounds() && f.canvas.Size() == f.src.Size() && f.dst == f.canvas {
		return img
	}

	logger.Info("resizing", "width", f.dst.Dx(), "height", f.dst.Dy())
	dest := image.NewNRGBA(f.canvas)
	if fill != nil && f.dst != f.canvas {
		draw.Draw(dest, f.canvas, image.NewUniform(fill), image.Point{}, draw.Src)
	}
	draw.CatmullRom.Scale(dest, f.dst, img, f.src, draw.Over, nil)
	return dest
}
